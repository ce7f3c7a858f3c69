package indexer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Ramsey-B/fern/pkg/indexsync"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
)

func (i *Indexer) productChanged(ctx context.Context, event models.Event) error {
	return i.upsertProduct(ctx, event, false, true)
}

func (i *Indexer) categoryChanged(ctx context.Context, event models.Event) error {
	return i.upsertCategory(ctx, event, false, true)
}

func (i *Indexer) brandChanged(ctx context.Context, event models.Event) error {
	return i.upsertBrand(ctx, event.EntityID, false)
}

// productDeleted removes the document by id. The relationship hints on the event stand
// in for the canonical row, which is already gone.
func (i *Indexer) productDeleted(ctx context.Context, event models.Event) error {
	if err := i.remove(ctx, models.EntityTypeProduct, event.EntityID); err != nil {
		return err
	}
	if err := i.refreshCategories(ctx, event.CategoryIDs, true); err != nil {
		return err
	}
	if event.BrandID != nil {
		return i.refreshBrands(ctx, []string{*event.BrandID})
	}
	return nil
}

func (i *Indexer) categoryDeleted(ctx context.Context, event models.Event) error {
	if err := i.remove(ctx, models.EntityTypeCategory, event.EntityID); err != nil {
		return err
	}
	if event.ParentCategoryID != nil && *event.ParentCategoryID != "" {
		return i.refreshCategories(ctx, []string{*event.ParentCategoryID}, true)
	}
	return nil
}

func (i *Indexer) brandDeleted(ctx context.Context, event models.Event) error {
	return i.remove(ctx, models.EntityTypeBrand, event.EntityID)
}

func (i *Indexer) enrichmentPublished(ctx context.Context, event models.Event) error {
	return i.rebuild(ctx, event, false)
}

// enrichmentUnpublished rebuilds the canonical-only document without calling the CMS.
func (i *Indexer) enrichmentUnpublished(ctx context.Context, event models.Event) error {
	return i.rebuild(ctx, event, true)
}

func (i *Indexer) rebuild(ctx context.Context, event models.Event, skipEnrichment bool) error {
	entityType, err := event.ResolveEntityType()
	if err != nil {
		return err
	}
	switch entityType {
	case models.EntityTypeProduct:
		return i.upsertProduct(ctx, event, skipEnrichment, false)
	case models.EntityTypeCategory:
		return i.upsertCategory(ctx, event, skipEnrichment, false)
	case models.EntityTypeBrand:
		return i.upsertBrand(ctx, event.EntityID, skipEnrichment)
	}
	return fmt.Errorf("unknown entity type %q", entityType)
}

// upsertProduct rebuilds one product. With cascade set, the categories and brand it
// belongs to (now or per the event hints) are rebuilt so their counts follow.
func (i *Indexer) upsertProduct(ctx context.Context, event models.Event, skipEnrichment, cascade bool) error {
	p, err := i.commerce.GetProduct(ctx, event.EntityID)
	if err != nil {
		return fmt.Errorf("failed to fetch product: %w", err)
	}
	if p == nil {
		i.logger.WithContext(ctx).WithField("entity_id", event.EntityID).Warn("Product not found, skipping")
		return nil
	}

	if !p.IsLive() {
		if err := i.remove(ctx, models.EntityTypeProduct, p.ID); err != nil {
			return err
		}
	} else {
		snap, err := i.builder.ProductSnapshot(ctx, []models.Product{*p})
		if err != nil {
			return err
		}
		doc, err := i.builder.Product(ctx, *p, snap, skipEnrichment)
		if err != nil {
			return err
		}
		if err := i.write(ctx, models.EntityTypeProduct, doc); err != nil {
			return err
		}
	}

	if !cascade {
		return nil
	}
	if err := i.refreshCategories(ctx, union(p.CategoryIDs, event.CategoryIDs), true); err != nil {
		return err
	}
	var brands []string
	if p.BrandID != nil {
		brands = append(brands, *p.BrandID)
	}
	if event.BrandID != nil {
		brands = append(brands, *event.BrandID)
	}
	return i.refreshBrands(ctx, union(brands, nil))
}

// upsertCategory rebuilds one category. With cascade set, descendants (whose paths
// include it) and ancestors (whose counts include it) are rebuilt too.
func (i *Indexer) upsertCategory(ctx context.Context, event models.Event, skipEnrichment, cascade bool) error {
	c, err := i.commerce.GetCategory(ctx, event.EntityID)
	if err != nil {
		return fmt.Errorf("failed to fetch category: %w", err)
	}
	if c == nil {
		i.logger.WithContext(ctx).WithField("entity_id", event.EntityID).Warn("Category not found, skipping")
		return nil
	}

	snap, err := i.builder.CategorySnapshot(ctx)
	if err != nil {
		return err
	}

	if !c.IsLive() {
		if err := i.remove(ctx, models.EntityTypeCategory, c.ID); err != nil {
			return err
		}
	} else {
		doc, err := i.builder.Category(ctx, *c, snap, skipEnrichment)
		if err != nil {
			return err
		}
		if err := i.write(ctx, models.EntityTypeCategory, doc); err != nil {
			return err
		}
	}

	if !cascade {
		return nil
	}
	// the event's parent hint is the previous parent when the category moved
	related := snap.Tree.Descendants(c.ID)
	for _, parent := range []*string{c.ParentCategoryID, event.ParentCategoryID} {
		if parent == nil || *parent == "" || *parent == c.ID {
			continue
		}
		related = append(related, *parent)
		related = append(related, snap.Tree.Ancestors(*parent)...)
	}
	return i.refreshCategoriesWith(ctx, snap, union(related, nil))
}

func (i *Indexer) upsertBrand(ctx context.Context, id string, skipEnrichment bool) error {
	b, err := i.commerce.GetBrand(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch brand: %w", err)
	}
	if b == nil {
		i.logger.WithContext(ctx).WithField("entity_id", id).Warn("Brand not found, skipping")
		return nil
	}
	if !b.IsLive() {
		return i.remove(ctx, models.EntityTypeBrand, b.ID)
	}

	snap, err := i.builder.BrandSnapshot(ctx, []string{b.ID})
	if err != nil {
		return err
	}
	doc, err := i.builder.Brand(ctx, *b, snap, skipEnrichment)
	if err != nil {
		return err
	}
	return i.write(ctx, models.EntityTypeBrand, doc)
}

// refreshCategories rebuilds the given categories, plus their ancestors when
// withAncestors is set.
func (i *Indexer) refreshCategories(ctx context.Context, ids []string, withAncestors bool) error {
	if len(ids) == 0 {
		return nil
	}
	snap, err := i.builder.CategorySnapshot(ctx)
	if err != nil {
		return err
	}
	targets := ids
	if withAncestors {
		for _, id := range ids {
			targets = append(targets, snap.Tree.Ancestors(id)...)
		}
	}
	return i.refreshCategoriesWith(ctx, snap, union(targets, nil))
}

func (i *Indexer) refreshCategoriesWith(ctx context.Context, snap *indexsync.Snapshot, ids []string) error {
	var docs []json.RawMessage
	var removals []string
	for _, id := range ids {
		c := snap.Tree.Get(id)
		if c == nil {
			continue
		}
		if !c.IsLive() {
			removals = append(removals, id)
			continue
		}
		doc, err := i.builder.Category(ctx, *c, snap, false)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}
	if len(docs) > 0 {
		if err := i.index.AddDocuments(ctx, models.EntityTypeCategory, docs); err != nil {
			return fmt.Errorf("failed to upsert categories: %w", err)
		}
		metrics.RecordDocuments(string(models.EntityTypeCategory), metrics.SourceEvent, len(docs), 0, 0)
	}
	if len(removals) > 0 {
		if err := i.index.DeleteDocuments(ctx, models.EntityTypeCategory, removals); err != nil {
			return fmt.Errorf("failed to delete categories: %w", err)
		}
		metrics.RecordDocuments(string(models.EntityTypeCategory), metrics.SourceEvent, 0, len(removals), 0)
	}
	return nil
}

func (i *Indexer) refreshBrands(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := i.upsertBrand(ctx, id, false); err != nil {
			return err
		}
	}
	return nil
}

func (i *Indexer) write(ctx context.Context, entityType models.EntityType, doc json.RawMessage) error {
	if err := i.index.AddDocuments(ctx, entityType, []json.RawMessage{doc}); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", entityType, err)
	}
	metrics.RecordDocuments(string(entityType), metrics.SourceEvent, 1, 0, 0)
	return nil
}

func (i *Indexer) remove(ctx context.Context, entityType models.EntityType, id string) error {
	if err := i.index.DeleteDocuments(ctx, entityType, []string{id}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", entityType, err)
	}
	metrics.RecordDocuments(string(entityType), metrics.SourceEvent, 0, 1, 0)
	return nil
}

// union returns the distinct non-empty values of a then b, keeping first occurrence.
func union(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
