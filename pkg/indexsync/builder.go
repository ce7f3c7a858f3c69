package indexsync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/fern/pkg/enrichment"
	"github.com/Ramsey-B/fern/pkg/hierarchy"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Snapshot is the shared, read-only state documents of one page are computed from.
type Snapshot struct {
	Tree           *hierarchy.Tree
	CategoryCounts map[string]int
	BrandCounts    map[string]int
	Brands         map[string]*models.Brand
}

// Builder turns canonical entities into encoded index documents. It is shared by the
// batch engine and the incremental indexer so both produce identical documents.
type Builder struct {
	commerce    Commerce
	enrichments Enrichments
	merger      *enrichment.Merger
}

func NewBuilder(commerce Commerce, enrichments Enrichments) *Builder {
	return &Builder{
		commerce:    commerce,
		enrichments: enrichments,
		merger:      enrichment.NewMerger(),
	}
}

// CategorySnapshot loads every category and the direct product count per category.
func (b *Builder) CategorySnapshot(ctx context.Context) (*Snapshot, error) {
	all, err := b.commerce.ListAllCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	counts, err := b.commerce.CountProductsByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count products by category: %w", err)
	}
	return &Snapshot{Tree: hierarchy.NewTree(all), CategoryCounts: counts}, nil
}

// BrandSnapshot loads product counts for the given brands.
func (b *Builder) BrandSnapshot(ctx context.Context, brandIDs []string) (*Snapshot, error) {
	counts := map[string]int{}
	if len(brandIDs) > 0 {
		var err error
		counts, err = b.commerce.CountProductsByBrand(ctx, brandIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to count products by brand: %w", err)
		}
	}
	return &Snapshot{BrandCounts: counts}, nil
}

// ProductSnapshot loads the categories and brands the given products reference.
func (b *Builder) ProductSnapshot(ctx context.Context, products []models.Product) (*Snapshot, error) {
	all, err := b.commerce.ListAllCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	var brandIDs []string
	seen := map[string]bool{}
	for _, p := range products {
		if p.BrandID != nil && *p.BrandID != "" && !seen[*p.BrandID] {
			seen[*p.BrandID] = true
			brandIDs = append(brandIDs, *p.BrandID)
		}
	}

	brands := map[string]*models.Brand{}
	if len(brandIDs) > 0 {
		rows, err := b.commerce.GetBrandsByIDs(ctx, brandIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load brands: %w", err)
		}
		for i := range rows {
			brands[rows[i].ID] = &rows[i]
		}
	}

	return &Snapshot{Tree: hierarchy.NewTree(all), Brands: brands}, nil
}

// Enrichment fetches the CMS record unless skip is set, which forces the
// canonical-only document used for unpublish.
func (b *Builder) Enrichment(ctx context.Context, entityType models.EntityType, id string, skip bool) (*models.Enrichment, error) {
	if skip || b.enrichments == nil {
		return nil, nil
	}
	enr, err := b.enrichments.GetEnrichment(ctx, entityType, id)
	if err != nil {
		return nil, fmt.Errorf("enrichment lookup failed: %w", err)
	}
	return enr, nil
}

func (b *Builder) Product(ctx context.Context, p models.Product, snap *Snapshot, skipEnrichment bool) (json.RawMessage, error) {
	ctx, span := tracing.StartSpan(ctx, "indexsync.Builder.Product")
	defer span.End()

	enr, err := b.Enrichment(ctx, models.EntityTypeProduct, p.ID, skipEnrichment)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	refs := enrichment.ProductRefs{}
	if snap.Tree != nil {
		found := ectolinq.Filter(p.CategoryIDs, func(id string) bool {
			return snap.Tree.Get(id) != nil
		})
		refs.Categories = ectolinq.Map(found, func(id string) models.Category {
			return *snap.Tree.Get(id)
		})
	}
	if p.BrandID != nil {
		refs.Brand = snap.Brands[*p.BrandID]
	}

	return encode(b.merger.Product(p, refs, enr))
}

func (b *Builder) Category(ctx context.Context, c models.Category, snap *Snapshot, skipEnrichment bool) (json.RawMessage, error) {
	ctx, span := tracing.StartSpan(ctx, "indexsync.Builder.Category")
	defer span.End()

	enr, err := b.Enrichment(ctx, models.EntityTypeCategory, c.ID, skipEnrichment)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	refs := enrichment.CategoryRefs{
		Path:         snap.Tree.Path(c),
		ProductCount: snap.Tree.AggregatedCount(c.ID, snap.CategoryCounts),
	}
	return encode(b.merger.Category(c, refs, enr))
}

func (b *Builder) Brand(ctx context.Context, brand models.Brand, snap *Snapshot, skipEnrichment bool) (json.RawMessage, error) {
	ctx, span := tracing.StartSpan(ctx, "indexsync.Builder.Brand")
	defer span.End()

	enr, err := b.Enrichment(ctx, models.EntityTypeBrand, brand.ID, skipEnrichment)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	count := hierarchy.BrandProductCount(brand.ID, snap.BrandCounts)
	return encode(b.merger.Brand(brand, count, enr))
}

func encode(doc any) (json.RawMessage, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return raw, nil
}
