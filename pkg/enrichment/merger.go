// Package enrichment merges canonical commerce entities with CMS enrichment into
// index documents. Identity fields always come from the canonical record; content
// fields come from a published enrichment or are left nil.
package enrichment

import (
	"strings"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/fern/pkg/hierarchy"
	"github.com/Ramsey-B/fern/pkg/models"
)

// MetadataSpecsKey is the product metadata key holding supplementary specs.
const MetadataSpecsKey = "specs"

// provenanceKeys are import bookkeeping fields that never reach a document.
var provenanceKeys = map[string]bool{
	"external_id":     true,
	"source":          true,
	"source_id":       true,
	"source_url":      true,
	"vendor":          true,
	"vendor_id":       true,
	"vendor_sku":      true,
	"migrated_at":     true,
	"migration_batch": true,
}

// ProductRefs are the entities a product document denormalizes.
type ProductRefs struct {
	Categories []models.Category
	Brand      *models.Brand
}

// CategoryRefs are the computed values a category document carries.
type CategoryRefs struct {
	Path         hierarchy.Path
	ProductCount int
}

type Merger struct{}

func NewMerger() *Merger {
	return &Merger{}
}

// Product builds the product document. Only live categories and a live brand are
// denormalized.
func (m *Merger) Product(p models.Product, refs ProductRefs, enr *models.Enrichment) models.ProductDocument {
	categories := ectolinq.Filter(refs.Categories, func(c models.Category) bool {
		return c.IsLive()
	})

	doc := models.ProductDocument{
		ID:       p.ID,
		Handle:   p.Handle,
		Title:    p.Title,
		Subtitle: p.Subtitle,
		Price:    p.Price,
		Category: ectolinq.Map(categories, func(c models.Category) string {
			return c.Name
		}),
		CategoryIDs: ectolinq.Map(categories, func(c models.Category) string {
			return c.ID
		}),
		CategoryHandles: ectolinq.Map(categories, func(c models.Category) string {
			return c.Handle
		}),
		Material:  nonBlank(p.Material),
		Diameter:  nonBlank(p.Diameter),
		Thumbnail: nonBlank(p.Thumbnail),
		Specs:     mergeSpecs(p.Specs.GetValue(), p.Metadata.GetValue()),
		CreatedAt: models.UnixMillis(p.CreatedAt),
		Options:   copyOptions(p.Options),
	}

	if p.BrandID != nil && refs.Brand != nil && refs.Brand.ID == *p.BrandID && refs.Brand.IsLive() {
		doc.BrandID = &refs.Brand.ID
		doc.Brand = &refs.Brand.Name
	}

	if !enr.IsPublished() {
		return doc
	}

	doc.Description = nonBlank(enr.Description)
	doc.Images = copyStrings(enr.Images)
	doc.Keywords = copyStrings(enr.Keywords)
	doc.SEOTitle = nonBlank(enr.SEOTitle)
	doc.SEODescription = nonBlank(enr.SEODescription)
	if doc.Thumbnail == nil && len(doc.Images) > 0 {
		doc.Thumbnail = &doc.Images[0]
	}
	return doc
}

func (m *Merger) Category(c models.Category, refs CategoryRefs, enr *models.Enrichment) models.CategoryDocument {
	doc := models.CategoryDocument{
		ID:               c.ID,
		Name:             c.Name,
		Handle:           c.Handle,
		ParentCategoryID: nonBlank(c.ParentCategoryID),
		HierarchyPath:    copyStrings(refs.Path.Names),
		HierarchyHandles: copyStrings(refs.Path.Handles),
		ProductCount:     refs.ProductCount,
		Rank:             c.Rank,
	}
	if doc.HierarchyPath == nil {
		doc.HierarchyPath = []string{c.Name}
		doc.HierarchyHandles = []string{c.Handle}
	}

	if !enr.IsPublished() {
		return doc
	}

	doc.Description = nonBlank(enr.Description)
	doc.Images = copyStrings(enr.Images)
	doc.Keywords = copyStrings(enr.Keywords)
	return doc
}

func (m *Merger) Brand(b models.Brand, productCount int, enr *models.Enrichment) models.BrandDocument {
	doc := models.BrandDocument{
		ID:           b.ID,
		Name:         b.Name,
		Handle:       b.Handle,
		ProductCount: productCount,
	}

	if !enr.IsPublished() {
		return doc
	}

	doc.Description = nonBlank(enr.Description)
	doc.BrandLogo = nonBlank(enr.Logo)
	doc.Images = copyStrings(enr.Images)
	doc.Keywords = copyStrings(enr.Keywords)
	if doc.BrandLogo == nil && len(doc.Images) > 0 {
		doc.BrandLogo = &doc.Images[0]
	}
	return doc
}

// mergeSpecs overlays canonical specs on metadata specs; canonical wins on clashes.
func mergeSpecs(canonical map[string]any, metadata map[string]any) map[string]any {
	out := map[string]any{}
	if extra, ok := metadata[MetadataSpecsKey].(map[string]any); ok {
		for k, v := range extra {
			out[k] = v
		}
	}
	for k, v := range canonical {
		out[k] = v
	}
	for k := range out {
		if isProvenanceKey(k) {
			delete(out, k)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isProvenanceKey(key string) bool {
	key = strings.ToLower(key)
	return provenanceKeys[key] || strings.HasPrefix(key, "import_") || strings.HasPrefix(key, "_")
}

func nonBlank(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := *s
	return &v
}

func copyStrings(in []string) []string {
	var out []string
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func copyOptions(in map[string][]string) map[string][]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, v := range in {
		if values := copyStrings(v); len(values) > 0 {
			out[k] = values
		}
	}
	return out
}
