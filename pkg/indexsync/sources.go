package indexsync

import (
	"context"
	"encoding/json"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Commerce is the read-only canonical data source. Get* return (nil, nil) when the
// entity does not exist.
type Commerce interface {
	ListProducts(ctx context.Context, filters models.ListFilters, limit, offset int) ([]models.Product, error)
	ListCategories(ctx context.Context, filters models.ListFilters, limit, offset int) ([]models.Category, error)
	ListBrands(ctx context.Context, filters models.ListFilters, limit, offset int) ([]models.Brand, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	GetBrand(ctx context.Context, id string) (*models.Brand, error)
	ListAllCategories(ctx context.Context) ([]models.Category, error)
	CountProductsByCategory(ctx context.Context) (map[string]int, error)
	CountProductsByBrand(ctx context.Context, brandIDs []string) (map[string]int, error)
	GetBrandsByIDs(ctx context.Context, ids []string) ([]models.Brand, error)
}

// Enrichments looks up CMS content by canonical id. A missing record is (nil, nil).
type Enrichments interface {
	GetEnrichment(ctx context.Context, entityType models.EntityType, entityID string) (*models.Enrichment, error)
}

// Index is the search index write side. Documents are pre-encoded JSON objects keyed
// by their id attribute.
type Index interface {
	AddDocuments(ctx context.Context, entityType models.EntityType, documents []json.RawMessage) error
	DeleteDocuments(ctx context.Context, entityType models.EntityType, ids []string) error
}

// RunRecorder persists one sync page to the run ledger.
type RunRecorder interface {
	Record(ctx context.Context, run *models.SyncRun) error
}
