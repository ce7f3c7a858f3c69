package models

import (
	"time"

	"github.com/Ramsey-B/fern/pkg/database"
)

// EntityType names one of the three indexed commerce entity kinds.
type EntityType string

const (
	EntityTypeProduct  EntityType = "product"
	EntityTypeCategory EntityType = "category"
	EntityTypeBrand    EntityType = "brand"
)

// EntityTypes lists every indexed entity type in sync order.
var EntityTypes = []EntityType{EntityTypeCategory, EntityTypeBrand, EntityTypeProduct}

func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeProduct, EntityTypeCategory, EntityTypeBrand:
		return true
	}
	return false
}

// DefaultIndex is the index name used when no override is configured.
func (t EntityType) DefaultIndex() string {
	switch t {
	case EntityTypeProduct:
		return "products"
	case EntityTypeCategory:
		return "categories"
	case EntityTypeBrand:
		return "brands"
	}
	return ""
}

const ProductStatusPublished = "published"

// Product is the canonical commerce record. Options and CategoryIDs are loaded from
// the join tables after the base row is scanned.
type Product struct {
	ID          string                         `json:"id" db:"id"`
	Handle      string                         `json:"handle" db:"handle"`
	Title       string                         `json:"title" db:"title"`
	Subtitle    *string                        `json:"subtitle,omitempty" db:"subtitle"`
	Description *string                        `json:"description,omitempty" db:"description"`
	Status      string                         `json:"status" db:"status"`
	Thumbnail   *string                        `json:"thumbnail,omitempty" db:"thumbnail"`
	Material    *string                        `json:"material,omitempty" db:"material"`
	Diameter    *string                        `json:"diameter,omitempty" db:"diameter"`
	Price       *float64                       `json:"price,omitempty" db:"price"`
	BrandID     *string                        `json:"brand_id,omitempty" db:"brand_id"`
	Specs       database.JSONB[map[string]any] `json:"specs" db:"specs"`
	Metadata    database.JSONB[map[string]any] `json:"metadata" db:"metadata"`
	CategoryIDs []string                       `json:"category_ids" db:"-"`
	Options     map[string][]string            `json:"options" db:"-"`
	CreatedAt   time.Time                      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time                      `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time                     `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsLive reports whether the product belongs in the index.
func (p *Product) IsLive() bool {
	return p != nil && p.Status == ProductStatusPublished && p.DeletedAt == nil
}

type Category struct {
	ID               string     `json:"id" db:"id"`
	Handle           string     `json:"handle" db:"handle"`
	Name             string     `json:"name" db:"name"`
	Description      *string    `json:"description,omitempty" db:"description"`
	ParentCategoryID *string    `json:"parent_category_id,omitempty" db:"parent_category_id"`
	IsActive         bool       `json:"is_active" db:"is_active"`
	IsInternal       bool       `json:"is_internal" db:"is_internal"`
	Rank             int        `json:"rank" db:"rank"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func (c *Category) IsLive() bool {
	return c != nil && c.IsActive && !c.IsInternal && c.DeletedAt == nil
}

type Brand struct {
	ID        string     `json:"id" db:"id"`
	Handle    string     `json:"handle" db:"handle"`
	Name      string     `json:"name" db:"name"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func (b *Brand) IsLive() bool {
	return b != nil && b.DeletedAt == nil
}

// ListFilters narrows a canonical listing. A nil IncludeDeleted means true.
type ListFilters struct {
	IDs            []string   `json:"ids,omitempty" validate:"omitempty,max=1000,dive,required"`
	Handles        []string   `json:"handles,omitempty" validate:"omitempty,max=1000,dive,required"`
	UpdatedSince   *time.Time `json:"updated_since,omitempty"`
	IncludeDeleted *bool      `json:"include_deleted,omitempty"`
}

func (f ListFilters) WithDeleted() bool {
	return f.IncludeDeleted == nil || *f.IncludeDeleted
}
