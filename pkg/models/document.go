package models

import "time"

// ProductDocument is the product projection stored in the search index. Option
// values are flattened into option_<key> attributes by MarshalJSON.
type ProductDocument struct {
	ID              string              `json:"id"`
	Handle          string              `json:"handle"`
	Title           string              `json:"title"`
	Subtitle        *string             `json:"subtitle"`
	Description     *string             `json:"description"`
	Thumbnail       *string             `json:"thumbnail"`
	Images          []string            `json:"images"`
	Price           *float64            `json:"price"`
	Category        []string            `json:"category"`
	CategoryIDs     []string            `json:"category_ids"`
	CategoryHandles []string            `json:"category_handles"`
	BrandID         *string             `json:"brand_id"`
	Brand           *string             `json:"brand"`
	Material        *string             `json:"material"`
	Diameter        *string             `json:"diameter"`
	Specs           map[string]any      `json:"specs"`
	Keywords        []string            `json:"keywords"`
	SEOTitle        *string             `json:"seo_title"`
	SEODescription  *string             `json:"seo_description"`
	CreatedAt       int64               `json:"created_at"`
	Options         map[string][]string `json:"-"`
}

type CategoryDocument struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Handle           string   `json:"handle"`
	ParentCategoryID *string  `json:"parent_category_id"`
	HierarchyPath    []string `json:"hierarchy_path"`
	HierarchyHandles []string `json:"hierarchy_handles"`
	ProductCount     int      `json:"product_count"`
	Rank             int      `json:"rank"`
	Description      *string  `json:"description"`
	Images           []string `json:"images"`
	Keywords         []string `json:"keywords"`
}

type BrandDocument struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Handle       string   `json:"handle"`
	Description  *string  `json:"description"`
	BrandLogo    *string  `json:"brand_logo"`
	Images       []string `json:"images"`
	Keywords     []string `json:"keywords"`
	ProductCount int      `json:"product_count"`
}

// UnixMillis is the created_at encoding used for sortable timestamps.
func UnixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}
