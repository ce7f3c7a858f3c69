package models

import "time"

const EnrichmentStatusPublished = "published"

// Enrichment is CMS-owned content keyed by the canonical entity id. Name and Handle
// are denormalized copies kept by the CMS and are never used as identity.
type Enrichment struct {
	ID             string     `json:"id"`
	EntityType     EntityType `json:"entity_type"`
	EntityID       string     `json:"entity_id"`
	Name           string     `json:"name,omitempty"`
	Handle         string     `json:"handle,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Images         []string   `json:"images,omitempty"`
	Logo           *string    `json:"logo,omitempty"`
	Keywords       []string   `json:"keywords,omitempty"`
	SEOTitle       *string    `json:"seo_title,omitempty"`
	SEODescription *string    `json:"seo_description,omitempty"`
	Status         string     `json:"status"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
	LastSyncedAt   *time.Time `json:"last_synced_at,omitempty"`
}

func (e *Enrichment) IsPublished() bool {
	return e != nil && e.Status == EnrichmentStatusPublished
}
