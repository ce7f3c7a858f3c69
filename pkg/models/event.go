package models

import (
	"fmt"
	"strings"
	"time"
)

// EventName is a lifecycle event routed to the incremental indexer.
type EventName string

const (
	EventProductCreated  EventName = "product.created"
	EventProductUpdated  EventName = "product.updated"
	EventProductDeleted  EventName = "product.deleted"
	EventCategoryCreated EventName = "category.created"
	EventCategoryUpdated EventName = "category.updated"
	EventCategoryDeleted EventName = "category.deleted"
	EventBrandCreated    EventName = "brand.created"
	EventBrandUpdated    EventName = "brand.updated"
	EventBrandDeleted    EventName = "brand.deleted"

	EventEnrichmentPublished   EventName = "enrichment.published"
	EventEnrichmentUnpublished EventName = "enrichment.unpublished"
)

// Event carries an entity id plus optional relationship hints. Deletion events use
// the hints to refresh dependent counts because the canonical row is already gone.
type Event struct {
	ID               string     `json:"id,omitempty"`
	Name             EventName  `json:"name" validate:"required"`
	EntityType       EntityType `json:"entity_type,omitempty"`
	EntityID         string     `json:"entity_id" validate:"required"`
	CategoryIDs      []string   `json:"category_ids,omitempty"`
	BrandID          *string    `json:"brand_id,omitempty"`
	ParentCategoryID *string    `json:"parent_category_id,omitempty"`
	Source           string     `json:"source,omitempty"`
	OccurredAt       time.Time  `json:"occurred_at,omitempty"`
}

// ResolveEntityType returns the entity type implied by the event name, falling back
// to the explicit EntityType for enrichment events.
func (e Event) ResolveEntityType() (EntityType, error) {
	prefix, _, ok := strings.Cut(string(e.Name), ".")
	if !ok {
		return "", fmt.Errorf("malformed event name %q", e.Name)
	}
	if t := EntityType(prefix); t.Valid() {
		return t, nil
	}
	if e.EntityType.Valid() {
		return e.EntityType, nil
	}
	return "", fmt.Errorf("event %q has no resolvable entity type", e.Name)
}
