package cms

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/fern/pkg/expressions"
	"github.com/Ramsey-B/fern/pkg/models"
)

const DefaultForeignKeyExpression = "entry.medusa_id"

// Strapi lifecycle webhook event names.
const (
	WebhookEntryCreate    = "entry.create"
	WebhookEntryUpdate    = "entry.update"
	WebhookEntryDelete    = "entry.delete"
	WebhookEntryPublish   = "entry.publish"
	WebhookEntryUnpublish = "entry.unpublish"
)

// ErrIgnoredWebhook marks a well-formed webhook that needs no reindex, such as a
// draft edit or an entry for an unmapped model.
var ErrIgnoredWebhook = errors.New("webhook ignored")

type WebhookPayload struct {
	Event     string         `json:"event"`
	Model     string         `json:"model"`
	UID       string         `json:"uid,omitempty"`
	CreatedAt *time.Time     `json:"createdAt,omitempty"`
	Entry     map[string]any `json:"entry"`
}

// WebhookParser converts Strapi webhooks into enrichment events.
type WebhookParser struct {
	evaluator *expressions.Evaluator
	// models maps a Strapi model name (singular or plural api id) to an entity type.
	models map[string]models.EntityType
	// foreignKeys holds the JMESPath expression that extracts the canonical id, per type.
	foreignKeys map[models.EntityType]string
}

// NewWebhookParser builds a parser. foreignKeyExpression is evaluated against the
// whole payload and applies to every model unless overridden with SetForeignKey.
func NewWebhookParser(evaluator *expressions.Evaluator, collections map[models.EntityType]string, foreignKeyExpression string) (*WebhookParser, error) {
	if foreignKeyExpression == "" {
		foreignKeyExpression = DefaultForeignKeyExpression
	}
	if err := evaluator.Validate(foreignKeyExpression); err != nil {
		return nil, fmt.Errorf("invalid webhook foreign key expression: %w", err)
	}

	p := &WebhookParser{
		evaluator:   evaluator,
		models:      map[string]models.EntityType{},
		foreignKeys: map[models.EntityType]string{},
	}
	for _, t := range models.EntityTypes {
		p.models[string(t)] = t
		p.models[t.DefaultIndex()] = t
		if c := collections[t]; c != "" {
			p.models[c] = t
		}
		p.foreignKeys[t] = foreignKeyExpression
	}
	return p, nil
}

// SetForeignKey overrides the foreign key expression for one entity type.
func (p *WebhookParser) SetForeignKey(entityType models.EntityType, expression string) error {
	if err := p.evaluator.Validate(expression); err != nil {
		return fmt.Errorf("invalid foreign key expression for %s: %w", entityType, err)
	}
	p.foreignKeys[entityType] = expression
	return nil
}

// Parse returns the enrichment event for a webhook body. Malformed bodies are 400
// errors; well-formed bodies that need no reindex return ErrIgnoredWebhook.
func (p *WebhookParser) Parse(body []byte) (models.Event, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.Event{}, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid webhook body: %v", err)
	}
	if payload.Event == "" || payload.Model == "" || payload.Entry == nil {
		return models.Event{}, httperror.NewHTTPError(http.StatusBadRequest, "webhook requires event, model and entry")
	}

	entityType, ok := p.models[strings.ToLower(payload.Model)]
	if !ok {
		return models.Event{}, fmt.Errorf("%w: unmapped model %q", ErrIgnoredWebhook, payload.Model)
	}

	name, ok := eventName(payload)
	if !ok {
		return models.Event{}, fmt.Errorf("%w: %s on %s", ErrIgnoredWebhook, payload.Event, payload.Model)
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.Event{}, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid webhook body: %v", err)
	}
	entityID, err := p.evaluator.EvaluateString(p.foreignKeys[entityType], raw)
	if err != nil {
		return models.Event{}, httperror.WrapError(http.StatusBadRequest, err)
	}
	if entityID == "" {
		return models.Event{}, fmt.Errorf("%w: %s entry has no foreign key", ErrIgnoredWebhook, payload.Model)
	}

	occurredAt := time.Now().UTC()
	if payload.CreatedAt != nil {
		occurredAt = payload.CreatedAt.UTC()
	}

	return models.Event{
		Name:       name,
		EntityType: entityType,
		EntityID:   entityID,
		Source:     "cms",
		OccurredAt: occurredAt,
	}, nil
}

// eventName maps the Strapi event. Create and update only matter for entries that
// are already published; delete degrades the document to canonical-only.
func eventName(payload WebhookPayload) (models.EventName, bool) {
	switch payload.Event {
	case WebhookEntryPublish:
		return models.EventEnrichmentPublished, true
	case WebhookEntryUnpublish, WebhookEntryDelete:
		return models.EventEnrichmentUnpublished, true
	case WebhookEntryCreate, WebhookEntryUpdate:
		if payload.Entry["publishedAt"] != nil || payload.Entry["published_at"] != nil {
			return models.EventEnrichmentPublished, true
		}
	}
	return "", false
}
