package cms

import (
	"fmt"
	"strings"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Strapi v4 nests fields under "attributes" and media under "data"; v5 is flat.
// Every expression lists the v4 form first.
const (
	exprRecord         = "data[0].attributes || data[0]"
	exprID             = "data[0].documentId || data[0].id"
	exprName           = "name || title"
	exprHandle         = "handle || slug"
	exprDescription    = "description || body"
	exprImages         = "images.data[].attributes.url || images[].url"
	exprLogo           = "logo.data.attributes.url || logo.url"
	exprKeywords       = "keywords"
	exprSEOTitle       = "seo.metaTitle || seo_title || meta_title"
	exprSEODescription = "seo.metaDescription || seo_description || meta_description"
	exprPublishedAt    = "publishedAt || published_at"
	exprUpdatedAt      = "updatedAt || updated_at"
	exprLastSyncedAt   = "last_synced_at || lastSyncedAt"
)

func (c *Client) extract(body any, entityType models.EntityType, entityID string) (*models.Enrichment, error) {
	record, err := c.evaluator.Evaluate(exprRecord, body)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	if _, ok := record.(map[string]any); !ok {
		return nil, fmt.Errorf("unexpected CMS record shape %T", record)
	}

	id, err := c.evaluator.EvaluateString(exprID, body)
	if err != nil {
		return nil, err
	}

	enrichment := &models.Enrichment{
		ID:         id,
		EntityType: entityType,
		EntityID:   entityID,
		Status:     "draft",
	}

	str := func(expr string) (string, error) { return c.evaluator.EvaluateString(expr, record) }

	if enrichment.Name, err = str(exprName); err != nil {
		return nil, err
	}
	if enrichment.Handle, err = str(exprHandle); err != nil {
		return nil, err
	}

	optional := []struct {
		expr string
		dest **string
	}{
		{exprDescription, &enrichment.Description},
		{exprSEOTitle, &enrichment.SEOTitle},
		{exprSEODescription, &enrichment.SEODescription},
	}
	for _, o := range optional {
		v, err := str(o.expr)
		if err != nil {
			return nil, err
		}
		if v != "" {
			*o.dest = &v
		}
	}

	logo, err := str(exprLogo)
	if err != nil {
		return nil, err
	}
	if logo != "" {
		logo = c.mediaURL(logo)
		enrichment.Logo = &logo
	}

	images, err := c.evaluator.EvaluateStrings(exprImages, record)
	if err != nil {
		return nil, err
	}
	for _, image := range images {
		enrichment.Images = append(enrichment.Images, c.mediaURL(image))
	}

	if enrichment.Keywords, err = c.evaluator.EvaluateStrings(exprKeywords, record); err != nil {
		return nil, err
	}

	publishedAt, err := str(exprPublishedAt)
	if err != nil {
		return nil, err
	}
	if publishedAt != "" {
		enrichment.Status = models.EnrichmentStatusPublished
	}

	updatedAt, err := str(exprUpdatedAt)
	if err != nil {
		return nil, err
	}
	enrichment.UpdatedAt = parseTime(updatedAt)

	lastSynced, err := str(exprLastSyncedAt)
	if err != nil {
		return nil, err
	}
	enrichment.LastSyncedAt = parseTime(lastSynced)

	return enrichment, nil
}

// mediaURL makes upload paths served by the CMS itself absolute.
func (c *Client) mediaURL(u string) string {
	if strings.HasPrefix(u, "/") {
		return c.http.BaseURL() + u
	}
	return u
}

func parseTime(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &t
}
