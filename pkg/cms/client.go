// Package cms reads enrichment content from a Strapi instance and turns its
// publish webhooks into indexer events.
package cms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/expressions"
	"github.com/Ramsey-B/fern/pkg/httpclient"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const DefaultForeignKeyField = "medusa_id"

type Config struct {
	// Collections maps each entity type to its Strapi plural api id.
	Collections     map[models.EntityType]string
	ForeignKeyField string
}

// Client implements the enrichment lookup against the Strapi REST API.
type Client struct {
	http      *httpclient.Client
	cfg       Config
	evaluator *expressions.Evaluator
	logger    ectologger.Logger
}

func NewClient(http *httpclient.Client, cfg Config, evaluator *expressions.Evaluator, logger ectologger.Logger) *Client {
	if cfg.ForeignKeyField == "" {
		cfg.ForeignKeyField = DefaultForeignKeyField
	}
	if cfg.Collections == nil {
		cfg.Collections = map[models.EntityType]string{}
	}
	for _, t := range models.EntityTypes {
		if cfg.Collections[t] == "" {
			cfg.Collections[t] = t.DefaultIndex()
		}
	}
	return &Client{
		http:      http,
		cfg:       cfg,
		evaluator: evaluator,
		logger:    logger,
	}
}

// GetEnrichment returns the enrichment keyed by the canonical entity id, or nil when
// the CMS has none. Strapi only returns published entries by default, so drafts read
// as absent.
func (c *Client) GetEnrichment(ctx context.Context, entityType models.EntityType, entityID string) (*models.Enrichment, error) {
	ctx, span := tracing.StartSpan(ctx, "cms.Client.GetEnrichment")
	defer span.End()

	collection, ok := c.cfg.Collections[entityType]
	if !ok {
		return nil, fmt.Errorf("no CMS collection for entity type %q", entityType)
	}

	query := url.Values{}
	query.Set(fmt.Sprintf("filters[%s][$eq]", c.cfg.ForeignKeyField), entityID)
	query.Set("populate", "*")
	query.Set("pagination[pageSize]", "1")

	var body any
	if err := c.http.DoJSON(ctx, http.MethodGet, "/api/"+collection, query, nil, &body); err != nil {
		tracing.RecordError(span, err)
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"entity_type": entityType,
			"entity_id":   entityID,
		}).Error("Failed to fetch enrichment")
		return nil, err
	}

	enrichment, err := c.extract(body, entityType, entityID)
	if err != nil {
		return nil, err
	}
	if enrichment == nil {
		c.logger.WithContext(ctx).Debugf("No enrichment for %s %s", entityType, entityID)
	}
	return enrichment, nil
}
