// Package searchindex writes documents to and queries a Meilisearch instance.
package searchindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/meilisearch/meilisearch-go"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultTaskTimeout  = 30 * time.Second
	DefaultPollInterval = 100 * time.Millisecond
)

const primaryKey = "id"

type Config struct {
	Host    string
	APIKey  string
	Timeout time.Duration
	// Indexes overrides the index name per entity type.
	Indexes      map[models.EntityType]string
	WaitForTasks bool
	TaskTimeout  time.Duration
	PollInterval time.Duration
	// DisableRetries turns off the SDK's retries on 502, 503 and 504.
	DisableRetries bool
}

type Client struct {
	meili  meilisearch.ServiceManager
	cfg    Config
	logger ectologger.Logger
}

func NewClient(cfg Config, logger ectologger.Logger) *Client {
	if cfg.Indexes == nil {
		cfg.Indexes = map[models.EntityType]string{}
	}
	for _, t := range models.EntityTypes {
		if cfg.Indexes[t] == "" {
			cfg.Indexes[t] = t.DefaultIndex()
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = DefaultTaskTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	opts := []meilisearch.Option{
		meilisearch.WithCustomClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.APIKey != "" {
		opts = append(opts, meilisearch.WithAPIKey(cfg.APIKey))
	}
	if cfg.DisableRetries {
		opts = append(opts, meilisearch.DisableRetries())
	}

	return &Client{
		meili:  meilisearch.New(cfg.Host, opts...),
		cfg:    cfg,
		logger: logger,
	}
}

// IndexName returns the index uid for an entity type.
func (c *Client) IndexName(entityType models.EntityType) (string, error) {
	uid, ok := c.cfg.Indexes[entityType]
	if !ok {
		return "", fmt.Errorf("no search index for entity type %q", entityType)
	}
	return uid, nil
}

func (c *Client) index(entityType models.EntityType) (meilisearch.IndexManager, string, error) {
	uid, err := c.IndexName(entityType)
	if err != nil {
		return nil, "", err
	}
	return c.meili.Index(uid), uid, nil
}

// AddDocuments upserts documents keyed by their id attribute.
func (c *Client) AddDocuments(ctx context.Context, entityType models.EntityType, documents []json.RawMessage) error {
	if len(documents) == 0 {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "searchindex.Client.AddDocuments",
		attribute.String("entity_type", string(entityType)),
		attribute.Int("documents", len(documents)),
	)
	defer span.End()

	index, uid, err := c.index(entityType)
	if err != nil {
		return err
	}

	pk := primaryKey
	task, err := index.AddDocumentsWithContext(ctx, documents, &meilisearch.DocumentOptions{PrimaryKey: &pk})
	if err != nil {
		tracing.RecordError(span, err)
		return fmt.Errorf("failed to add %d documents to %s: %w", len(documents), uid, err)
	}
	return c.wait(ctx, task)
}

// DeleteDocuments removes documents by id. Missing ids are not an error.
func (c *Client) DeleteDocuments(ctx context.Context, entityType models.EntityType, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "searchindex.Client.DeleteDocuments",
		attribute.String("entity_type", string(entityType)),
		attribute.Int("documents", len(ids)),
	)
	defer span.End()

	index, uid, err := c.index(entityType)
	if err != nil {
		return err
	}

	task, err := index.DeleteDocumentsWithContext(ctx, ids, nil)
	if err != nil {
		tracing.RecordError(span, err)
		return fmt.Errorf("failed to delete %d documents from %s: %w", len(ids), uid, err)
	}
	return c.wait(ctx, task)
}

// SearchRequest is the engine-neutral search input. Filter and Sort are omitted
// from the engine request when empty.
type SearchRequest struct {
	Query                string
	Filter               string
	Sort                 []string
	Limit                int
	Offset               int
	AttributesToRetrieve []string
}

type SearchResult struct {
	Hits               []json.RawMessage
	EstimatedTotalHits int
	Limit              int
	Offset             int
	ProcessingTimeMs   int
	Query              string
}

func (c *Client) Search(ctx context.Context, entityType models.EntityType, req SearchRequest) (*SearchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "searchindex.Client.Search",
		attribute.String("entity_type", string(entityType)),
	)
	defer span.End()

	index, uid, err := c.index(entityType)
	if err != nil {
		return nil, err
	}

	request := &meilisearch.SearchRequest{
		Limit:                int64(req.Limit),
		Offset:               int64(req.Offset),
		AttributesToRetrieve: req.AttributesToRetrieve,
		Sort:                 req.Sort,
	}
	if req.Filter != "" {
		request.Filter = req.Filter
	}

	resp, err := index.SearchWithContext(ctx, req.Query, request)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("search on %s failed: %w", uid, err)
	}

	hits := make([]json.RawMessage, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		raw, err := json.Marshal(hit)
		if err != nil {
			return nil, fmt.Errorf("failed to encode hit from %s: %w", uid, err)
		}
		hits = append(hits, raw)
	}

	return &SearchResult{
		Hits:               hits,
		EstimatedTotalHits: int(resp.EstimatedTotalHits),
		Limit:              int(resp.Limit),
		Offset:             int(resp.Offset),
		ProcessingTimeMs:   int(resp.ProcessingTimeMs),
		Query:              resp.Query,
	}, nil
}

// ApplySettings updates the settings of every listed index. The engine creates
// missing indexes on a settings update.
func (c *Client) ApplySettings(ctx context.Context, settings map[models.EntityType]Settings) error {
	ctx, span := tracing.StartSpan(ctx, "searchindex.Client.ApplySettings")
	defer span.End()

	for _, t := range models.EntityTypes {
		s, ok := settings[t]
		if !ok {
			continue
		}
		index, uid, err := c.index(t)
		if err != nil {
			return err
		}

		task, err := index.UpdateSettingsWithContext(ctx, s.meili())
		if err != nil {
			tracing.RecordError(span, err)
			return fmt.Errorf("failed to apply settings to %s: %w", uid, err)
		}
		c.logger.WithContext(ctx).Infof("Applied index settings to %s (task %d)", uid, task.TaskUID)
		if err := c.wait(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

// Health checks engine availability.
func (c *Client) Health(ctx context.Context) error {
	health, err := c.meili.HealthWithContext(ctx)
	if err != nil {
		return err
	}
	if health.Status != "available" {
		return fmt.Errorf("search engine status %q", health.Status)
	}
	return nil
}

var errTaskFailed = errors.New("search task failed")

// wait blocks until the task finishes when task waiting is enabled.
func (c *Client) wait(ctx context.Context, info *meilisearch.TaskInfo) error {
	if !c.cfg.WaitForTasks || info == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.TaskTimeout)
	defer cancel()

	task, err := c.meili.WaitForTaskWithContext(ctx, info.TaskUID, c.cfg.PollInterval)
	if err != nil {
		return fmt.Errorf("failed waiting for task %d: %w", info.TaskUID, err)
	}

	switch task.Status {
	case meilisearch.TaskStatusFailed, meilisearch.TaskStatusCanceled:
		msg := string(task.Status)
		if task.Error.Message != "" {
			msg = task.Error.Message
		}
		return fmt.Errorf("%w: task %d: %s", errTaskFailed, info.TaskUID, msg)
	}
	return nil
}
