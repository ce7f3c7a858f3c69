// Package indexsync projects pages of canonical commerce entities into the search
// index. Callers page through an entity set by advancing Offset by Limit until a page
// reports fewer than Limit processed rows.
package indexsync

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	appctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	DefaultLimit       = 50
	MaxLimit           = 1000
	DefaultConcurrency = 8
)

type Options struct {
	DefaultLimit int
	MaxLimit     int
	Concurrency  int
}

type Engine struct {
	commerce Commerce
	index    Index
	builder  *Builder
	runs     RunRecorder
	logger   ectologger.Logger
	opts     Options
}

// NewEngine creates a sync engine. runs may be nil to skip the run ledger.
func NewEngine(commerce Commerce, index Index, builder *Builder, runs RunRecorder, logger ectologger.Logger, opts Options) *Engine {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = MaxLimit
	}
	if opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = opts.MaxLimit
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Engine{
		commerce: commerce,
		index:    index,
		builder:  builder,
		runs:     runs,
		logger:   logger,
		opts:     opts,
	}
}

// built is the per-entity outcome of one page, kept in listing order.
type built struct {
	id   string
	live bool
	doc  json.RawMessage
	err  error
}

// Sync processes one page. Listing, upsert and delete failures abort the page with a
// 502; per-entity build failures are reported in the result.
func (e *Engine) Sync(ctx context.Context, entityType models.EntityType, req models.SyncRequest) (*models.SyncResult, error) {
	ctx, span := tracing.StartSpan(ctx, "indexsync.Engine.Sync", attribute.String("entity_type", string(entityType)))
	defer span.End()

	if !entityType.Valid() {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown entity type %q", entityType)
	}
	if req.Offset < 0 || req.Limit < 0 {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "limit and offset must not be negative")
	}
	limit := req.Limit
	if limit == 0 {
		limit = e.opts.DefaultLimit
	}
	if limit > e.opts.MaxLimit {
		limit = e.opts.MaxLimit
	}

	started := time.Now().UTC()
	result := &models.SyncResult{EntityType: entityType, Limit: limit, Offset: req.Offset}
	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"entity_type": entityType,
		"limit":       limit,
		"offset":      req.Offset,
	})

	var items []built
	var err error
	switch entityType {
	case models.EntityTypeProduct:
		items, err = e.buildProducts(ctx, req.Filters, limit, req.Offset)
	case models.EntityTypeCategory:
		items, err = e.buildCategories(ctx, req.Filters, limit, req.Offset)
	case models.EntityTypeBrand:
		items, err = e.buildBrands(ctx, req.Filters, limit, req.Offset)
	}
	if err == nil {
		err = e.apply(ctx, entityType, items, result)
	}

	e.finish(ctx, entityType, req, result, started, err)
	if err != nil {
		tracing.RecordError(span, err)
		log.WithError(err).Error("Sync page failed")
		return nil, httperror.NewHTTPErrorf(http.StatusBadGateway, "%s sync failed: %s", entityType, err.Error())
	}

	log.WithFields(map[string]any{
		"processed": result.Processed,
		"indexed":   result.Indexed,
		"deleted":   result.Deleted,
		"failed":    result.Failed,
	}).Info("Sync page completed")
	return result, nil
}

// apply writes the built documents and deletions. Nothing is counted as indexed unless
// the bulk upsert succeeded.
func (e *Engine) apply(ctx context.Context, entityType models.EntityType, items []built, result *models.SyncResult) error {
	result.Processed = len(items)

	var docs []json.RawMessage
	var deletions []string
	for _, item := range items {
		switch {
		case !item.live:
			deletions = append(deletions, item.id)
		case item.err != nil:
			result.Failures = append(result.Failures, models.SyncFailure{EntityID: item.id, Error: item.err.Error()})
			e.logger.WithContext(ctx).WithError(item.err).WithField("entity_id", item.id).Warn("Failed to build document")
		default:
			docs = append(docs, item.doc)
		}
	}
	result.Failed = len(result.Failures)

	if len(docs) > 0 {
		if err := e.index.AddDocuments(ctx, entityType, docs); err != nil {
			return err
		}
		result.Indexed = len(docs)
	}
	if len(deletions) > 0 {
		if err := e.index.DeleteDocuments(ctx, entityType, deletions); err != nil {
			return err
		}
		result.Deleted = len(deletions)
	}
	return nil
}

func (e *Engine) buildProducts(ctx context.Context, filters models.ListFilters, limit, offset int) ([]built, error) {
	rows, err := e.commerce.ListProducts(ctx, filters, limit, offset)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	live := make([]models.Product, 0, len(rows))
	for i := range rows {
		if rows[i].IsLive() {
			live = append(live, rows[i])
		}
	}
	snap, err := e.builder.ProductSnapshot(ctx, live)
	if err != nil {
		return nil, err
	}
	return e.buildAll(ctx, len(rows), func(i int) (string, bool) {
		return rows[i].ID, rows[i].IsLive()
	}, func(ctx context.Context, i int) (json.RawMessage, error) {
		return e.builder.Product(ctx, rows[i], snap, false)
	})
}

func (e *Engine) buildCategories(ctx context.Context, filters models.ListFilters, limit, offset int) ([]built, error) {
	rows, err := e.commerce.ListCategories(ctx, filters, limit, offset)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	snap, err := e.builder.CategorySnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return e.buildAll(ctx, len(rows), func(i int) (string, bool) {
		return rows[i].ID, rows[i].IsLive()
	}, func(ctx context.Context, i int) (json.RawMessage, error) {
		return e.builder.Category(ctx, rows[i], snap, false)
	})
}

func (e *Engine) buildBrands(ctx context.Context, filters models.ListFilters, limit, offset int) ([]built, error) {
	rows, err := e.commerce.ListBrands(ctx, filters, limit, offset)
	if err != nil {
		return nil, err
	}
	var ids []string
	for i := range rows {
		if rows[i].IsLive() {
			ids = append(ids, rows[i].ID)
		}
	}
	snap, err := e.builder.BrandSnapshot(ctx, ids)
	if err != nil {
		return nil, err
	}
	return e.buildAll(ctx, len(rows), func(i int) (string, bool) {
		return rows[i].ID, rows[i].IsLive()
	}, func(ctx context.Context, i int) (json.RawMessage, error) {
		return e.builder.Brand(ctx, rows[i], snap, false)
	})
}

// buildAll builds live entities concurrently. Build errors are kept per slot and never
// cancel siblings; only context cancellation aborts the page.
func (e *Engine) buildAll(
	ctx context.Context,
	n int,
	identify func(i int) (string, bool),
	build func(ctx context.Context, i int) (json.RawMessage, error),
) ([]built, error) {
	items := make([]built, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	for i := 0; i < n; i++ {
		id, live := identify(i)
		items[i] = built{id: id, live: live}
		if !live {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i].doc, items[i].err = build(gctx, i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func (e *Engine) finish(ctx context.Context, entityType models.EntityType, req models.SyncRequest, result *models.SyncResult, started time.Time, syncErr error) {
	status := "success"
	switch {
	case syncErr != nil:
		status = "error"
	case result.Failed > 0:
		status = "partial"
	}
	metrics.SyncPagesTotal.WithLabelValues(string(entityType), status).Inc()
	metrics.SyncPageDuration.WithLabelValues(string(entityType)).Observe(time.Since(started).Seconds())
	if syncErr == nil {
		metrics.RecordDocuments(string(entityType), metrics.SourceBatch, result.Indexed, result.Deleted, result.Failed)
	}

	if e.runs == nil {
		return
	}

	finished := time.Now().UTC()
	failures := result.Failures
	if failures == nil {
		failures = []models.SyncFailure{}
	}
	run := &models.SyncRun{
		ID:         uuid.New().String(),
		EntityType: entityType,
		Filters:    database.JSONB[models.ListFilters]{Data: req.Filters},
		Limit:      result.Limit,
		Offset:     result.Offset,
		Processed:  result.Processed,
		Indexed:    result.Indexed,
		Deleted:    result.Deleted,
		Failed:     result.Failed,
		Failures:   database.JSONB[[]models.SyncFailure]{Data: failures},
		StartedAt:  started,
		FinishedAt: &finished,
	}
	if syncErr != nil {
		msg := syncErr.Error()
		run.Error = &msg
	}
	if user := appctx.GetUserID(ctx); user != "" {
		run.TriggeredBy = &user
	}

	// the ledger is best effort and must not fail the page
	if err := e.runs.Record(ctx, run); err != nil {
		e.logger.WithContext(ctx).WithError(err).Warn("Failed to record sync run")
	}
}
