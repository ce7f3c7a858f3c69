// Package syncrun persists the ledger of batch sync pages.
package syncrun

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const table = "fern_sync_runs"

const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

var columns = []string{
	"id", "entity_type", "filters", "page_limit", "page_offset", "processed", "indexed",
	"deleted", "failed", "failures", "error", "triggered_by", "started_at", "finished_at",
}

// Repository handles sync run persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new sync run repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Record inserts a run. Re-recording the same id overwrites its counters.
func (r *Repository) Record(ctx context.Context, run *models.SyncRun) error {
	ctx, span := tracing.StartSpan(ctx, "syncrun.Repository.Record")
	defer span.End()

	query, args := recordQuery(run)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to record sync run")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to record sync run: %v", err)
	}
	return nil
}

// List returns the most recent runs, optionally for one entity type.
func (r *Repository) List(ctx context.Context, entityType models.EntityType, limit int) ([]models.SyncRun, error) {
	ctx, span := tracing.StartSpan(ctx, "syncrun.Repository.List")
	defer span.End()

	query, args := listQuery(entityType, limit)
	runs := []models.SyncRun{}
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list sync runs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list sync runs")
	}
	return runs, nil
}

func recordQuery(run *models.SyncRun) (string, []any) {
	ib := database.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(columns...)
	ib.Values(
		run.ID, run.EntityType, run.Filters, run.Limit, run.Offset, run.Processed, run.Indexed,
		run.Deleted, run.Failed, run.Failures, run.Error, run.TriggeredBy, run.StartedAt, run.FinishedAt,
	)
	database.OnConflictUpdate(ib, []string{"id"}, "processed", "indexed", "deleted", "failed", "failures", "error", "finished_at")
	return ib.Build()
}

func listQuery(entityType models.EntityType, limit int) (string, []any) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	if entityType != "" {
		sb.Where(sb.Equal("entity_type", entityType))
	}
	sb.OrderBy("started_at").Desc()
	sb.Limit(limit)
	return sb.Build()
}
