// Package syncapi exposes the batch sync engine and its run ledger over HTTP.
package syncapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/utils"
)

type Syncer interface {
	Sync(ctx context.Context, entityType models.EntityType, req models.SyncRequest) (*models.SyncResult, error)
}

type RunLister interface {
	List(ctx context.Context, entityType models.EntityType, limit int) ([]models.SyncRun, error)
}

type Handler struct {
	engine Syncer
	runs   RunLister
	logger ectologger.Logger
}

// NewHandler creates the sync handler. runs may be nil when the ledger is disabled.
func NewHandler(engine Syncer, runs RunLister, logger ectologger.Logger) *Handler {
	return &Handler{
		engine: engine,
		runs:   runs,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	for _, t := range models.EntityTypes {
		g.POST("/sync-"+t.DefaultIndex(), h.sync(t))
	}
	g.GET("/sync-runs", h.ListRuns)
}

// POST /api/v1/sync-{products,categories,brands}
func (h *Handler) sync(entityType models.EntityType) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		req, err := utils.BindRequest[models.SyncRequest](c)
		if err != nil {
			return err
		}

		result, err := h.engine.Sync(ctx, entityType, req)
		if err != nil {
			h.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"entity_type": entityType,
				"offset":      req.Offset,
			}).Error("Sync page failed")
			return err
		}

		return c.JSON(http.StatusOK, result)
	}
}

// ListRuns returns recent ledger rows
// GET /api/v1/sync-runs?entity_type=&limit=
func (h *Handler) ListRuns(c echo.Context) error {
	ctx := c.Request().Context()

	if h.runs == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "sync run ledger is not enabled")
	}

	entityType := models.EntityType(c.QueryParam("entity_type"))
	if entityType != "" && !entityType.Valid() {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown entity type %q", entityType)
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = parsed
	}

	runs, err := h.runs.List(ctx, entityType, limit)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list sync runs")
		return err
	}

	return c.JSON(http.StatusOK, runs)
}
