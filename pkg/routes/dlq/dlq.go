package dlq

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/redis"
)

const maxListCount = 1000

type Queue interface {
	List(ctx context.Context, count int64) ([]redis.DLQEntry, error)
	Get(ctx context.Context, messageID string) (*redis.DLQEntry, error)
	Delete(ctx context.Context, messageID string) error
	Count(ctx context.Context) (int64, error)
	Replay(ctx context.Context, messageID string, process func(context.Context, models.Event) error) error
}

// ProcessFunc re-runs a failed event.
type ProcessFunc func(ctx context.Context, event models.Event) error

type ListResponse struct {
	Entries []redis.DLQEntry `json:"entries"`
	Total   int64            `json:"total"`
}

type Handler struct {
	queue   Queue
	process ProcessFunc
	logger  ectologger.Logger
}

func NewHandler(queue Queue, process ProcessFunc, logger ectologger.Logger) *Handler {
	return &Handler{
		queue:   queue,
		process: process,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/dlq", h.List)
	g.GET("/dlq/:id", h.Get)
	g.POST("/dlq/:id/replay", h.Replay)
	g.DELETE("/dlq/:id", h.Delete)
}

// List returns the newest dead-lettered events
// GET /api/v1/dlq?count=100
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()

	count := int64(redis.DefaultListCount)
	if raw := c.QueryParam("count"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid count %q", raw)
		}
		count = min(n, maxListCount)
	}

	entries, err := h.queue.List(ctx, count)
	if err != nil {
		return err
	}
	total, err := h.queue.Count(ctx)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []redis.DLQEntry{}
	}

	return c.JSON(http.StatusOK, ListResponse{Entries: entries, Total: total})
}

// Get returns a single entry
// GET /api/v1/dlq/:id
func (h *Handler) Get(c echo.Context) error {
	id := c.Param("id")
	entry, err := h.queue.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if entry == nil {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "DLQ entry not found: %s", id)
	}
	return c.JSON(http.StatusOK, entry)
}

// Replay runs the entry's event through the indexer again and removes it on success
// POST /api/v1/dlq/:id/replay
func (h *Handler) Replay(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	if err := h.queue.Replay(ctx, id, h.process); err != nil {
		return err
	}

	h.logger.WithContext(ctx).WithField("message_id", id).Info("Replayed DLQ entry")
	return c.JSON(http.StatusOK, map[string]string{"status": "replayed", "message_id": id})
}

// Delete discards an entry
// DELETE /api/v1/dlq/:id
func (h *Handler) Delete(c echo.Context) error {
	if err := h.queue.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
