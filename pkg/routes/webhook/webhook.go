// Package webhook receives CMS publish webhooks and manually injected lifecycle
// events and hands them to the incremental indexer.
package webhook

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/cms"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/utils"
)

const (
	HeaderWebhookSecret = "X-Webhook-Secret"
	maxBodyBytes        = 1 << 20
)

type Parser interface {
	Parse(body []byte) (models.Event, error)
}

// Publisher forwards events to the event stream.
type Publisher interface {
	PublishEvent(ctx context.Context, event models.Event) error
}

// Dispatcher runs events in process.
type Dispatcher interface {
	Supports(name models.EventName) bool
	HandleAsync(ctx context.Context, event models.Event)
}

type Accepted struct {
	Status string        `json:"status"`
	Event  *models.Event `json:"event,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

type Handler struct {
	parser     Parser
	publisher  Publisher
	dispatcher Dispatcher
	secret     string
	logger     ectologger.Logger
}

// NewHandler creates the webhook handler. With a nil publisher events are dispatched
// in process; otherwise they are published and only dispatched locally when the
// publish fails. An empty secret disables the secret check.
func NewHandler(parser Parser, publisher Publisher, dispatcher Dispatcher, secret string, logger ectologger.Logger) *Handler {
	return &Handler{
		parser:     parser,
		publisher:  publisher,
		dispatcher: dispatcher,
		secret:     secret,
		logger:     logger,
	}
}

// RegisterRoutes registers the public CMS webhook.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	if h.secret == "" {
		h.logger.Warn("CMS webhook secret is not set, /webhooks/cms accepts unauthenticated requests")
	}
	g.POST("/webhooks/cms", h.CMS)
}

// RegisterAdminRoutes registers manual event injection.
func (h *Handler) RegisterAdminRoutes(g *echo.Group) {
	g.POST("/events", h.Inject)
}

// CMS accepts a Strapi webhook
// POST /api/v1/webhooks/cms
func (h *Handler) CMS(c echo.Context) error {
	ctx := c.Request().Context()

	if !h.authorized(c.Request()) {
		return httperror.NewHTTPError(http.StatusUnauthorized, "invalid webhook secret")
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		return httperror.WrapError(http.StatusBadRequest, err)
	}

	event, err := h.parser.Parse(body)
	if errors.Is(err, cms.ErrIgnoredWebhook) {
		h.logger.WithContext(ctx).WithError(err).Debug("Ignoring CMS webhook")
		return c.JSON(http.StatusAccepted, Accepted{Status: "ignored", Reason: err.Error()})
	}
	if err != nil {
		return err
	}

	h.forward(ctx, event)
	return c.JSON(http.StatusAccepted, Accepted{Status: "accepted", Event: &event})
}

// Inject queues a lifecycle event as if it had arrived on the event stream
// POST /api/v1/events
func (h *Handler) Inject(c echo.Context) error {
	ctx := c.Request().Context()

	event, err := utils.BindRequest[models.Event](c)
	if err != nil {
		return err
	}
	if !h.dispatcher.Supports(event.Name) {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "unsupported event %q", event.Name)
	}
	if event.Source == "" {
		event.Source = "api"
	}

	h.forward(ctx, event)
	return c.JSON(http.StatusAccepted, Accepted{Status: "accepted", Event: &event})
}

func (h *Handler) forward(ctx context.Context, event models.Event) {
	log := h.logger.WithContext(ctx).WithFields(map[string]any{
		"event":     event.Name,
		"entity_id": event.EntityID,
	})

	if h.publisher != nil {
		err := h.publisher.PublishEvent(ctx, event)
		if err == nil {
			log.Debug("Published event")
			return
		}
		log.WithError(err).Warn("Failed to publish event, indexing in process")
	}

	h.dispatcher.HandleAsync(ctx, event)
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return true
	}
	provided := r.Header.Get(HeaderWebhookSecret)
	if provided == "" {
		provided = strings.TrimPrefix(r.Header.Get(echo.HeaderAuthorization), "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) == 1
}
