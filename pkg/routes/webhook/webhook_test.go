package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/mocks"
	"github.com/Ramsey-B/fern/pkg/cms"
	"github.com/Ramsey-B/fern/pkg/expressions"
	"github.com/Ramsey-B/fern/pkg/models"
)

type fakePublisher struct {
	events []models.Event
	err    error
}

func (p *fakePublisher) PublishEvent(_ context.Context, event models.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

type fakeDispatcher struct {
	mu     sync.Mutex
	events []models.Event
}

func (d *fakeDispatcher) Supports(name models.EventName) bool {
	return name != "order.placed"
}

func (d *fakeDispatcher) HandleAsync(_ context.Context, event models.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func newParser(t *testing.T) *cms.WebhookParser {
	t.Helper()
	p, err := cms.NewWebhookParser(expressions.NewEvaluator(), nil, "")
	require.NoError(t, err)
	return p
}

var testLogger = ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

const publishBody = `{"event":"entry.publish","model":"product","entry":{"medusa_id":"prod_1"}}`

func TestCMS_DispatchesInProcess(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	h := NewHandler(newParser(t), nil, dispatcher, "", testLogger)

	c, rec := mocks.NewEchoContext(echo.New(), http.MethodPost, "/api/v1/webhooks/cms", strings.NewReader(publishBody))
	require.NoError(t, h.CMS(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, models.EventEnrichmentPublished, dispatcher.events[0].Name)
	assert.Equal(t, "prod_1", dispatcher.events[0].EntityID)

	var body Accepted
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "accepted", body.Status)
}

func TestCMS_PublishesWhenProducerConfigured(t *testing.T) {
	publisher := &fakePublisher{}
	dispatcher := &fakeDispatcher{}
	h := NewHandler(newParser(t), publisher, dispatcher, "", testLogger)

	c, _ := mocks.NewEchoContext(echo.New(), http.MethodPost, "/api/v1/webhooks/cms", strings.NewReader(publishBody))
	require.NoError(t, h.CMS(c))

	require.Len(t, publisher.events, 1)
	assert.Empty(t, dispatcher.events)
}

func TestCMS_FallsBackWhenPublishFails(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	h := NewHandler(newParser(t), &fakePublisher{err: errors.New("broker down")}, dispatcher, "", testLogger)

	c, rec := mocks.NewEchoContext(echo.New(), http.MethodPost, "/api/v1/webhooks/cms", strings.NewReader(publishBody))
	require.NoError(t, h.CMS(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, dispatcher.events, 1)
}

func TestCMS_IgnoredWebhookIsAccepted(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	h := NewHandler(newParser(t), nil, dispatcher, "", testLogger)

	body := `{"event":"entry.create","model":"product","entry":{"medusa_id":"prod_1"}}`
	c, rec := mocks.NewEchoContext(echo.New(), http.MethodPost, "/api/v1/webhooks/cms", strings.NewReader(body))
	require.NoError(t, h.CMS(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, dispatcher.events)

	var resp Accepted
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ignored", resp.Status)
}

func TestCMS_MalformedBody(t *testing.T) {
	h := NewHandler(newParser(t), nil, &fakeDispatcher{}, "", testLogger)

	c, _ := mocks.NewEchoContext(echo.New(), http.MethodPost, "/api/v1/webhooks/cms", strings.NewReader(`{"event":`))
	err := h.CMS(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}

func TestCMS_Secret(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	h := NewHandler(newParser(t), nil, dispatcher, "s3cret", testLogger)
	e := echo.New()

	c, _ := mocks.NewEchoContext(e, http.MethodPost, "/api/v1/webhooks/cms", strings.NewReader(publishBody))
	err := h.CMS(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, httperror.GetStatusCode(err))

	c, _ = mocks.NewEchoContext(e, http.MethodPost, "/api/v1/webhooks/cms", strings.NewReader(publishBody))
	c.Request().Header.Set(HeaderWebhookSecret, "s3cret")
	require.NoError(t, h.CMS(c))

	c, _ = mocks.NewEchoContext(e, http.MethodPost, "/api/v1/webhooks/cms", strings.NewReader(publishBody))
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer s3cret")
	require.NoError(t, h.CMS(c))

	assert.Len(t, dispatcher.events, 2)
}

func TestInject(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	h := NewHandler(newParser(t), nil, dispatcher, "", testLogger)
	e := echo.New()

	c, rec := mocks.NewEchoContext(e, http.MethodPost, "/api/v1/events", strings.NewReader(`{"name":"category.updated","entity_id":"pcat_1"}`))
	require.NoError(t, h.Inject(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, "api", dispatcher.events[0].Source)

	c, _ = mocks.NewEchoContext(e, http.MethodPost, "/api/v1/events", strings.NewReader(`{"name":"order.placed","entity_id":"o1"}`))
	err := h.Inject(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))

	c, _ = mocks.NewEchoContext(e, http.MethodPost, "/api/v1/events", strings.NewReader(`{"name":"category.updated"}`))
	err = h.Inject(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}

func TestRegisterRoutes_WarnsWithoutSecret(t *testing.T) {
	for secret, warnings := range map[string]int{"": 1, "s3cret": 0} {
		var warned int
		logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
			if msg.Level == "warn" {
				warned++
			}
		})

		e := echo.New()
		NewHandler(newParser(t), nil, &fakeDispatcher{}, secret, logger).RegisterRoutes(e.Group("/api/v1"))
		assert.Equal(t, warnings, warned, "secret %q", secret)
	}
}
