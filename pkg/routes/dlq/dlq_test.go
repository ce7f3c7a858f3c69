package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/mocks"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/redis"
)

type fakeQueue struct {
	entries   map[string]redis.DLQEntry
	lastCount int64
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{entries: map[string]redis.DLQEntry{
		"1-0": {MessageID: "1-0", ID: "a", Event: models.Event{Name: models.EventProductUpdated, EntityID: "prod_1"}, ErrorMessage: "search down"},
	}}
}

func (q *fakeQueue) List(_ context.Context, count int64) ([]redis.DLQEntry, error) {
	q.lastCount = count
	out := []redis.DLQEntry{}
	for _, e := range q.entries {
		out = append(out, e)
	}
	return out, nil
}

func (q *fakeQueue) Get(_ context.Context, id string) (*redis.DLQEntry, error) {
	e, ok := q.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (q *fakeQueue) Delete(_ context.Context, id string) error {
	if _, ok := q.entries[id]; !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "not found")
	}
	delete(q.entries, id)
	return nil
}

func (q *fakeQueue) Count(_ context.Context) (int64, error) {
	return int64(len(q.entries)), nil
}

func (q *fakeQueue) Replay(ctx context.Context, id string, process func(context.Context, models.Event) error) error {
	e, ok := q.entries[id]
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "not found")
	}
	if err := process(ctx, e.Event); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadGateway, "replay failed: %v", err)
	}
	delete(q.entries, id)
	return nil
}

var testLogger = ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

func TestList(t *testing.T) {
	q := newFakeQueue()
	h := NewHandler(q, nil, testLogger)
	e := echo.New()

	c, rec := mocks.NewEchoContext(e, http.MethodGet, "/api/v1/dlq", nil)
	require.NoError(t, h.List(c))
	assert.Equal(t, int64(redis.DefaultListCount), q.lastCount)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "prod_1", resp.Entries[0].Event.EntityID)

	c, _ = mocks.NewEchoContext(e, http.MethodGet, "/api/v1/dlq?count=5000", nil)
	require.NoError(t, h.List(c))
	assert.Equal(t, int64(maxListCount), q.lastCount)

	c, _ = mocks.NewEchoContext(e, http.MethodGet, "/api/v1/dlq?count=0", nil)
	err := h.List(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}

func TestGet(t *testing.T) {
	h := NewHandler(newFakeQueue(), nil, testLogger)
	e := echo.New()

	c, rec := mocks.NewEchoContext(e, http.MethodGet, "/api/v1/dlq/1-0", nil)
	c.SetParamNames("id")
	c.SetParamValues("1-0")
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, _ = mocks.NewEchoContext(e, http.MethodGet, "/api/v1/dlq/9-9", nil)
	c.SetParamNames("id")
	c.SetParamValues("9-9")
	err := h.Get(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

func TestReplay(t *testing.T) {
	q := newFakeQueue()
	var replayed []models.Event
	failing := true
	process := func(_ context.Context, event models.Event) error {
		if failing {
			return errors.New("still down")
		}
		replayed = append(replayed, event)
		return nil
	}
	h := NewHandler(q, process, testLogger)
	e := echo.New()

	c, _ := mocks.NewEchoContext(e, http.MethodPost, "/api/v1/dlq/1-0/replay", nil)
	c.SetParamNames("id")
	c.SetParamValues("1-0")
	err := h.Replay(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, httperror.GetStatusCode(err))
	assert.Len(t, q.entries, 1)

	failing = false
	c, rec := mocks.NewEchoContext(e, http.MethodPost, "/api/v1/dlq/1-0/replay", nil)
	c.SetParamNames("id")
	c.SetParamValues("1-0")
	require.NoError(t, h.Replay(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, replayed, 1)
	assert.Equal(t, "prod_1", replayed[0].EntityID)
	assert.Empty(t, q.entries)
}

func TestDelete(t *testing.T) {
	q := newFakeQueue()
	h := NewHandler(q, nil, testLogger)
	e := echo.New()

	c, rec := mocks.NewEchoContext(e, http.MethodDelete, "/api/v1/dlq/1-0", nil)
	c.SetParamNames("id")
	c.SetParamValues("1-0")
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, _ = mocks.NewEchoContext(e, http.MethodDelete, "/api/v1/dlq/1-0", nil)
	c.SetParamNames("id")
	c.SetParamValues("1-0")
	err := h.Delete(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}
