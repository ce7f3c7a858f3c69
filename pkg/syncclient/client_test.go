package syncclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/httpclient"
	"github.com/Ramsey-B/fern/pkg/models"
)

// pagedServer answers sync calls from a fixed number of rows.
type pagedServer struct {
	mu      sync.Mutex
	total   int
	failAt  int
	offsets []int
}

func (s *pagedServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sync-products", r.URL.Path)

		var req models.SyncRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		s.mu.Lock()
		s.offsets = append(s.offsets, req.Offset)
		s.mu.Unlock()

		if s.failAt > 0 && req.Offset == s.failAt {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"message":"search unavailable"}`))
			return
		}

		limit := req.Limit
		if limit == 0 {
			limit = 50
		}
		processed := s.total - req.Offset
		if processed > limit {
			processed = limit
		}
		if processed < 0 {
			processed = 0
		}

		_ = json.NewEncoder(w).Encode(models.SyncResult{
			EntityType: models.EntityTypeProduct,
			Limit:      limit,
			Offset:     req.Offset,
			Processed:  processed,
			Indexed:    processed,
		})
	}
}

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewClient(httpclient.NewClient(httpclient.Config{Upstream: "fern", BaseURL: server.URL}, logger), logger)
}

func TestSyncAll_PagesUntilShortPage(t *testing.T) {
	srv := &pagedServer{total: 120}
	client := newClient(t, srv.handler(t))

	var pages []int
	summary, err := client.SyncAll(context.Background(), models.EntityTypeProduct, Options{
		Limit:  50,
		OnPage: func(r models.SyncResult) { pages = append(pages, r.Processed) },
	})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 50, 100}, srv.offsets)
	assert.Equal(t, []int{50, 50, 20}, pages)
	assert.Equal(t, 3, summary.Pages)
	assert.Equal(t, 120, summary.Processed)
	assert.Equal(t, 120, summary.Indexed)
	assert.Equal(t, 150, summary.NextOffset)
}

func TestSyncAll_ExactMultipleEndsOnEmptyPage(t *testing.T) {
	srv := &pagedServer{total: 100}
	client := newClient(t, srv.handler(t))

	summary, err := client.SyncAll(context.Background(), models.EntityTypeProduct, Options{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 50, 100}, srv.offsets)
	assert.Equal(t, 100, summary.Processed)
}

func TestSyncAll_UsesServerLimitWhenUnset(t *testing.T) {
	srv := &pagedServer{total: 60}
	client := newClient(t, srv.handler(t))

	_, err := client.SyncAll(context.Background(), models.EntityTypeProduct, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 50}, srv.offsets)
}

func TestSyncAll_ErrorReturnsResumeOffset(t *testing.T) {
	srv := &pagedServer{total: 500, failAt: 100}
	client := newClient(t, srv.handler(t))

	summary, err := client.SyncAll(context.Background(), models.EntityTypeProduct, Options{Limit: 50})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offset 100")
	assert.Equal(t, 2, summary.Pages)
	assert.Equal(t, 100, summary.NextOffset)
}

func TestSyncAll_MaxPages(t *testing.T) {
	srv := &pagedServer{total: 1000}
	client := newClient(t, srv.handler(t))

	summary, err := client.SyncAll(context.Background(), models.EntityTypeProduct, Options{Limit: 10, MaxPages: 3})
	require.Error(t, err)
	assert.Equal(t, 3, summary.Pages)
}

func TestSyncPage_RejectsUnknownType(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) { t.Error("unexpected request") })
	_, err := client.SyncPage(context.Background(), models.EntityType("order"), models.SyncRequest{})
	assert.Error(t, err)
}

func TestListRuns(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sync-runs", r.URL.Path)
		assert.Equal(t, "brand", r.URL.Query().Get("entity_type"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[{"id":"r1","entity_type":"brand","processed":3,"filters":{},"failures":[]}]`))
	})

	runs, err := client.ListRuns(context.Background(), models.EntityTypeBrand, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].ID)
	assert.Equal(t, 3, runs[0].Processed)
}

func TestSyncPath(t *testing.T) {
	assert.Equal(t, "/api/v1/sync-categories", SyncPath(models.EntityTypeCategory))
	assert.Equal(t, "/api/v1/sync-brands", SyncPath(models.EntityTypeBrand))
}
