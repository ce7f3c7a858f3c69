package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		Upstream:    "test",
		BaseURL:     server.URL + "/",
		BearerToken: "secret",
	}, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
}

func TestDoJSON_SendsBodyAndDecodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/things", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"widget"}`, string(body))

		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	var out struct {
		OK bool `json:"ok"`
	}
	err := client.DoJSON(context.Background(), http.MethodPost, "/things", url.Values{"page": {"1"}}, map[string]string{"name": "widget"}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
}

func TestDoJSON_StatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"down"}`))
	})

	err := client.DoJSON(context.Background(), http.MethodGet, "/health", nil, nil, nil)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "test", statusErr.Upstream)
	assert.Contains(t, statusErr.Error(), "down")
}

func TestDo_ReturnsNonSuccessResponses(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNotFound)
	})

	resp, err := client.Do(context.Background(), http.MethodGet, "/missing", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, resp.IsSuccess())
}

func TestDo_TransportError(t *testing.T) {
	client := NewClient(Config{Upstream: "test", BaseURL: "http://127.0.0.1:1"},
		ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))

	_, err := client.Do(context.Background(), http.MethodGet, "/", nil, nil)
	assert.Error(t, err)
}

func TestBaseURLTrimsTrailingSlash(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://cms.local/"}, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	assert.Equal(t, "http://cms.local", client.BaseURL())
}
