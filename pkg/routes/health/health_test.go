package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/mocks"
)

func ok(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func decode(t *testing.T, body []byte) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestLiveness(t *testing.T) {
	c := NewChecker("1.0.0")
	c.AddCheck("database", down)

	ctx, rec := mocks.NewEchoContext(echo.New(), http.MethodGet, "/api/v1/health/live", nil)
	require.NoError(t, c.LivenessHandler(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1.0.0", decode(t, rec.Body.Bytes()).Version)
}

func TestReadiness_NotReady(t *testing.T) {
	c := NewChecker("1.0.0")
	c.AddCheck("database", ok)

	ctx, rec := mocks.NewEchoContext(echo.New(), http.MethodGet, "/api/v1/health/ready", nil)
	require.NoError(t, c.ReadinessHandler(ctx))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, decode(t, rec.Body.Bytes()).Checks, "startup")
}

func TestReadiness_Ready(t *testing.T) {
	c := NewChecker("1.0.0")
	c.AddCheck("database", ok)
	c.AddCheck("search", ok)
	c.SetReady(true)

	ctx, rec := mocks.NewEchoContext(echo.New(), http.MethodGet, "/api/v1/health/ready", nil)
	require.NoError(t, c.ReadinessHandler(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decode(t, rec.Body.Bytes())
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Len(t, resp.Checks, 2)
}

func TestHealth_OptionalFailureDegrades(t *testing.T) {
	c := NewChecker("")
	c.AddCheck("database", ok)
	c.AddOptionalCheck("redis", down)

	ctx, rec := mocks.NewEchoContext(echo.New(), http.MethodGet, "/api/v1/health", nil)
	require.NoError(t, c.HealthHandler(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decode(t, rec.Body.Bytes())
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Equal(t, "connection refused", resp.Checks["redis"].Message)
}

func TestHealth_RequiredFailure(t *testing.T) {
	c := NewChecker("")
	c.AddCheck("database", down)
	c.AddOptionalCheck("redis", down)

	ctx, rec := mocks.NewEchoContext(echo.New(), http.MethodGet, "/api/v1/health", nil)
	require.NoError(t, c.HealthHandler(ctx))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, StatusUnhealthy, decode(t, rec.Body.Bytes()).Status)
}
