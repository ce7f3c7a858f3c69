package middleware

import (
	stdctx "context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/context"
)

var testLogger = ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{
			name:     "http error",
			err:      httperror.NewHTTPError(http.StatusBadRequest, "bad limit"),
			wantCode: http.StatusBadRequest,
			wantMsg:  "bad limit",
		},
		{
			name:     "echo error",
			err:      echo.NewHTTPError(http.StatusNotFound, "route not found"),
			wantCode: http.StatusNotFound,
			wantMsg:  "route not found",
		},
		{
			name:     "deadline",
			err:      fmt.Errorf("sync page: %w", stdctx.DeadlineExceeded),
			wantCode: http.StatusGatewayTimeout,
		},
		{
			name:     "canceled",
			err:      stdctx.Canceled,
			wantCode: StatusClientClosedRequest,
		},
		{
			name:     "plain",
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError,
			wantMsg:  "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg, meta := classify(tt.err)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, msg)
			}
			assert.NotNil(t, meta)
		})
	}
}

func TestErrorHandler(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/store/products", nil)
	req = req.WithContext(context.SetRequestID(req.Context(), "req-1"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	Error(testLogger)(httperror.NewHTTPError(http.StatusBadGateway, "search unavailable"), c)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "search unavailable", body.Message)
	assert.Equal(t, "req-1", body.RequestID)
}

func TestAuthenticate(t *testing.T) {
	verify := func(_ stdctx.Context, token string) (UserClaims, error) {
		switch token {
		case "admin":
			return UserClaims{Sub: "user-1", Roles: []string{"catalog-admin"}}, nil
		case "viewer":
			return UserClaims{Sub: "user-2", Groups: []string{"viewers"}}, nil
		default:
			return UserClaims{}, errors.New("signature mismatch")
		}
	}

	var seenUser string
	next := func(c echo.Context) error {
		seenUser = context.GetUserID(c.Request().Context())
		return c.NoContent(http.StatusOK)
	}
	handler := authenticate(testLogger, "catalog-admin", verify)(next)

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{name: "missing", header: "", wantCode: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic admin", wantCode: http.StatusUnauthorized},
		{name: "invalid", header: "Bearer forged", wantCode: http.StatusUnauthorized},
		{name: "no role", header: "Bearer viewer", wantCode: http.StatusForbidden},
		{name: "admin", header: "bearer admin", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/sync-products", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(req, rec)

			err := handler(c)
			if tt.wantCode == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, "user-1", seenUser)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, httperror.GetStatusCode(err))
		})
	}
}

func TestAuthenticate_NoRoleRequired(t *testing.T) {
	verify := func(_ stdctx.Context, _ string) (UserClaims, error) {
		return UserClaims{Sub: "user-2"}, nil
	}
	handler := authenticate(testLogger, "", verify)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dlq", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer anything")
	require.NoError(t, handler(echo.New().NewContext(req, httptest.NewRecorder())))
}

func TestContextMiddleware(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/store/brands", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc")
	req.Header.Set(HeaderUserID, "user-9")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var requestID, userID string
	err := Context()(func(c echo.Context) error {
		requestID = context.GetRequestID(c.Request().Context())
		userID = context.GetUserID(c.Request().Context())
		return nil
	})(c)

	require.NoError(t, err)
	assert.Equal(t, "abc", requestID)
	assert.Equal(t, "user-9", userID)
	assert.Equal(t, "abc", rec.Header().Get(echo.HeaderXRequestID))
}

func TestIsQuiet(t *testing.T) {
	assert.True(t, isQuiet("/api/v1/health"))
	assert.True(t, isQuiet("/api/v1/health/ready"))
	assert.True(t, isQuiet("/metrics"))
	assert.False(t, isQuiet("/api/v1/store/products"))
	assert.False(t, isQuiet("/api/v1/webhooks/cms"))
}
