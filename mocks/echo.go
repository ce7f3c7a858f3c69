package mocks

import (
	"io"
	"net/http/httptest"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	appctx "github.com/Ramsey-B/fern/pkg/context"
)

// NewEchoContext builds an echo context around an httptest recorder with a request id
// already set on the request context.
func NewEchoContext(e *echo.Echo, method, target string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req = req.WithContext(appctx.SetRequestID(req.Context(), uuid.New().String()))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

