package middleware

import (
	stdctx "context"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// StatusClientClosedRequest is reported when the caller hangs up mid request.
const StatusClientClosedRequest = 499

type ErrorResponse struct {
	Message   string         `json:"message"`
	RequestID string         `json:"request_id"`
	TraceID   string         `json:"trace_id"`
	Meta      map[string]any `json:"meta"`
}

// Error renders every handler error as an ErrorResponse.
func Error(logger ectologger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		ctx := c.Request().Context()
		if c.Response().Committed {
			return
		}

		code, message, meta := classify(err)

		log := logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"status": code,
			"route":  c.Path(),
		})
		if code >= http.StatusInternalServerError {
			log.Error("api is returning an error")
		} else {
			log.Debug("api is returning a client error")
		}

		_ = c.JSON(code, ErrorResponse{
			Message:   message,
			RequestID: context.GetRequestID(ctx),
			TraceID:   tracing.GetTraceID(ctx),
			Meta:      meta,
		})
	}
}

func classify(err error) (int, string, map[string]any) {
	meta := map[string]any{}

	var he *echo.HTTPError
	switch {
	case httperror.IsHTTPError(err):
		httperr := httperror.ToHTTPError(err)
		if httperr.Meta != nil {
			meta = httperr.Meta
		}
		return httperror.GetStatusCode(err), httperr.Error(), meta
	case errors.As(err, &he):
		message := http.StatusText(he.Code)
		if msg, ok := he.Message.(string); ok {
			message = msg
		}
		return he.Code, message, meta
	case errors.Is(err, stdctx.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out", meta
	case errors.Is(err, stdctx.Canceled):
		return StatusClientClosedRequest, "request canceled", meta
	default:
		return http.StatusInternalServerError, "Internal Server Error", meta
	}
}
