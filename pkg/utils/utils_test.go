package utils

import (
	"net/http"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/mocks"
	"github.com/Ramsey-B/fern/pkg/models"
)

type pageRequest struct {
	Limit  int    `json:"limit" validate:"gte=0,lte=100"`
	Cursor string `json:"cursor" validate:"omitempty,max=8"`
}

func TestValidate(t *testing.T) {
	_, err := Validate(pageRequest{Limit: 10})
	assert.NoError(t, err)

	_, err = Validate(pageRequest{Limit: 101, Cursor: "too-long-cursor"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pageRequest.Limit")
	assert.Contains(t, err.Error(), "pageRequest.Cursor")
}

func TestValidateValue(t *testing.T) {
	assert.NoError(t, ValidateValue("product", "oneof=product category brand"))
	assert.Error(t, ValidateValue("order", "oneof=product category brand"))
}

func TestBindRequest(t *testing.T) {
	e := echo.New()

	c, _ := mocks.NewEchoContext(e, http.MethodPost, "/", strings.NewReader(`{"limit":25,"offset":50,"filters":{"ids":["p1"]}}`))
	req, err := BindRequest[models.SyncRequest](c)
	require.NoError(t, err)
	assert.Equal(t, 25, req.Limit)
	assert.Equal(t, 50, req.Offset)
	assert.Equal(t, []string{"p1"}, req.Filters.IDs)

	c, _ = mocks.NewEchoContext(e, http.MethodPost, "/", strings.NewReader(`{"limit":-1}`))
	_, err = BindRequest[models.SyncRequest](c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))

	c, _ = mocks.NewEchoContext(e, http.MethodPost, "/", strings.NewReader(`{"limit":`))
	_, err = BindRequest[models.SyncRequest](c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}
