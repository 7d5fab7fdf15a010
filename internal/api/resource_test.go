package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loog-project/roster/internal/patch"
)

func TestBlobJSON(t *testing.T) {
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, blobJSON(c, http.StatusOK, patch.MediaType, []map[string]string{{"op": "remove", "path": "/name"}}))
	assert.Equal(t, patch.MediaType, rec.Header().Get(echo.HeaderContentType))
	assert.JSONEq(t, `[{"op":"remove","path":"/name"}]`, rec.Body.String())

	// an encoding error leaves the response to the error handler
	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	err := blobJSON(c, http.StatusOK, patch.MediaType, map[string]any{"ch": make(chan int)})
	require.Error(t, err)
	assert.False(t, c.Response().Committed)

	handleError(err, c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
}
