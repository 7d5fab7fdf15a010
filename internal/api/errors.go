package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/loog-project/roster/internal/service"
)

// errorBody is the JSON body of every failed request.
type errorBody struct {
	Error string `json:"error"`
	// Entity is the rejected payload of an update of an unknown entity.
	Entity any `json:"entity,omitempty"`
}

// statusOf maps service errors to HTTP status codes.
func statusOf(err error) (int, errorBody) {
	var (
		unknown   *service.UnknownEntityError
		reference *service.InvalidReferenceError
		conflict  *service.ConflictError
		invalid   *service.InvalidInputError
		binding   *echo.BindingError
		httpErr   *echo.HTTPError
	)
	switch {
	case errors.As(err, &unknown):
		return http.StatusNotFound, errorBody{Error: unknown.Error(), Entity: unknown.Entity}
	case errors.As(err, &reference):
		return http.StatusUnprocessableEntity, errorBody{Error: reference.Error()}
	case errors.As(err, &conflict):
		return http.StatusConflict, errorBody{Error: conflict.Error()}
	case errors.As(err, &invalid):
		return http.StatusBadRequest, errorBody{Error: invalid.Error()}
	case errors.As(err, &binding):
		return binding.Code, errorBody{Error: fmt.Sprintf("invalid %s: %v", binding.Field, binding.Message)}
	case errors.As(err, &httpErr):
		msg := http.StatusText(httpErr.Code)
		if s, ok := httpErr.Message.(string); ok {
			msg = s
		}
		return httpErr.Code, errorBody{Error: msg}
	default:
		return http.StatusInternalServerError, errorBody{Error: http.StatusText(http.StatusInternalServerError)}
	}
}

func handleError(err error, c echo.Context) {
	if c.Response().Committed {
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("Request failed after the response was written")
		return
	}
	status, body := statusOf(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("Request failed")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("Cannot write error response")
	}
}
