// Package api exposes the roster services over HTTP with JSON bodies.
package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/loog-project/roster/internal/model"
	"github.com/loog-project/roster/internal/service"
)

// Server routes HTTP requests to the roster services.
type Server struct {
	*echo.Echo
}

// NewServer creates the routes for all entity kinds:
//
//	POST   /{kinds}
//	GET    /{kinds}?filter=&offset=&limit=
//	GET    /{kinds}/{id}
//	PUT    /{kinds}/{id}
//	PATCH  /{kinds}/{id}
//	DELETE /{kinds}/{id}
//	GET    /{kinds}/{id}/revisions
//	GET    /{kinds}/{id}/revisions/{rev}[?format=jsonpatch]
//	GET    /events?kind=        (when the roster publishes events)
//	GET    /healthz
func NewServer(roster *service.Roster) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handleError

	e.Use(
		middleware.Recover(),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			Generator:        uuid.NewString,
			RequestIDHandler: attachLogger,
		}),
		accessLog(),
	)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	register(e.Group("/"+model.KindCoach.Plural()), roster.Coaches)
	register(e.Group("/"+model.KindPlayer.Plural()), roster.Players)
	register(e.Group("/"+model.KindTeam.Plural()), roster.Teams)

	if roster.Events != nil {
		e.GET("/events", streamEvents(roster.Events))
	}

	return &Server{Echo: e}
}

// attachLogger stores a request scoped logger in the request context, so
// services log with the request id.
func attachLogger(c echo.Context, requestID string) {
	l := log.With().Str("request-id", requestID).Logger()
	req := c.Request()
	c.SetRequest(req.WithContext(l.WithContext(req.Context())))
}

func accessLog() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			l := zerolog.Ctx(c.Request().Context())
			var ev *zerolog.Event
			switch {
			case v.Status >= http.StatusInternalServerError:
				ev = l.Error().Err(v.Error)
			case v.Status >= http.StatusBadRequest:
				ev = l.Info()
			default:
				ev = l.Debug()
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("Handled request")
			return nil
		},
	})
}
