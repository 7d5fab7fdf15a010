package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/loog-project/roster/internal/eventmux"
	"github.com/loog-project/roster/internal/model"
	"github.com/loog-project/roster/internal/service"
)

const (
	mimeEventStream   = "text/event-stream"
	keepAliveInterval = 15 * time.Second
)

// streamEvents sends the change events as server-sent events:
//
//	event: UPDATED
//	data: {"type":"UPDATED","kind":"player","id":7,...}
//
// The kind query parameter may be repeated to select kinds.
func streamEvents(mux *eventmux.Mux) echo.HandlerFunc {
	return func(c echo.Context) error {
		var names []string
		if err := echo.QueryParamsBinder(c).Strings("kind", &names).BindError(); err != nil {
			return err
		}
		kinds := make([]model.Kind, 0, len(names))
		for _, name := range names {
			kind, err := model.ParseKind(name)
			if err != nil {
				return &service.InvalidInputError{What: "kind", Err: err}
			}
			kinds = append(kinds, kind)
		}

		ctx := c.Request().Context()
		events, err := mux.Subscribe(ctx, kinds...)
		if err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "event stream is shut down")
		}

		w := c.Response()
		w.Header().Set(echo.HeaderContentType, mimeEventStream)
		w.Header().Set(echo.HeaderCacheControl, "no-cache")
		w.Header().Set(echo.HeaderConnection, "keep-alive")
		w.WriteHeader(http.StatusOK)
		w.Flush()

		keepAlive := time.NewTicker(keepAliveInterval)
		defer keepAlive.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: ", ev.Type); err != nil {
					return nil
				}
				// the serializer terminates the document with a newline
				if err := c.Echo().JSONSerializer.Serialize(c, ev, ""); err != nil {
					return nil
				}
				if _, err := fmt.Fprint(w, "\n"); err != nil {
					return nil
				}
			case <-keepAlive.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return nil
				}
			}
			w.Flush()
		}
	}
}
