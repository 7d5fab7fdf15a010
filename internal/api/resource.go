package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/loog-project/roster/internal/model"
	"github.com/loog-project/roster/internal/patch"
	"github.com/loog-project/roster/internal/service"
	"github.com/loog-project/roster/internal/store"
)

// resource serves the routes of a single entity kind.
type resource[E any, P interface {
	*E
	model.Entity
}] struct {
	svc *service.EntityService[E, P]
}

func register[E any, P interface {
	*E
	model.Entity
}](g *echo.Group, svc *service.EntityService[E, P]) {
	r := &resource[E, P]{svc: svc}

	g.POST("", r.create)
	g.GET("", r.list)
	g.GET("/:id", r.get)
	g.PUT("/:id", r.update)
	g.PATCH("/:id", r.patch)
	g.DELETE("/:id", r.delete)
	g.GET("/:id/revisions", r.history)
	g.GET("/:id/revisions/:rev", r.revision)
}

func (r *resource[E, P]) create(c echo.Context) error {
	entity := P(new(E))
	if err := decode(c, entity); err != nil {
		return err
	}
	created, err := r.svc.Create(c.Request().Context(), entity)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderLocation, r.location(created.GetID()))
	return c.JSON(http.StatusCreated, created)
}

func (r *resource[E, P]) get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	entity, ok, err := r.svc.FindByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !ok {
		return &service.UnknownEntityError{Kind: r.svc.Kind(), ID: id}
	}
	return c.JSON(http.StatusOK, entity)
}

func (r *resource[E, P]) update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	entity := P(new(E))
	if err := decode(c, entity); err != nil {
		return err
	}
	// the path decides which entity is updated
	entity.SetID(id)

	updated, err := r.svc.Update(c.Request().Context(), entity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (r *resource[E, P]) patch(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, patch.MediaType) && !strings.HasPrefix(contentType, echo.MIMEApplicationJSON) {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, "expected "+patch.MediaType)
	}
	ops, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	patched, err := r.svc.Patch(c.Request().Context(), id, ops)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, patched)
}

func (r *resource[E, P]) list(c echo.Context) error {
	var opts service.ListOptions
	err := echo.QueryParamsBinder(c).
		String("filter", &opts.Filter).
		Int("offset", &opts.Offset).
		Int("limit", &opts.Limit).
		BindError()
	if err != nil {
		return err
	}
	entities, err := r.svc.List(c.Request().Context(), opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entities)
}

func (r *resource[E, P]) delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := r.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (r *resource[E, P]) history(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	revisions, err := r.svc.History(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, revisions)
}

func (r *resource[E, P]) revision(c echo.Context) error {
	var (
		id  int64
		rev uint64
	)
	err := echo.PathParamsBinder(c).
		MustInt64("id", &id).
		MustUint64("rev", &rev).
		BindError()
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	switch format := c.QueryParam("format"); format {
	case "", "object":
		snapshot, err := r.svc.Revision(ctx, id, store.RevisionID(rev))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, snapshot)
	case "jsonpatch":
		ops, err := r.svc.RevisionPatch(ctx, id, store.RevisionID(rev))
		if err != nil {
			return err
		}
		return blobJSON(c, http.StatusOK, patch.MediaType, ops)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown format "+strconv.Quote(format))
	}
}

// blobJSON encodes v before the status is written, so encoding errors still
// end up in the error handler.
func blobJSON(c echo.Context, status int, contentType string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cannot encode response: %w", err)
	}
	return c.Blob(status, contentType, data)
}

func (r *resource[E, P]) location(id int64) string {
	return "/" + r.svc.Kind().Plural() + "/" + strconv.FormatInt(id, 10)
}

func pathID(c echo.Context) (int64, error) {
	var id int64
	err := echo.PathParamsBinder(c).MustInt64("id", &id).BindError()
	return id, err
}

// decode reads the JSON request body into dst.
func decode(c echo.Context, dst any) error {
	if err := c.Echo().JSONSerializer.Deserialize(c, dst); err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		return &service.InvalidInputError{What: "body", Err: err}
	}
	return nil
}
