package api_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loog-project/roster/internal/api"
	"github.com/loog-project/roster/internal/eventmux"
	"github.com/loog-project/roster/internal/model"
	"github.com/loog-project/roster/internal/patch"
	"github.com/loog-project/roster/internal/service"
	bboltStore "github.com/loog-project/roster/internal/store/bbolt"
)

func newServer(t *testing.T) *api.Server {
	t.Helper()
	s, err := bboltStore.New(filepath.Join(t.TempDir(), "api.db"), nil, false)
	require.NoError(t, err)

	tracker := service.NewTrackerService(s, 8, true)
	events := eventmux.New()
	t.Cleanup(func() {
		events.Stop()
		tracker.Close()
		_ = s.Close()
	})

	roster := service.NewRoster(service.Repositories{
		Coaches: bboltStore.NewRepository[model.Coach](s),
		Players: bboltStore.NewRepository[model.Player](s),
		Teams:   bboltStore.NewRepository[model.Team](s),
	}, tracker, service.WithEventMux(events))
	return api.NewServer(roster)
}

func do(t *testing.T, srv http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, srv, method, target, "application/json", body)
}

func TestCreateAndGet(t *testing.T) {
	srv := newServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/players", `{"name":"Miro","marketValue":1500000,"position":"striker"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/players/1", rec.Header().Get("Location"))
	assert.JSONEq(t, `{"id":1,"name":"Miro","marketValue":1500000,"position":"STRIKER"}`, rec.Body.String())

	rec = doJSON(t, srv, http.MethodGet, "/players/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"name":"Miro","marketValue":1500000,"position":"STRIKER"}`, rec.Body.String())

	rec = doJSON(t, srv, http.MethodGet, "/players/2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/players/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateMalformed(t *testing.T) {
	srv := newServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/coaches", `{"firstName":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/players", `{"name":"X","position":"LIBERO"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "LIBERO")
}

func TestUpdateUnknownReturnsEntity(t *testing.T) {
	srv := newServer(t)

	rec := doJSON(t, srv, http.MethodPut, "/coaches/5", `{"id":1,"firstName":"Pep","lastName":"Guardiola"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body struct {
		Error  string      `json:"error"`
		Entity model.Coach `json:"entity"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "don't know coach 5", body.Error)
	assert.Equal(t, int64(5), body.Entity.ID, "the path id wins over the body id")
	assert.Equal(t, "Guardiola", body.Entity.LastName)
}

func TestUpdateAndHistory(t *testing.T) {
	srv := newServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/coaches", `{"firstName":"Jürgen","lastName":"Klop"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodPut, "/coaches/1", `{"firstName":"Jürgen","lastName":"Klopp"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"firstName":"Jürgen","lastName":"Klopp"}`, rec.Body.String())

	rec = doJSON(t, srv, http.MethodGet, "/coaches/1/revisions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var revisions []service.Revision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &revisions))
	require.Len(t, revisions, 2)
	assert.Equal(t, map[string]string{"lastName": "Klop -> Klopp"}, revisions[1].Changes)

	rec = doJSON(t, srv, http.MethodGet, "/coaches/1/revisions/0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"lastName":"Klop"`)

	rec = doJSON(t, srv, http.MethodGet, "/coaches/1/revisions/1?format=jsonpatch", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, patch.MediaType, rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `[{"op":"replace","path":"/lastName","value":"Klopp"}]`, rec.Body.String())

	rec = doJSON(t, srv, http.MethodGet, "/coaches/1/revisions/7", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/coaches/1/revisions/1?format=yaml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatchEndpoint(t *testing.T) {
	srv := newServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/players", `{"name":"Thomas","position":"MIDFIELD"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	ops := `[{"op":"replace","path":"/position","value":"STRIKER"}]`
	rec = do(t, srv, http.MethodPatch, "/players/1", patch.MediaType, ops)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"position":"STRIKER"`)

	rec = do(t, srv, http.MethodPatch, "/players/1", "text/plain", ops)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = do(t, srv, http.MethodPatch, "/players/1", patch.MediaType, `[{"op":"remove","path":"/nope"}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPatch, "/players/9", patch.MediaType, ops)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEndpoint(t *testing.T) {
	srv := newServer(t)

	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		rec := doJSON(t, srv, http.MethodPost, "/teams", `{"name":"`+name+`"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, srv, http.MethodGet, "/teams", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var teams []model.Team
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &teams))
	assert.Len(t, teams, 3)

	rec = doJSON(t, srv, http.MethodGet, `/teams?filter=name+startsWith+%22G%22`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &teams))
	require.Len(t, teams, 1)
	assert.Equal(t, "Gamma", teams[0].Name)

	rec = doJSON(t, srv, http.MethodGet, "/teams?offset=1&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &teams))
	require.Len(t, teams, 1)
	assert.Equal(t, "Beta", teams[0].Name)

	rec = doJSON(t, srv, http.MethodGet, "/teams?limit=many", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/teams?filter=name+%3D%3D", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTeamReferences(t *testing.T) {
	srv := newServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/teams", `{"name":"Nowhere","coachId":3}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/coaches", `{"firstName":"Louis","lastName":"van Gaal"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, srv, http.MethodPost, "/teams", `{"name":"Oranje","coachId":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/coaches/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"teamId":1`)

	rec = doJSON(t, srv, http.MethodPost, "/teams", `{"name":"Twice","coachId":1}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/coaches/1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/teams/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, srv, http.MethodDelete, "/teams/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestID(t *testing.T) {
	srv := newServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestEventStream(t *testing.T) {
	srv := newServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	rec := doJSON(t, srv, http.MethodGet, "/events?kind=dragons", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// ends the stream before the server is closed
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events?kind=players", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// coaches are not selected
	rec = doJSON(t, srv, http.MethodPost, "/coaches", `{"firstName":"Otto","lastName":"Rehhagel"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, srv, http.MethodPost, "/players", `{"name":"Miro","position":"STRIKER"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: CREATED", lines.Text())
	require.True(t, lines.Scan())
	data, ok := strings.CutPrefix(lines.Text(), "data: ")
	require.True(t, ok, lines.Text())

	var ev eventmux.Event
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, model.KindPlayer, ev.Kind)
	assert.Equal(t, int64(1), ev.ID)
	require.True(t, lines.Scan())
	assert.Empty(t, lines.Text())
}
