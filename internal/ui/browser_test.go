package ui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loog-project/roster/internal/eventmux"
	"github.com/loog-project/roster/internal/model"
	"github.com/loog-project/roster/internal/service"
	"github.com/loog-project/roster/internal/store"
	bboltStore "github.com/loog-project/roster/internal/store/bbolt"
)

func newTestRoster(t *testing.T) *service.Roster {
	t.Helper()
	s, err := bboltStore.New(filepath.Join(t.TempDir(), "ui.db"), nil, false)
	require.NoError(t, err)
	tracker := service.NewTrackerService(s, 2, false)
	t.Cleanup(func() {
		tracker.Close()
		_ = s.Close()
	})
	return service.NewRoster(service.Repositories{
		Coaches: bboltStore.NewRepository[model.Coach](s),
		Players: bboltStore.NewRepository[model.Player](s),
		Teams:   bboltStore.NewRepository[model.Team](s),
	}, tracker)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func newLoadedBrowser(t *testing.T, r *service.Roster) *BrowserView {
	t.Helper()
	bv := NewBrowserView(r)
	bv.SetTheme(PlainTheme)
	bv.SetSize(160, 40)
	msg := bv.Init()()
	require.IsType(t, loadedMsg{}, msg)
	bv.Update(msg)
	require.False(t, bv.loading)
	return bv
}

func TestBrowserTree(t *testing.T) {
	ctx := context.Background()
	r := newTestRoster(t)

	_, err := r.Coaches.Create(ctx, &model.Coach{FirstName: "Otto", LastName: "Rehhagel"})
	require.NoError(t, err)
	p, err := r.Players.Create(ctx, &model.Player{Name: "Miro", Position: model.PositionStriker})
	require.NoError(t, err)
	p.MarketValue = 1500
	_, err = r.Players.Update(ctx, p)
	require.NoError(t, err)

	bv := newLoadedBrowser(t, r)

	// coaches, one coach, players, one player, teams
	assert.Len(t, bv.rows(), 5)
	assert.Contains(t, bv.left.View(), "Otto Rehhagel")
	assert.Contains(t, bv.left.View(), "2 revs")

	// move to the player and expand it
	for range 3 {
		bv.Update(key("down"))
	}
	bv.Update(key("enter"))
	rows := bv.rows()
	require.Len(t, rows, 7)
	assert.Equal(t, p.ID, rows[3].entity.id)

	bv.Update(key("down"))
	bv.Update(key("down"))
	assert.Equal(t, previewKey{kind: model.KindPlayer, id: p.ID, rev: 1, mode: modeObjectPretty}, bv.rendered)
	assert.Contains(t, bv.right.View(), "~ marketValue: 0 -> 1500")

	// collapsing a revision jumps back to its entity
	bv.Update(key("left"))
	assert.Equal(t, 3, bv.cursor)
	assert.Len(t, bv.rows(), 5)
}

func TestBrowserPreviewModes(t *testing.T) {
	ctx := context.Background()
	r := newTestRoster(t)

	c, err := r.Coaches.Create(ctx, &model.Coach{FirstName: "Otto", LastName: "Rehhagel"})
	require.NoError(t, err)
	c.FirstName = "King Otto"
	_, err = r.Coaches.Update(ctx, c)
	require.NoError(t, err)

	bv := newLoadedBrowser(t, r)
	preview := func(mode renderMode, rev uint64) string {
		out, err := bv.preview(ctx, previewKey{kind: model.KindCoach, id: c.ID, rev: store.RevisionID(rev), mode: mode})
		require.NoError(t, err)
		return out
	}

	assert.Contains(t, preview(modeObjectPretty, 0), "+ firstName: \"Otto\"")
	assert.Contains(t, preview(modeObjectPretty, 1), "  lastName: \"Rehhagel\"")
	assert.Contains(t, preview(modeObjectJSON, 1), `"firstName": "King Otto"`)

	changes := preview(modeChangesPretty, 1)
	assert.Contains(t, changes, "~ firstName: \"Otto\" -> \"King Otto\"")
	assert.NotContains(t, changes, "lastName")

	assert.Contains(t, preview(modePatchJSON, 1), `"op": "replace"`)

	_, err = bv.preview(ctx, previewKey{kind: model.KindCoach, id: c.ID, rev: 9})
	assert.Error(t, err)
}

func TestBrowserEvents(t *testing.T) {
	ctx := context.Background()
	r := newTestRoster(t)
	bv := newLoadedBrowser(t, r)
	bv.now = func() time.Time { return time.Now().Add(time.Hour) }

	team, err := r.Teams.Create(ctx, &model.Team{Name: "Werder"})
	require.NoError(t, err)

	_, cmd := bv.Update(eventmux.Event{Type: eventmux.Created, Kind: model.KindTeam, ID: team.ID})
	require.NotNil(t, cmd)
	bv.Update(cmd())

	teams := bv.kindEntry(model.KindTeam)
	require.Len(t, teams.entities, 1)
	assert.Equal(t, "Werder", teams.entities[0].label)
	assert.Len(t, teams.entities[0].revs, 1)

	// an entity deleted before it was loaded is dropped
	require.NoError(t, r.Teams.Delete(ctx, team.ID))
	bv.Update(cmd())
	assert.Empty(t, teams.entities)

	teams.put(&entityEntry{id: team.ID, label: "Werder"})
	bv.Update(eventmux.Event{Type: eventmux.Deleted, Kind: model.KindTeam, ID: team.ID})
	assert.Empty(t, teams.entities)
}

func TestBrowserModeAndQuit(t *testing.T) {
	bv := newLoadedBrowser(t, newTestRoster(t))

	for range _modeMax {
		bv.Update(key("p"))
	}
	assert.Equal(t, modeObjectPretty, bv.mode)
	bv.Update(key("p"))
	assert.True(t, strings.Contains(bv.KeyMap(), modeObjectJSON.String()))

	_, cmd := bv.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
