package ui

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/wI2L/jsondiff"

	"github.com/loog-project/roster/internal/eventmux"
	"github.com/loog-project/roster/internal/model"
	"github.com/loog-project/roster/internal/service"
	"github.com/loog-project/roster/internal/store"
	"github.com/loog-project/roster/pkg/diffmap"
	"github.com/loog-project/roster/pkg/diffpreview"
)

const (
	arrowDown  = "▾"
	arrowRight = "▸"

	pageScrollSkip = 5
	sizeSkip       = 2

	// entities changed within this window are highlighted
	activityWindow = 3 * time.Second
)

type renderMode uint

const (
	modeObjectPretty renderMode = iota
	modeObjectJSON
	modeChangesPretty
	modePatchJSON

	_modeMax
)

func (r renderMode) String() string {
	switch r {
	case modeObjectPretty:
		return "object (pretty)"
	case modeObjectJSON:
		return "object (json)"
	case modeChangesPretty:
		return "changes (pretty)"
	case modePatchJSON:
		return "patch (json)"
	default:
		return "unknown"
	}
}

// Tracked is the part of an entity service the browser reads revisions from.
type Tracked interface {
	Kind() model.Kind
	Revision(ctx context.Context, id int64, rev store.RevisionID) (*store.Snapshot, error)
	RevisionPatch(ctx context.Context, id int64, rev store.RevisionID) (jsondiff.Patch, error)
}

type entityEntry struct {
	id       int64
	label    string
	revs     []service.Revision
	lastSeen time.Time
	open     bool
}

type kindEntry struct {
	kind     model.Kind
	open     bool
	entities []*entityEntry // ordered by id
}

func (k *kindEntry) find(id int64) (int, bool) {
	return slices.BinarySearchFunc(k.entities, id, func(e *entityEntry, id int64) int {
		return cmp.Compare(e.id, id)
	})
}

// put adds or replaces the entry with the same id, keeping it expanded if it was.
func (k *kindEntry) put(e *entityEntry) {
	i, found := k.find(e.id)
	if found {
		e.open = k.entities[i].open
		k.entities[i] = e
		return
	}
	k.entities = slices.Insert(k.entities, i, e)
}

func (k *kindEntry) remove(id int64) {
	if i, found := k.find(id); found {
		k.entities = slices.Delete(k.entities, i, i+1)
	}
}

// row is a single line of the tree. entity is nil for kind rows, rev is -1
// for kind and entity rows.
type row struct {
	kind   *kindEntry
	entity *entityEntry
	rev    int
}

type previewKey struct {
	kind model.Kind
	id   int64
	rev  store.RevisionID
	mode renderMode
}

type loadedMsg struct {
	kinds []*kindEntry
	err   error
}

type entityLoadedMsg struct {
	kind  model.Kind
	id    int64
	entry *entityEntry // nil if the entity is gone
	err   error
}

// BrowserView lists all entities with their revisions on the left and
// previews the selected revision on the right.
type BrowserView struct {
	Base

	roster  *service.Roster
	tracked map[model.Kind]Tracked
	now     func() time.Time

	left, right viewport.Model
	leftExtra   int

	kinds   []*kindEntry
	loading bool

	// ui state
	cursor     int
	focusRight bool
	mode       renderMode
	fullscreen bool
	rendered   previewKey
}

var _ View = (*BrowserView)(nil)

func NewBrowserView(roster *service.Roster) *BrowserView {
	return &BrowserView{
		roster: roster,
		tracked: map[model.Kind]Tracked{
			model.KindCoach:  roster.Coaches,
			model.KindPlayer: roster.Players,
			model.KindTeam:   roster.Teams,
		},
		now:     time.Now,
		left:    viewport.New(5, 5), // will be overwritten by SetSize
		right:   viewport.New(5, 5),
		loading: true,
	}
}

func (bv *BrowserView) Init() tea.Cmd {
	return bv.loadAll
}

func (bv *BrowserView) Breadcrumb() string {
	return "roster"
}

func (bv *BrowserView) calculateViewportSizes() {
	if bv.fullscreen {
		bv.right.Width, bv.right.Height = bv.Width, bv.Height
		return
	}
	leftWidth := max(bv.Width/2+bv.leftExtra-2, 0) // 2 for the border
	bv.left.Width, bv.left.Height = leftWidth, max(bv.Height-2, 0)

	rightWidth := max(bv.Width-leftWidth-4, 0)
	bv.right.Width, bv.right.Height = rightWidth, max(bv.Height-2, 0)
}

func (bv *BrowserView) SetSize(width, height int) {
	bv.Base.SetSize(width, height)
	bv.calculateViewportSizes()
}

func (bv *BrowserView) Update(msg tea.Msg) (View, tea.Cmd) {
	var cmd tea.Cmd

	switch v := msg.(type) {
	case loadedMsg:
		bv.loading = false
		if v.err != nil {
			return bv, PushAlert("when loading the roster", v.err)
		}
		bv.kinds = v.kinds
		bv.rendered = previewKey{}

	case entityLoadedMsg:
		if v.err != nil {
			return bv, PushAlert(fmt.Sprintf("when loading %s %d", v.kind, v.id), v.err)
		}
		if k := bv.kindEntry(v.kind); k != nil {
			if v.entry == nil {
				k.remove(v.id)
			} else {
				k.put(v.entry)
			}
		}

	case eventmux.Event:
		if v.Type == eventmux.Deleted {
			if k := bv.kindEntry(v.Kind); k != nil {
				k.remove(v.ID)
			}
			// a new entity may reuse the id
			bv.rendered = previewKey{}
		} else {
			cmd = bv.loadEntity(v.Kind, v.ID)
		}

	case tea.KeyMsg:
		cmd = bv.handleKey(v)
	}

	rows := bv.rows()
	bv.cursor = max(min(bv.cursor, len(rows)-1), 0)
	bv.renderLeft(rows)
	bv.renderRight(rows)

	return bv, cmd
}

func (bv *BrowserView) View() string {
	if bv.fullscreen {
		return bv.right.View()
	}
	leftBox := ternary(bv.focusRight, bv.Theme.BorderIdleContainerStyle, bv.Theme.BorderActiveContainerStyle).
		Render(bv.left.View())
	rightBox := ternary(bv.focusRight, bv.Theme.BorderActiveContainerStyle, bv.Theme.BorderIdleContainerStyle).
		Render(bv.right.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox)
}

func (bv *BrowserView) KeyMap() string {
	return fmt.Sprintf("[mode: %s] %s",
		bv.Theme.PrimaryTextStyle.Render(bv.mode.String()),
		NewShortcuts().
			Add("q", "quit").
			Add("⇥", "focus").
			Add("p", "mode").
			Add("r", "reload").
			Add("L", "log").
			AddIf(!bv.focusRight, "↑/↓/pgup/pgdn", "scroll").
			AddIf(!bv.focusRight, "←/→", "collapse").
			AddIf(!bv.focusRight, "⏎", "toggle").
			AddIf(bv.focusRight, "↑/↓/←/→", "move").
			AddIf(bv.focusRight, "f", "fullscreen").
			Render(bv.Theme))
}

func (bv *BrowserView) handleKey(k tea.KeyMsg) tea.Cmd {
	switch k.String() {
	case "q":
		return tea.Quit
	case "tab":
		bv.focusRight = !bv.focusRight
	case "p":
		bv.mode = (bv.mode + 1) % _modeMax
	case "r":
		bv.loading = true
		return bv.loadAll
	case "f":
		bv.fullscreen = !bv.fullscreen
		bv.calculateViewportSizes()
	case "+":
		if maxExtra := bv.Width/2 - 8; bv.leftExtra < maxExtra {
			bv.leftExtra = min(bv.leftExtra+sizeSkip, maxExtra)
			bv.calculateViewportSizes()
		}
	case "-":
		if minExtra := -bv.Width/2 + 8; bv.leftExtra > minExtra {
			bv.leftExtra = max(bv.leftExtra-sizeSkip, minExtra)
			bv.calculateViewportSizes()
		}
	default:
		if bv.focusRight {
			ScrollViewport(k, &bv.right)
		} else {
			bv.navigateLeft(k)
		}
	}
	return nil
}

func (bv *BrowserView) navigateLeft(k tea.KeyMsg) {
	rows := bv.rows()
	last := len(rows) - 1

	switch k.String() {
	case "up", "k":
		bv.cursor = max(bv.cursor-1, 0)
	case "down", "j":
		bv.cursor = min(bv.cursor+1, last)
	case "pgup":
		bv.cursor = max(bv.cursor-pageScrollSkip, 0)
	case "pgdown":
		bv.cursor = min(bv.cursor+pageScrollSkip, last)
	case "left", "h":
		bv.setOpen(rows, false)
	case "right", "l":
		bv.setOpen(rows, true)
	case "enter", " ":
		if bv.cursor <= last {
			r := rows[bv.cursor]
			if r.entity == nil {
				r.kind.open = !r.kind.open
			} else if r.rev < 0 {
				r.entity.open = !r.entity.open
			}
		}
	}
	bv.keepVisible()
}

// setOpen expands or collapses the selected row. Collapsing a revision
// collapses its entity and moves the cursor there.
func (bv *BrowserView) setOpen(rows []row, open bool) {
	if bv.cursor >= len(rows) {
		return
	}
	r := rows[bv.cursor]
	switch {
	case r.entity == nil:
		r.kind.open = open
	case r.rev < 0:
		r.entity.open = open
	case !open:
		r.entity.open = false
		bv.cursor -= r.rev + 1
	}
}

func (bv *BrowserView) keepVisible() {
	if bv.cursor < bv.left.YOffset {
		bv.left.SetYOffset(bv.cursor)
	}
	if bv.cursor >= bv.left.YOffset+bv.left.Height {
		bv.left.SetYOffset(bv.cursor - bv.left.Height + 1)
	}
}

func (bv *BrowserView) kindEntry(kind model.Kind) *kindEntry {
	for _, k := range bv.kinds {
		if k.kind == kind {
			return k
		}
	}
	return nil
}

func (bv *BrowserView) rows() []row {
	var rows []row
	for _, k := range bv.kinds {
		rows = append(rows, row{kind: k, rev: -1})
		if !k.open {
			continue
		}
		for _, e := range k.entities {
			rows = append(rows, row{kind: k, entity: e, rev: -1})
			if !e.open {
				continue
			}
			for i := range e.revs {
				rows = append(rows, row{kind: k, entity: e, rev: i})
			}
		}
	}
	return rows
}

func (bv *BrowserView) renderLeft(rows []row) {
	if bv.loading && len(bv.kinds) == 0 {
		bv.left.SetContent(bv.Theme.MutedTextStyle.Render("loading..."))
		return
	}

	var b strings.Builder
	now := bv.now()
	for i, r := range rows {
		cursor := ternary(i == bv.cursor, bv.Theme.ListCurrentArrowTextStyle.Render(arrowRight), " ")

		switch {
		case r.entity == nil:
			_, _ = fmt.Fprintf(&b, "%s %s %s %s\n",
				cursor,
				ternary(r.kind.open, arrowDown, arrowRight),
				bv.Theme.ListKindNameTextStyle.Render(r.kind.kind.Plural()),
				bv.Theme.MutedTextStyle.Render(fmt.Sprintf("(%d)", len(r.kind.entities))))

		case r.rev < 0:
			e := r.entity
			style := bv.Theme.MutedTextStyle
			if now.Sub(e.lastSeen) < activityWindow {
				style = bv.Theme.ListActivityTextStyle
			}
			info := fmt.Sprintf("%s revs | %s",
				bv.Theme.ListRevisionTextStyle.Render(fmt.Sprint(len(e.revs))),
				bv.Theme.MutedTextStyle.Render(humanize.RelTime(e.lastSeen, now, "ago", "from now")))
			_, _ = fmt.Fprintf(&b, "%s   %s %s %-28s %s\n",
				cursor,
				ternary(e.open, arrowDown, arrowRight),
				bv.Theme.ListEntityIDTextStyle.Render(fmt.Sprintf("#%d", e.id)),
				style.Render(e.label),
				info)

		default:
			rev := r.entity.revs[r.rev]
			selected := i == bv.cursor
			var since string
			if r.rev > 0 {
				prev := r.entity.revs[r.rev-1]
				since = fmt.Sprintf(" +%s", rev.Time.Sub(prev.Time).Truncate(time.Second))
			}
			_, _ = fmt.Fprintf(&b, "%s       • %s: %s%s%s [%s]%s\n",
				cursor,
				bv.Theme.MutedTextStyle.Render(rev.Time.Format("02.01.2006 15:04:05")),
				ternary(selected, bv.Theme.ListCurrentArrowTextStyle.Render("["), " "),
				ternary(selected, bv.Theme.ListCurrentArrowTextStyle, bv.Theme.ListRevisionTextStyle).
					Render(rev.ID.String()),
				ternary(selected, bv.Theme.ListCurrentArrowTextStyle.Render("]"), " "),
				bv.Theme.MutedTextStyle.Render(ternary(rev.Snapshot, "snapshot", "patch")),
				bv.Theme.MutedTextStyle.Render(since))
		}
	}
	bv.left.SetContent(b.String())
}

func (bv *BrowserView) renderRight(rows []row) {
	if bv.cursor >= len(rows) || rows[bv.cursor].rev < 0 {
		bv.rendered = previewKey{}
		bv.right.SetContent(bv.Theme.MutedTextStyle.Render("select a revision to preview it"))
		return
	}
	r := rows[bv.cursor]
	key := previewKey{
		kind: r.kind.kind,
		id:   r.entity.id,
		rev:  r.entity.revs[r.rev].ID,
		mode: bv.mode,
	}
	if key == bv.rendered {
		return
	}
	bv.rendered = key

	content, err := bv.preview(context.Background(), key)
	if err != nil {
		content = bv.Theme.ErrorTextStyle.Render("cannot show revision: " + err.Error())
	}
	bv.right.SetContent(content)
	bv.right.GotoTop()
}

// preview renders a revision in the given mode.
func (bv *BrowserView) preview(ctx context.Context, key previewKey) (string, error) {
	svc := bv.tracked[key.kind]

	current, err := svc.Revision(ctx, key.id, key.rev)
	if err != nil {
		return "", err
	}
	var previous diffmap.DiffMap
	if key.rev > 0 {
		before, err := svc.Revision(ctx, key.id, current.PreviousID)
		if err != nil {
			return "", err
		}
		previous = before.Object
	}

	header := bv.Theme.PrimaryTextStyle.Render(fmt.Sprintf("%s %d at revision %s", key.kind, key.id, key.rev)) +
		"\n" + bv.Theme.MutedTextStyle.Render(current.Time.Format(time.RFC1123)) + "\n\n"

	switch key.mode {
	case modeObjectPretty:
		return header + diffpreview.Render(previous, current.Object, bv.Theme.Diff, false), nil
	case modeObjectJSON:
		return marshal(header, current.Object)
	case modeChangesPretty:
		if len(diffmap.Difference(previous, current.Object)) == 0 {
			return header + bv.Theme.MutedTextStyle.Render("no difference between versions"), nil
		}
		return header + diffpreview.Render(previous, current.Object, bv.Theme.Diff, true), nil
	case modePatchJSON:
		ops, err := svc.RevisionPatch(ctx, key.id, key.rev)
		if err != nil {
			return "", err
		}
		return marshal(header, ops)
	default:
		return "", fmt.Errorf("unknown render mode %d", key.mode)
	}
}

func marshal(header string, v any) (string, error) {
	j, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return header + string(j), nil
}

func (bv *BrowserView) loadAll() tea.Msg {
	ctx := context.Background()
	kinds := make([]*kindEntry, 0, len(model.Kinds))
	for _, kind := range model.Kinds {
		var (
			entries []*entityEntry
			err     error
		)
		switch kind {
		case model.KindCoach:
			entries, err = loadKind(ctx, bv.roster.Coaches)
		case model.KindPlayer:
			entries, err = loadKind(ctx, bv.roster.Players)
		case model.KindTeam:
			entries, err = loadKind(ctx, bv.roster.Teams)
		}
		if err != nil {
			return loadedMsg{err: err}
		}
		kinds = append(kinds, &kindEntry{kind: kind, open: true, entities: entries})
	}
	return loadedMsg{kinds: kinds}
}

func (bv *BrowserView) loadEntity(kind model.Kind, id int64) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		var (
			entry *entityEntry
			err   error
		)
		switch kind {
		case model.KindCoach:
			entry, err = loadOne(ctx, bv.roster.Coaches, id)
		case model.KindPlayer:
			entry, err = loadOne(ctx, bv.roster.Players, id)
		case model.KindTeam:
			entry, err = loadOne(ctx, bv.roster.Teams, id)
		}
		return entityLoadedMsg{kind: kind, id: id, entry: entry, err: err}
	}
}

func loadKind[E any, P interface {
	*E
	model.Entity
}](ctx context.Context, svc *service.EntityService[E, P]) ([]*entityEntry, error) {
	opts := service.ListOptions{Limit: service.MaxListLimit}
	var entries []*entityEntry
	for {
		page, err := svc.List(ctx, opts)
		if err != nil {
			return nil, err
		}
		for _, e := range page {
			entry, err := newEntry(ctx, svc, e)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
		if len(page) < opts.Limit {
			return entries, nil
		}
		opts.Offset += len(page)
	}
}

func loadOne[E any, P interface {
	*E
	model.Entity
}](ctx context.Context, svc *service.EntityService[E, P], id int64) (*entityEntry, error) {
	e, ok, err := svc.FindByID(ctx, id)
	if err != nil || !ok {
		return nil, err
	}
	return newEntry(ctx, svc, e)
}

func newEntry[E any, P interface {
	*E
	model.Entity
}](ctx context.Context, svc *service.EntityService[E, P], e P) (*entityEntry, error) {
	revs, err := svc.History(ctx, e.GetID())
	if err != nil {
		return nil, err
	}
	entry := &entityEntry{id: e.GetID(), label: label(e), revs: revs}
	if len(revs) > 0 {
		entry.lastSeen = revs[len(revs)-1].Time
	}
	return entry, nil
}

func label(e model.Entity) string {
	switch v := e.(type) {
	case *model.Coach:
		return v.FullName()
	case *model.Player:
		return v.Name
	case *model.Team:
		return v.Name
	default:
		return ""
	}
}
