// Package ui is the terminal browser for the roster history.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/loog-project/roster/pkg/zack"
)

type Baser interface {
	SetSize(width, height int)
	SetTheme(theme Theme)
}

// View is the interface that all views must implement.
type View interface {
	Baser

	Update(tea.Msg) (View, tea.Cmd)
	View() string
	KeyMap() string
	Breadcrumb() string
}

// Root is the bubbletea model. It owns a stack of views and renders the top one
// above a status bar.
type Root struct {
	Width, Height int
	Theme         Theme

	Views        *zack.Router[View]
	ShuttingDown bool

	Logger *UILogger
}

var _ tea.Model = Root{}

func NewRoot(theme Theme, logger *UILogger, first View) Root {
	r := Root{
		Theme:  theme,
		Logger: logger,
	}
	r.Views = zack.NewRouter(r.applyTo(first))
	return r
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (r Root) Init() tea.Cmd {
	cmds := []tea.Cmd{tick()}
	if v, ok := r.Views.Views()[0].(interface{ Init() tea.Cmd }); ok {
		cmds = append(cmds, v.Init())
	}
	return tea.Batch(cmds...)
}

func (r Root) applyTo(v View) View {
	v.SetSize(r.Width, r.Height)
	v.SetTheme(r.Theme)
	return v
}

// isViewOpen checks if the top view is of type T.
func isViewOpen[T View](r Root) bool {
	_, isOpen := r.Views.Peek().(T)
	return isOpen
}

func (r Root) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch v := msg.(type) {
	case pushViewMsg:
		switch v.pushType {
		case Push:
			r.Views.Push(r.applyTo(v.view))
		case Replace:
			r.Views.Replace(r.applyTo(v.view))
		case Pop:
			r.Views.Pop()
		}
		return r, nil

	case alertMsg:
		pt := Push
		if isViewOpen[*AlertView](r) {
			pt = Replace
		}
		return r, PushChangeView(pt, &AlertView{Title: v.Title, Err: v.Err})

	case tickMsg:
		cmds = append(cmds, tick())

	case tea.WindowSizeMsg:
		r.Width = v.Width
		r.Height = v.Height - 1 // status bar
		for _, view := range r.Views.Views() {
			view.SetSize(r.Width, r.Height)
		}

	case tea.KeyMsg:
		switch v.String() {
		case "ctrl+c":
			r.ShuttingDown = true
			return r, tea.Quit
		case "L":
			if r.Logger == nil {
				break
			}
			if isViewOpen[*LogView](r) {
				return r, PushChangeView(Pop, nil)
			}
			return r, PushChangeView(Push, NewLogView(r.Logger))
		}
	}

	// keys go to the top view only, data to every view so the ones below stay current
	views := r.Views.Views()
	first := 0
	if _, isKey := msg.(tea.KeyMsg); isKey {
		first = len(views) - 1
	}
	for i := first; i < len(views); i++ {
		var cmd tea.Cmd
		views[i], cmd = views[i].Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	return r, tea.Batch(cmds...)
}

func (r Root) renderBar(breadcrumbs, help string) string {
	breadcrumbsRender := r.Theme.BreadcrumbBarStyle.Render(breadcrumbs)

	var logRender string
	if r.Logger != nil && !isViewOpen[*LogView](r) {
		if info, warn, errs := r.Logger.Unread(); info+warn+errs > 0 {
			logRender = r.Theme.LoggerBarStyle.Render(fmt.Sprintf("L %di|%dw|%de", info, warn, errs))
		}
	}

	helpRender := r.Theme.HelpBarStyle.
		Width(max(r.Width-lipgloss.Width(breadcrumbsRender)-lipgloss.Width(logRender), 0)).
		Render(help)

	return lipgloss.JoinHorizontal(lipgloss.Top, helpRender, breadcrumbsRender, logRender)
}

func (r Root) View() string {
	if r.Height == 0 && r.Width == 0 {
		return "" // no size yet
	}
	if r.ShuttingDown {
		// keeps the last frame out of the terminal after quitting
		return r.Theme.MutedTextStyle.Render("Bye!")
	}

	top := r.Views.Peek()
	breadcrumbs := make([]string, 0, r.Views.Len())
	for _, view := range r.Views.Views() {
		breadcrumbs = append(breadcrumbs, view.Breadcrumb())
	}

	return top.View() + "\n" + r.renderBar(strings.Join(breadcrumbs, " ⟩ "), top.KeyMap())
}
