package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	logStyleInfo = lipgloss.NewStyle().
			Foreground(ColorBrightBlue).
			Padding(0, 1)
	logStyleWarning = lipgloss.NewStyle().
			Background(ColorOrange).
			Foreground(ColorBlack).
			Padding(0, 1)
	logStyleError = lipgloss.NewStyle().
			Background(ColorRed).
			Foreground(ColorWhite).
			Bold(true).
			Padding(0, 1)
)

// LogView shows the lines collected by a [UILogger].
type LogView struct {
	Base

	viewport viewport.Model
	logger   *UILogger
	lines    int

	autoscroll bool
}

var _ View = (*LogView)(nil)

func NewLogView(logger *UILogger) *LogView {
	l := &LogView{
		logger:     logger,
		viewport:   viewport.New(10, 10),
		autoscroll: true,
	}
	l.renderLogView()
	return l
}

func (lv *LogView) SetSize(width, height int) {
	lv.Base.SetSize(width, height)
	lv.viewport.Width = max(width-2, 0)
	lv.viewport.Height = max(height-4, 0)
	if lv.autoscroll {
		lv.viewport.GotoBottom()
	}
}

func (lv *LogView) Breadcrumb() string {
	return "log"
}

func (lv *LogView) renderLogView() {
	messages := lv.logger.Messages()
	lv.logger.MarkRead()

	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, fmt.Sprintf("%s %-7s %s",
			msg.Time.Format("15:04:05"),
			levelString(msg.Level),
			msg.Text))
	}
	lv.lines = len(lines)
	lv.viewport.SetContent(strings.Join(lines, "\n"))
	if lv.autoscroll {
		lv.viewport.GotoBottom()
	}
}

func (lv *LogView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch v := msg.(type) {
	case tea.KeyMsg:
		switch v.String() {
		case "q", "esc":
			return lv, PushChangeView(Pop, nil)
		case "s":
			lv.autoscroll = !lv.autoscroll
			if lv.autoscroll {
				lv.viewport.GotoBottom()
			}
		default:
			ScrollViewport(v, &lv.viewport)
		}
	case LogMsg:
		lv.renderLogView()
	}
	return lv, nil
}

func (lv *LogView) View() string {
	return fmt.Sprintf("Log (%d) [autoscroll %s]\n\n%s",
		lv.lines,
		ternary(lv.autoscroll, "on", "off"),
		lv.Theme.BorderIdleContainerStyle.Render(lv.viewport.View()))
}

func (lv *LogView) KeyMap() string {
	return NewShortcuts(
		"q/esc", "go back",
		"s", "toggle autoscroll",
	).Render(lv.Theme)
}

func levelString(level LogLevel) string {
	switch level {
	case LogLevelInfo:
		return logStyleInfo.Render("INFO")
	case LogLevelWarning:
		return logStyleWarning.Render("WARN")
	case LogLevelError:
		return logStyleError.Render("ERROR")
	default:
		return "unknown"
	}
}
