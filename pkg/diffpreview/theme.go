package diffpreview

import "github.com/charmbracelet/lipgloss"

// Theme styles the parts of a rendered diff.
type Theme struct {
	KeyStyle    lipgloss.Style
	StringStyle lipgloss.Style
	NumberStyle lipgloss.Style
	BoolStyle   lipgloss.Style
	NullStyle   lipgloss.Style

	AddedStyle    lipgloss.Style
	RemovedStyle  lipgloss.Style
	ModifiedStyle lipgloss.Style
}

var DarkTheme = Theme{
	KeyStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
	StringStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("#61AFEF")),
	NumberStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("#61AFEF")),
	BoolStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
	NullStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true),

	AddedStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("#A9DC76")).Bold(true),
	RemovedStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75")).Bold(true),
	ModifiedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Bold(true),
}

// PlainTheme renders without any styling, e.g. for tests or when output is not a terminal.
var PlainTheme = Theme{}

func (t Theme) value(v any) string {
	switch v := v.(type) {
	case nil:
		return t.NullStyle.Render("null")
	case string:
		return t.StringStyle.Render(`"` + v + `"`)
	case bool:
		return t.BoolStyle.Render(formatScalar(v))
	case float64, float32, int, int64, uint64:
		return t.NumberStyle.Render(formatScalar(v))
	default:
		return formatScalar(v)
	}
}

func (t Theme) marker(c Change) string {
	switch c {
	case Added:
		return t.AddedStyle.Render("+")
	case Removed:
		return t.RemovedStyle.Render("-")
	case Modified:
		return t.ModifiedStyle.Render("~")
	default:
		return " "
	}
}
