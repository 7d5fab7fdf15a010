package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/loog-project/roster/pkg/diffpreview"
)

var (
	ColorRed         = lipgloss.Color("1")
	ColorBlack       = lipgloss.Color("0")
	ColorWhite       = lipgloss.Color("7")
	ColorBrightBlue  = lipgloss.Color("33")
	ColorLightGray   = lipgloss.Color("243")
	ColorGray        = lipgloss.Color("238")
	ColorMutedPurple = lipgloss.Color("92")
	ColorOrange      = lipgloss.Color("214")
)

type Theme struct {
	ListKindNameTextStyle     lipgloss.Style
	ListEntityIDTextStyle     lipgloss.Style
	ListActivityTextStyle     lipgloss.Style
	ListRevisionTextStyle     lipgloss.Style
	ListCurrentArrowTextStyle lipgloss.Style

	AlertDialogContainerStyle  lipgloss.Style
	BorderActiveContainerStyle lipgloss.Style
	BorderIdleContainerStyle   lipgloss.Style

	MutedTextStyle   lipgloss.Style
	ErrorTextStyle   lipgloss.Style
	PrimaryTextStyle lipgloss.Style

	BreadcrumbBarStyle lipgloss.Style
	HelpBarStyle       lipgloss.Style
	LoggerBarStyle     lipgloss.Style

	// Diff renders revision previews.
	Diff diffpreview.Theme
}

var DarkTheme = Theme{
	ListKindNameTextStyle: lipgloss.NewStyle().
		Bold(true),
	ListEntityIDTextStyle: lipgloss.NewStyle().
		Foreground(ColorGray).
		Italic(true),
	ListActivityTextStyle: lipgloss.NewStyle().
		Foreground(ColorOrange).
		Bold(true),
	ListRevisionTextStyle: lipgloss.NewStyle().
		Foreground(ColorMutedPurple),
	ListCurrentArrowTextStyle: lipgloss.NewStyle().
		Foreground(ColorBrightBlue),

	AlertDialogContainerStyle: lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(ColorRed).
		Padding(4, 4),
	BorderActiveContainerStyle: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBrightBlue),
	BorderIdleContainerStyle: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorGray),

	MutedTextStyle: lipgloss.NewStyle().
		Foreground(ColorLightGray),
	ErrorTextStyle: lipgloss.NewStyle().
		Foreground(ColorRed).
		Bold(true),
	PrimaryTextStyle: lipgloss.NewStyle().
		Foreground(ColorBrightBlue),

	BreadcrumbBarStyle: lipgloss.NewStyle().
		Padding(0, 1).
		Background(ColorBrightBlue).
		Foreground(ColorWhite),
	HelpBarStyle: lipgloss.NewStyle().
		Padding(0, 1),
	LoggerBarStyle: lipgloss.NewStyle().
		Padding(0, 1).
		Background(ColorOrange).
		Foreground(ColorBlack),

	Diff: diffpreview.DarkTheme,
}

// PlainTheme renders without any colors or borders.
var PlainTheme = Theme{Diff: diffpreview.PlainTheme}
