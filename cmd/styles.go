package cmd

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const (
	purple    = lipgloss.Color("99")
	orange    = lipgloss.Color("214")
	gray      = lipgloss.Color("245")
	lightGray = lipgloss.Color("241")
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(purple).
			Bold(true).
			Align(lipgloss.Center)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)
	oddRowStyle = cellStyle.
			Foreground(gray)
	evenRowStyle = cellStyle.
			Foreground(lightGray)

	snapshotStyle = lipgloss.NewStyle().
			Foreground(orange).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Foreground(purple).
			Bold(true)
)

func tableStyleFunc(row, _ int) lipgloss.Style {
	switch {
	case row == table.HeaderRow:
		return headerStyle
	case row%2 == 0:
		return evenRowStyle
	default:
		return oddRowStyle
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lightGray)).
		StyleFunc(tableStyleFunc).
		Headers(headers...)
}
