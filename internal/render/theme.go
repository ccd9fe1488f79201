package render

import (
	"charm.land/lipgloss/v2"
)

// Color palette
var (
	Primary = lipgloss.Color("#8B5CF6") // Vivid Purple
	Accent  = lipgloss.Color("#F97316") // Orange
	Success = lipgloss.Color("#22C55E") // Green
	Error   = lipgloss.Color("#F43F5E") // Rose
	Text    = lipgloss.Color("#F8FAFC") // White
	TextDim = lipgloss.Color("#94A3B8") // Slate
	Border  = lipgloss.Color("#334155") // Slate
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	StarFilled = lipgloss.NewStyle().
			Foreground(Accent)

	StarEmpty = lipgloss.NewStyle().
			Foreground(TextDim)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	HeaderCell = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)
)

// stateStyle colours a state name by how far the attempt has progressed.
func stateStyle(finished, invalid bool) lipgloss.Style {
	switch {
	case invalid:
		return lipgloss.NewStyle().Foreground(Error)
	case finished:
		return lipgloss.NewStyle().Foreground(Success)
	default:
		return Body
	}
}
