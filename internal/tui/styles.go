package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Sumatoshi-tech/codeatlas/pkg/cursor"
	"github.com/Sumatoshi-tech/codeatlas/pkg/plotpage"
)

const (
	treeExpanded  = "▼ "
	treeCollapsed = "▶ "
	treeLeaf      = "  "
)

// Styles are the lipgloss styles of one theme.
type Styles struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Muted     lipgloss.Style
	Folder    lipgloss.Style
	Selected  lipgloss.Style
	Error     lipgloss.Style
	Panel     lipgloss.Style
	Bar       lipgloss.Style
	New       lipgloss.Style
	Ongoing   lipgloss.Style
	Unchanged lipgloss.Style
}

// NewStyles derives styles from the page theme so both surfaces agree on
// colours.
func NewStyles(theme plotpage.Theme) Styles {
	tc := plotpage.GetThemeConfig(theme)

	return Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(tc.Accent)),
		Subtitle:  lipgloss.NewStyle().Foreground(lipgloss.Color(tc.TextSecondary)).Italic(true),
		Muted:     lipgloss.NewStyle().Foreground(lipgloss.Color(tc.TextMuted)),
		Folder:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(tc.Folder)),
		Selected:  lipgloss.NewStyle().Reverse(true).Bold(true),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color(tc.New)).Bold(true),
		Panel:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(tc.Border)).Padding(0, 1),
		Bar:       lipgloss.NewStyle().Foreground(lipgloss.Color(tc.Accent)),
		New:       lipgloss.NewStyle().Foreground(lipgloss.Color(tc.New)),
		Ongoing:   lipgloss.NewStyle().Foreground(lipgloss.Color(tc.Ongoing)),
		Unchanged: lipgloss.NewStyle().Foreground(lipgloss.Color(tc.Unchanged)),
	}
}

// Of returns the style of a change class.
func (s Styles) Of(color cursor.Color) lipgloss.Style {
	switch color {
	case cursor.ColorNew:
		return s.New
	case cursor.ColorOngoing:
		return s.Ongoing
	default:
		return s.Unchanged
	}
}
