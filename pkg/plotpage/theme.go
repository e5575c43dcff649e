package plotpage

import "github.com/Sumatoshi-tech/codeatlas/pkg/cursor"

// Theme names a colour scheme for rendered pages.
type Theme string

// Themes.
const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ThemeConfig holds the CSS and chart colours of a theme.
type ThemeConfig struct {
	Background    string
	Surface       string
	Border        string
	TextPrimary   string
	TextSecondary string
	TextMuted     string
	Accent        string

	ChartBackground string
	ChartGrid       string
	ChartAxis       string
	ChartText       string
	ChartTextMuted  string

	// Colours of the change classes.
	New       string
	Ongoing   string
	Unchanged string
	Folder    string
}

// ParseTheme maps a config value to a Theme. Unknown values yield ThemeDark.
func ParseTheme(name string) Theme {
	if Theme(name) == ThemeLight {
		return ThemeLight
	}

	return ThemeDark
}

// GetThemeConfig returns the configuration of theme.
func GetThemeConfig(theme Theme) ThemeConfig {
	if theme == ThemeLight {
		return lightTheme
	}

	return darkTheme
}

// ColorOf returns the display colour of a change class.
func (tc ThemeConfig) ColorOf(color cursor.Color) string {
	switch color {
	case cursor.ColorNew:
		return tc.New
	case cursor.ColorOngoing:
		return tc.Ongoing
	default:
		return tc.Unchanged
	}
}

var lightTheme = ThemeConfig{
	Background:    "#fafaf9", // stone-50.
	Surface:       "#ffffff",
	Border:        "#e7e5e4", // stone-200.
	TextPrimary:   "#1c1917", // stone-900.
	TextSecondary: "#44403c", // stone-700.
	TextMuted:     "#78716c", // stone-500.
	Accent:        "#a16207", // amber-700.

	ChartBackground: "transparent",
	ChartGrid:       "#e7e5e4",
	ChartAxis:       "#a8a29e", // stone-400.
	ChartText:       "#44403c",
	ChartTextMuted:  "#78716c",

	New:       "#dc2626", // red-600.
	Ongoing:   "#ca8a04", // yellow-600.
	Unchanged: "#a8a29e",
	Folder:    "#e7e5e4",
}

var darkTheme = ThemeConfig{
	Background:    "#0c0a09", // stone-950.
	Surface:       "#1c1917", // stone-900.
	Border:        "#44403c", // stone-700.
	TextPrimary:   "#fafaf9",
	TextSecondary: "#d6d3d1", // stone-300.
	TextMuted:     "#a8a29e", // stone-400.
	Accent:        "#d97706", // amber-600.

	ChartBackground: "transparent",
	ChartGrid:       "#44403c",
	ChartAxis:       "#57534e", // stone-600.
	ChartText:       "#d6d3d1",
	ChartTextMuted:  "#a8a29e",

	New:       "#ef4444", // red-500.
	Ongoing:   "#eab308", // yellow-500.
	Unchanged: "#57534e",
	Folder:    "#292524", // stone-800.
}
