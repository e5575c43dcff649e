package plotpage

import (
	"github.com/go-echarts/go-echarts/v2/opts"
)

const dataZoomEndPercent = 100

// ChartOpts provides chart options coloured by a theme.
type ChartOpts struct {
	theme ThemeConfig
}

// NewChartOpts creates ChartOpts for theme.
func NewChartOpts(theme Theme) *ChartOpts {
	return &ChartOpts{theme: GetThemeConfig(theme)}
}

// Init returns initialization options with the themed background.
func (c *ChartOpts) Init(width, height string) opts.Initialization {
	return opts.Initialization{
		Width:           width,
		Height:          height,
		BackgroundColor: c.theme.ChartBackground,
	}
}

// Title returns title options with themed text colours.
func (c *ChartOpts) Title(title, subtitle string) opts.Title {
	return opts.Title{
		Title:         title,
		Subtitle:      subtitle,
		Left:          "center",
		TitleStyle:    &opts.TextStyle{Color: c.theme.ChartText},
		SubtitleStyle: &opts.TextStyle{Color: c.theme.ChartTextMuted},
	}
}

// XAxis returns x-axis options with rotated labels.
func (c *ChartOpts) XAxis(name string, rotate float64) opts.XAxis {
	return opts.XAxis{
		Name:      name,
		AxisLabel: &opts.AxisLabel{Color: c.theme.ChartTextMuted, Rotate: rotate, Interval: "0"},
		AxisLine:  &opts.AxisLine{LineStyle: &opts.LineStyle{Color: c.theme.ChartAxis}},
	}
}

// YAxis returns y-axis options with a themed grid.
func (c *ChartOpts) YAxis(name string) opts.YAxis {
	return opts.YAxis{
		Name:      name,
		AxisLabel: &opts.AxisLabel{Color: c.theme.ChartTextMuted},
		AxisLine:  &opts.AxisLine{LineStyle: &opts.LineStyle{Color: c.theme.ChartAxis}},
		SplitLine: &opts.SplitLine{
			Show:      opts.Bool(true),
			LineStyle: &opts.LineStyle{Color: c.theme.ChartGrid},
		},
	}
}

// Grid returns grid options with standard margins.
func (c *ChartOpts) Grid() opts.Grid {
	return opts.Grid{
		Top:          "20%",
		Bottom:       "20%",
		Left:         "5%",
		Right:        "5%",
		ContainLabel: opts.Bool(true),
	}
}

// DataZoom returns slider and wheel zoom.
func (c *ChartOpts) DataZoom() []opts.DataZoom {
	return []opts.DataZoom{
		{Type: "slider", Start: 0, End: dataZoomEndPercent},
		{Type: "inside"},
	}
}

// Tooltip returns tooltip options.
func (c *ChartOpts) Tooltip(trigger string) opts.Tooltip {
	return opts.Tooltip{Show: opts.Bool(true), Trigger: trigger}
}

// Theme returns the underlying theme colours.
func (c *ChartOpts) Theme() ThemeConfig {
	return c.theme
}
