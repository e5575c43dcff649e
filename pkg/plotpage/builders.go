package plotpage

import (
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartHeight      = "500px"
	labelRotate      = 35
	treemapLeafDepth = 3
	treemapGapWidth  = 2
)

// BuildBarChart builds a single-series bar chart. A nil cOpts uses the
// dark theme.
func BuildBarChart(cOpts *ChartOpts, title, series string, labels []string, values []int) *charts.Bar {
	if cOpts == nil {
		cOpts = NewChartOpts(ThemeDark)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(cOpts.Init("100%", chartHeight)),
		charts.WithTitleOpts(cOpts.Title(title, "")),
		charts.WithTooltipOpts(cOpts.Tooltip("axis")),
		charts.WithGridOpts(cOpts.Grid()),
		charts.WithDataZoomOpts(cOpts.DataZoom()...),
		charts.WithXAxisOpts(cOpts.XAxis("", labelRotate)),
		charts.WithYAxisOpts(cOpts.YAxis(series)),
	)

	data := make([]opts.BarData, len(values))
	for i, v := range values {
		data[i] = opts.BarData{Value: v}
	}

	bar.SetXAxis(labels)
	bar.AddSeries(series, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: cOpts.Theme().Accent}))

	return bar
}

// BuildTreeMap builds a roamable treemap over nodes.
func BuildTreeMap(cOpts *ChartOpts, title string, nodes []opts.TreeMapNode) *charts.TreeMap {
	if cOpts == nil {
		cOpts = NewChartOpts(ThemeDark)
	}

	theme := cOpts.Theme()

	tm := charts.NewTreeMap()
	tm.SetGlobalOptions(
		charts.WithInitializationOpts(cOpts.Init("100%", chartHeight)),
		charts.WithTitleOpts(cOpts.Title(title, "")),
		charts.WithTooltipOpts(cOpts.Tooltip("item")),
	)

	tm.AddSeries(title, nodes, charts.WithTreeMapOpts(opts.TreeMapChart{
		Animation:  opts.Bool(true),
		Roam:       opts.Bool(true),
		LeafDepth:  treemapLeafDepth,
		Label:      &opts.Label{Show: opts.Bool(true), Formatter: "{b}"},
		UpperLabel: &opts.UpperLabel{Show: opts.Bool(true)},
		Levels: &[]opts.TreeMapLevel{
			{ItemStyle: &opts.ItemStyle{BorderColor: theme.Border, GapWidth: treemapGapWidth}},
			{ItemStyle: &opts.ItemStyle{BorderColor: theme.Border, GapWidth: 1}},
		},
		Left: "2%", Right: "2%", Top: "12%", Bottom: "2%",
	}))

	return tm
}
