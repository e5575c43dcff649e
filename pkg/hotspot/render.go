package hotspot

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/codeatlas/pkg/plotpage"
)

// Chart renders entries as a bar chart, one bar per path.
func Chart(cOpts *plotpage.ChartOpts, title string, entries []Entry) *charts.Bar {
	labels := make([]string, len(entries))
	values := make([]int, len(entries))

	for i, e := range entries {
		labels[i] = e.Path
		values[i] = e.Count
	}

	return plotpage.BuildBarChart(cOpts, title, "Changes", labels, values)
}

// Table writes entries as a ranked text table.
func Table(w io.Writer, entries []Entry) error {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false

	tbl.AppendHeader(table.Row{"#", "Path", "Changes"})

	for i, e := range entries {
		tbl.AppendRow(table.Row{strconv.Itoa(i + 1), e.Path, e.Count})
	}

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write hotspot table: %w", err)
	}

	return nil
}
