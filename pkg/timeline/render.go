package timeline

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/codeatlas/pkg/plotpage"
)

const (
	dayLayout     = time.DateOnly
	subjectMaxLen = 72
)

var entriesTmpl = template.Must(template.New("timeline").Parse(`<ol class="timeline">
{{- range .}}
  <li>
    <details>
      <summary><strong>{{.Subject}}</strong> <code>{{.ShortID}}</code></summary>
      <p>{{.Timestamp.Format "2006-01-02 15:04"}} by <b>{{.Author}}</b></p>
      <ul class="mono">{{range .Files}}<li>{{.}}</li>{{end}}</ul>
    </details>
  </li>
{{- end}}
</ol>`))

// WriteHTML renders entries as a page with an activity chart and a
// collapsible file list per commit.
func WriteHTML(w io.Writer, entries []Entry, theme plotpage.Theme) error {
	var list strings.Builder

	err := entriesTmpl.Execute(&list, entries)
	if err != nil {
		return fmt.Errorf("render timeline entries: %w", err)
	}

	labels, counts := activity(entries)

	page := plotpage.NewPage("Commit Timeline", fmt.Sprintf("%d commits", len(entries))).WithTheme(theme)
	page.Add(
		plotpage.Section{
			ID:      "activity",
			Title:   "Activity",
			Content: plotpage.WrapChart(plotpage.BuildBarChart(plotpage.NewChartOpts(theme), "", "Commits", labels, counts)),
		},
		plotpage.Section{
			ID:      "commits",
			Title:   "Commits",
			Content: plotpage.HTML(list.String()), //nolint:gosec // html/template output.
		},
	)

	return page.Render(w)
}

// activity counts commits per day, oldest day first.
func activity(entries []Entry) ([]string, []int) {
	var (
		labels []string
		counts []int
	)

	for i := len(entries) - 1; i >= 0; i-- {
		day := entries[i].Timestamp.UTC().Format(dayLayout)

		if n := len(labels); n > 0 && labels[n-1] == day {
			counts[n-1]++

			continue
		}

		labels = append(labels, day)
		counts = append(counts, 1)
	}

	return labels, counts
}

// WriteText renders entries as a table with times relative to now.
func WriteText(w io.Writer, entries []Entry, now time.Time) error {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false

	tbl.AppendHeader(table.Row{"Commit", "When", "Author", "Files", "Message"})

	for _, e := range entries {
		tbl.AppendRow(table.Row{
			e.ShortID(),
			humanize.RelTime(e.Timestamp, now, "ago", "from now"),
			e.Author,
			humanize.Comma(int64(len(e.Files))),
			truncate(e.Subject(), subjectMaxLen),
		})
	}

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write timeline table: %w", err)
	}

	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n-1]) + "…"
}
