package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codeatlas/pkg/hotspot"
	"github.com/Sumatoshi-tech/codeatlas/pkg/observability"
	"github.com/Sumatoshi-tech/codeatlas/pkg/plotpage"
	"github.com/Sumatoshi-tech/codeatlas/pkg/render"
)

// NewHotspotsCommand creates the hotspot ranking command.
func NewHotspotsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hotspots [path]",
		Short: "Rank the files changed most often up to a commit",
		Long: `Count, for every file, the commits from the oldest up to the chosen one
that changed it. No snapshot is built, so this is fast on long histories.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHotspots,
	}

	cmd.Flags().Int(flagAt, -1, "Commit position, 0 is the oldest (default: newest)")
	cmd.Flags().String(flagCommit, "", "Commit id or prefix; overrides --at")
	cmd.Flags().Int(flagTop, 0, "Number of files (default from config: 20)")
	cmd.Flags().String(flagFormat, string(render.FormatText), "Output format: text, json, yaml, plot")
	registerOutputFlag(cmd)
	registerHistoryFlags(cmd)

	return cmd
}

func runHotspots(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString(flagFormat)

	format, err := render.ParseFormat(name, render.FormatText, render.FormatJSON, render.FormatYAML, render.FormatPlot)
	if err != nil {
		return err
	}

	e, err := setup(cmd, observability.ModeCLI, nil)
	if err != nil {
		return err
	}
	defer e.close()

	reader, err := e.openReader(repoPath(args))
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	ctx := cmd.Context()

	cur, err := e.newCursor(ctx, reader, nil, true)
	if err != nil {
		return err
	}

	p, err := resolvePosition(cmd, cur)
	if err != nil {
		return err
	}

	sets, err := cur.ChangeSets(ctx, p)
	if err != nil {
		return err
	}

	top, _ := cmd.Flags().GetInt(flagTop)
	if top <= 0 {
		top = e.cfg.Visualize.HotspotLimit
	}

	entries := hotspot.Top(hotspot.Compute(sets), top)
	commit := cur.Commits()[p]

	w, finish, err := openOutput(cmd)
	if err != nil {
		return err
	}

	switch format {
	case render.FormatJSON:
		err = render.JSON(w, entries)
	case render.FormatYAML:
		err = render.YAML(w, entries)
	case render.FormatPlot:
		theme := plotpage.ParseTheme(e.cfg.Visualize.Theme)
		title := fmt.Sprintf("Hotspots up to %s", commit.ShortID())

		page := plotpage.NewPage(title, commit.Subject()).WithTheme(theme)
		page.Add(plotpage.Section{
			ID:       "hotspots",
			Title:    "Most changed files",
			Subtitle: fmt.Sprintf("Commits 1 to %d of %d", p+1, cur.Len()),
			Content:  plotpage.WrapChart(hotspot.Chart(plotpage.NewChartOpts(theme), "", entries)),
		})

		err = page.Render(w)
	default:
		fmt.Fprintf(w, "Hotspots up to %s (%d/%d) %s\n\n", commit.ShortID(), p+1, cur.Len(), commit.Subject())
		err = hotspot.Table(w, entries)
	}

	if err != nil {
		_ = finish()

		return err
	}

	return finish()
}
