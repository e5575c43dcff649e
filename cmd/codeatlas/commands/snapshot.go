package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codeatlas/pkg/cursor"
	"github.com/Sumatoshi-tech/codeatlas/pkg/hierarchy"
	"github.com/Sumatoshi-tech/codeatlas/pkg/history"
	"github.com/Sumatoshi-tech/codeatlas/pkg/observability"
	"github.com/Sumatoshi-tech/codeatlas/pkg/plotpage"
	"github.com/Sumatoshi-tech/codeatlas/pkg/render"
	"github.com/Sumatoshi-tech/codeatlas/pkg/snapshot"
)

// snapshotReport is the machine-readable form of one snapshot.
type snapshotReport struct {
	Total    int                `json:"total"    yaml:"total"`
	Commit   history.Commit     `json:"commit"   yaml:"commit"`
	Snapshot *snapshot.Snapshot `json:"snapshot" yaml:"snapshot"`
	Colors   cursor.Coloring    `json:"colors"   yaml:"colors"`
}

// NewSnapshotCommand creates the snapshot dump command.
func NewSnapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot [path]",
		Short: "Print every file at one commit with the commit that last changed it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSnapshot,
	}

	cmd.Flags().Int(flagAt, -1, "Commit position, 0 is the oldest (default: newest)")
	cmd.Flags().String(flagCommit, "", "Commit id or prefix; overrides --at")
	cmd.Flags().String(flagFormat, string(render.FormatText), "Output format: text, json, yaml, plot")
	registerOutputFlag(cmd)
	registerHistoryFlags(cmd)

	return cmd
}

func runSnapshot(cmd *cobra.Command, args []string) error {
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

	snap, err := cur.JumpTo(ctx, p)
	if err != nil {
		return err
	}

	colors, err := cur.Colors(ctx)
	if err != nil {
		return err
	}

	report := snapshotReport{Total: cur.Len(), Commit: cur.Commits()[p], Snapshot: snap, Colors: colors}

	w, finish, err := openOutput(cmd)
	if err != nil {
		return err
	}

	switch format {
	case render.FormatJSON:
		err = render.JSON(w, report)
	case render.FormatYAML:
		err = render.YAML(w, report)
	case render.FormatPlot:
		err = writeSnapshotPlot(w, plotpage.ParseTheme(e.cfg.Visualize.Theme), report)
	default:
		err = writeSnapshotText(w, render.NewPainter(w), report)
	}

	if err != nil {
		_ = finish()

		return err
	}

	return finish()
}

func writeSnapshotPlot(w io.Writer, theme plotpage.Theme, r snapshotReport) error {
	c := r.Commit
	tree := hierarchy.Build(r.Snapshot, r.Colors)

	page := plotpage.NewPage(fmt.Sprintf("Files at %s", c.ShortID()), c.Subject()).WithTheme(theme)
	page.Add(plotpage.Section{
		ID:       "hierarchy",
		Title:    "File hierarchy",
		Subtitle: fmt.Sprintf("Commit %d of %d, %d files", r.Snapshot.Position+1, r.Total, len(r.Snapshot.AllFiles)),
		Content:  plotpage.WrapChart(hierarchy.Chart(plotpage.NewChartOpts(theme), "", tree)),
	})

	return page.Render(w)
}

func writeSnapshotText(w io.Writer, painter *render.Painter, r snapshotReport) error {
	c := r.Commit

	_, err := fmt.Fprintf(w, "%s  %d/%d  %s  %s\n%s\n\n",
		c.ShortID(), r.Snapshot.Position+1, r.Total, c.Author, c.Timestamp.Format("2006-01-02 15:04"), c.Subject())
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	for _, entry := range r.Snapshot.AllFiles {
		class := r.Colors.Of(entry.Path)

		_, err = fmt.Fprintf(w, "%-9s %s  @%d\n", class, painter.Paint(class, entry.Path), entry.LastModifiedIndex+1)
		if err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
	}

	for _, path := range r.Snapshot.FilesChanged {
		if _, ok := r.Snapshot.Entry(path); !ok {
			_, err = fmt.Fprintf(w, "%-9s %s  (deleted)\n", r.Colors.Of(path), painter.Paint(r.Colors.Of(path), path))
			if err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
		}
	}

	return nil
}
