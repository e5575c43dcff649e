package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codeatlas/pkg/observability"
	"github.com/Sumatoshi-tech/codeatlas/pkg/plotpage"
	"github.com/Sumatoshi-tech/codeatlas/pkg/render"
	"github.com/Sumatoshi-tech/codeatlas/pkg/timeline"
)

// NewTimelineCommand creates the commit timeline command.
func NewTimelineCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timeline [path]",
		Short: "List commits newest first with the files each one changed",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTimeline,
	}

	cmd.Flags().String(flagFormat, string(render.FormatText), "Output format: text, html, json, yaml")
	registerOutputFlag(cmd)
	registerHistoryFlags(cmd)

	return cmd
}

func runTimeline(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString(flagFormat)

	format, err := render.ParseFormat(name, render.FormatText, render.FormatHTML, render.FormatJSON, render.FormatYAML)
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

	entries, err := timeline.Build(cmd.Context(), reader)
	if err != nil {
		return err
	}

	w, finish, err := openOutput(cmd)
	if err != nil {
		return err
	}

	switch format {
	case render.FormatHTML:
		err = timeline.WriteHTML(w, entries, plotpage.ParseTheme(e.cfg.Visualize.Theme))
	case render.FormatJSON:
		err = render.JSON(w, entries)
	case render.FormatYAML:
		err = render.YAML(w, entries)
	default:
		err = timeline.WriteText(w, entries, time.Now())
	}

	if err != nil {
		_ = finish()

		return err
	}

	return finish()
}
