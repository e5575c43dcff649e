package commands

import (
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codeatlas/internal/tui"
	"github.com/Sumatoshi-tech/codeatlas/pkg/observability"
	"github.com/Sumatoshi-tech/codeatlas/pkg/plotpage"
	"github.com/Sumatoshi-tech/codeatlas/pkg/session"
)

// NewTUICommand creates the terminal browser command.
func NewTUICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui [path]",
		Short: "Browse the history in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTUI,
	}

	registerHistoryFlags(cmd)

	return cmd
}

func runTUI(cmd *cobra.Command, args []string) error {
	// Logs would tear the alternate screen.
	e, err := setup(cmd, observability.ModeTUI, io.Discard)
	if err != nil {
		return err
	}
	defer e.close()

	path := repoPath(args)

	reader, err := e.openReader(path)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	ctx := cmd.Context()

	cur, err := e.newCursor(ctx, reader, nil, false)
	if err != nil {
		return err
	}

	sess := session.New(ctx, uuid.NewString(), cur, session.Options{
		HotspotLimit: e.cfg.Visualize.HotspotLimit,
		Logger:       e.logger,
	})
	defer sess.Close()

	title := path
	if abs, absErr := filepath.Abs(path); absErr == nil {
		title = filepath.Base(abs)
	}

	return tui.Run(ctx, sess, tui.Options{Title: title, Theme: plotpage.ParseTheme(e.cfg.Visualize.Theme)})
}
