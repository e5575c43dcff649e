package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codeatlas/internal/server"
	"github.com/Sumatoshi-tech/codeatlas/pkg/cursor"
	"github.com/Sumatoshi-tech/codeatlas/pkg/observability"
	"github.com/Sumatoshi-tech/codeatlas/pkg/plotpage"
	"github.com/Sumatoshi-tech/codeatlas/pkg/session"
)

const (
	flagHost = "host"
	flagPort = "port"
)

// NewVisualizeCommand creates the browser server command.
func NewVisualizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visualize [path]",
		Short: "Serve the interactive history view in the browser",
		Long: `Start an HTTP server for the repository at path (default: current directory).

Each browser tab gets its own session over a WebSocket and steps through the
history independently. The server also exposes /api/commits,
/api/snapshots/{index}, /timeline, /healthz, /readyz and /metrics.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runVisualize,
	}

	cmd.Flags().String(flagHost, "", "Listen host (default from config: 127.0.0.1)")
	cmd.Flags().Int(flagPort, 0, "Listen port (default from config: 8765)")
	registerHistoryFlags(cmd)

	return cmd
}

func runVisualize(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd, observability.ModeServe, nil)
	if err != nil {
		return err
	}
	defer e.close()

	if cmd.Flags().Changed(flagHost) {
		e.cfg.Server.Host, _ = cmd.Flags().GetString(flagHost)
	}

	if cmd.Flags().Changed(flagPort) {
		e.cfg.Server.Port, _ = cmd.Flags().GetInt(flagPort)
	}

	path := repoPath(args)

	reader, err := e.openReader(path)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	red, err := observability.NewREDMetrics(e.providers.Meter)
	if err != nil {
		return fmt.Errorf("create request metrics: %w", err)
	}

	metrics, err := observability.NewSnapshotMetrics(e.providers.Meter)
	if err != nil {
		return fmt.Errorf("create snapshot metrics: %w", err)
	}

	ctx := cmd.Context()

	factory := func(ctx context.Context) (*cursor.Cursor, error) {
		return e.newCursor(ctx, reader, metrics, false)
	}

	// The snapshot API serves any position on request.
	shared, err := e.newCursor(ctx, reader, metrics, true)
	if err != nil {
		return err
	}

	manager := session.NewManager(factory, session.Options{
		HotspotLimit: e.cfg.Visualize.HotspotLimit,
		Logger:       e.logger,
		Metrics:      metrics,
	})

	title := path
	if abs, absErr := filepath.Abs(path); absErr == nil {
		title = filepath.Base(abs)
	}

	srv := server.New(manager, shared, reader, server.Options{
		Addr:           e.cfg.Server.Addr(),
		ReadTimeout:    e.cfg.Server.ReadTimeout,
		WriteTimeout:   e.cfg.Server.WriteTimeout,
		IdleTimeout:    e.cfg.Server.IdleTimeout,
		Title:          title,
		Theme:          plotpage.ParseTheme(e.cfg.Visualize.Theme),
		Logger:         e.logger,
		Tracer:         e.providers.Tracer,
		RED:            red,
		MetricsHandler: e.providers.MetricsHandler,
	})

	return srv.ListenAndServe(ctx)
}
