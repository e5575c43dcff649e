package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codeatlas/pkg/mcp"
	"github.com/Sumatoshi-tech/codeatlas/pkg/observability"
	"github.com/Sumatoshi-tech/codeatlas/pkg/version"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes repository history as tools that AI agents can discover
and invoke:
  - codeatlas_commits: commits oldest first, optionally with changed files
  - codeatlas_snapshot: every file at one commit with its last change
  - codeatlas_hotspots: the most frequently changed files up to a commit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd, observability.ModeMCP, nil)
			if err != nil {
				return err
			}
			defer e.close()

			red, err := observability.NewREDMetrics(e.providers.Meter)
			if err != nil {
				return fmt.Errorf("create request metrics: %w", err)
			}

			opts, err := e.cfg.History.Options()
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:  e.logger,
				Metrics: red,
				Tracer:  e.providers.Tracer,
				Version: version.Version,
				History: opts,
			})

			return srv.Run(cmd.Context())
		},
	}
}
