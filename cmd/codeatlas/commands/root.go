// Package commands implements CLI command handlers for codeatlas.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codeatlas/internal/config"
	"github.com/Sumatoshi-tech/codeatlas/pkg/cursor"
	"github.com/Sumatoshi-tech/codeatlas/pkg/history"
	"github.com/Sumatoshi-tech/codeatlas/pkg/observability"
	"github.com/Sumatoshi-tech/codeatlas/pkg/snapshot"
	"github.com/Sumatoshi-tech/codeatlas/pkg/version"
)

// Flag names shared by several commands.
const (
	flagConfig      = "config"
	flagLogLevel    = "log-level"
	flagLogJSON     = "log-json"
	flagBackend     = "backend"
	flagEagerIndex  = "eager-index"
	flagFirstParent = "first-parent"
	flagLimit       = "limit"
	flagSince       = "since"
	flagFormat      = "format"
	flagOutput      = "output"
	flagAt          = "at"
	flagCommit      = "commit"
	flagTop         = "top"
)

// NewRootCommand builds the codeatlas command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "codeatlas",
		Short: "CodeAtlas - replay a repository's history as an animated file tree",
		Long: `CodeAtlas walks the commit history of a Git repository and shows, commit by
commit, the file hierarchy coloured by how recently each file changed.

Commands:
  visualize  Serve the interactive browser view
  tui        Browse history in the terminal
  timeline   List commits newest first with the files they changed
  hotspots   Rank the most frequently changed files
  snapshot   Print the file listing at one commit
  mcp        Serve history queries to AI agents over MCP`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String(flagConfig, "", "Config file (default: .codeatlas.yaml in . or $HOME)")
	flags.String(flagLogLevel, "", "Log level: debug, info, warn, error")
	flags.Bool(flagLogJSON, false, "Write logs as JSON")

	root.AddCommand(
		NewVisualizeCommand(),
		NewTUICommand(),
		NewTimelineCommand(),
		NewHotspotsCommand(),
		NewSnapshotCommand(),
		NewMCPCommand(),
		newVersionCommand(),
	)

	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// registerHistoryFlags adds the flags that select the history slice.
func registerHistoryFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagBackend, "", "History backend: libgit2 or git")
	cmd.Flags().Bool(flagEagerIndex, false, "Index every commit up front so file origins are exact")
	cmd.Flags().Bool(flagFirstParent, false, "Follow only the first parent of merge commits")
	cmd.Flags().Int(flagLimit, 0, "Keep only the most recent commits (0 = all)")
	cmd.Flags().String(flagSince, "", "Only commits after this time (e.g. '720h', '2024-01-01', RFC3339)")
}

// loadConfig reads the config file and layers explicitly set flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(flagConfig)

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	override := func(name string, apply func()) {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			apply()
		}
	}

	override(flagLogLevel, func() { cfg.Logging.Level, _ = flags.GetString(flagLogLevel) })
	override(flagLogJSON, func() {
		if on, _ := flags.GetBool(flagLogJSON); on {
			cfg.Logging.Format = config.LogFormatJSON
		}
	})
	override(flagBackend, func() { cfg.History.Backend, _ = flags.GetString(flagBackend) })
	override(flagEagerIndex, func() { cfg.History.EagerIndex, _ = flags.GetBool(flagEagerIndex) })
	override(flagFirstParent, func() { cfg.History.FirstParent, _ = flags.GetBool(flagFirstParent) })
	override(flagLimit, func() { cfg.History.Limit, _ = flags.GetInt(flagLimit) })
	override(flagSince, func() { cfg.History.Since, _ = flags.GetString(flagSince) })

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate flags: %w", err)
	}

	return cfg, nil
}

// env is what every command needs once flags are parsed.
type env struct {
	cfg       *config.Config
	providers observability.Providers
	logger    *slog.Logger
}

func setup(cmd *cobra.Command, mode observability.AppMode, logOutput io.Writer) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	telemetry := cfg.Telemetry(mode, version.Version)
	telemetry.LogOutput = logOutput

	providers, err := observability.Init(telemetry)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	return &env{cfg: cfg, providers: providers, logger: providers.Logger}, nil
}

func (e *env) close() {
	err := e.providers.Shutdown(context.Background())
	if err != nil {
		e.logger.Warn("observability shutdown failed", "error", err)
	}
}

func (e *env) openReader(path string) (history.ReadCloser, error) {
	opts, err := e.cfg.History.Options()
	if err != nil {
		return nil, err
	}

	reader, err := history.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}

	return reader, nil
}

// newCursor builds a cursor over reader. randomAccess forces the eager
// index so origins are exact after jumping straight to any position.
func (e *env) newCursor(
	ctx context.Context, reader history.Reader, metrics *observability.SnapshotMetrics, randomAccess bool,
) (*cursor.Cursor, error) {
	return cursor.New(ctx, reader, snapshot.NewBuilder(reader, e.logger), cursor.Options{
		EagerIndex: e.cfg.History.EagerIndex || randomAccess,
		Logger:     e.logger,
		Tracer:     e.providers.Tracer,
		Metrics:    metrics,
	})
}

func repoPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}

	return "."
}

// resolvePosition picks the commit named by --commit, else --at, where a
// negative --at means the newest commit.
func resolvePosition(cmd *cobra.Command, cur *cursor.Cursor) (int, error) {
	if id, _ := cmd.Flags().GetString(flagCommit); id != "" {
		return cur.Resolve(id)
	}

	at, _ := cmd.Flags().GetInt(flagAt)
	if at < 0 {
		return cur.Len() - 1, nil
	}

	if at >= cur.Len() {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", cursor.ErrOutOfRange, at, cur.Len())
	}

	return at, nil
}
