// Package mcp implements a Model Context Protocol server exposing
// CodeAtlas history queries as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/codeatlas/pkg/history"
	"github.com/Sumatoshi-tech/codeatlas/pkg/observability"
)

const (
	serverName = "codeatlas"
	toolCount  = 3
)

// Opener opens a repository reader. history.Open is the default.
type Opener func(path string, opts history.Options) (history.ReadCloser, error)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use production defaults.
type ServerDeps struct {
	Logger *slog.Logger
	// Metrics is an optional RED metrics recorder. Nil disables per-tool metrics.
	Metrics *observability.REDMetrics
	// Tracer is an optional OTel tracer for per-tool-call spans. Nil disables tracing.
	Tracer trace.Tracer
	// Version is reported as the implementation version.
	Version string
	// History holds backend settings; tool inputs override FirstParent,
	// Limit and Since per call.
	History history.Options
	Open    Opener
}

// Server wraps the MCP SDK server with the CodeAtlas tool registrations.
type Server struct {
	inner   *mcpsdk.Server
	mu      sync.RWMutex
	tools   []string
	metrics *observability.REDMetrics
	tracer  trace.Tracer
	atlas   *atlas
}

// NewServer creates an MCP server with all tools registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	version := deps.Version
	if version == "" {
		version = "dev"
	}

	open := deps.Open
	if open == nil {
		open = history.Open
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	srv := &Server{
		inner:   mcpsdk.NewServer(&mcpsdk.Implementation{Name: serverName, Version: version}, opts),
		tools:   make([]string, 0, toolCount),
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
		atlas:   &atlas{open: open, defaults: deps.History, logger: logger},
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run serves on stdio until ctx is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport serves on transport until ctx is canceled or the
// connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func (s *Server) registerTools() {
	addTool[CommitsInput](s, ToolNameCommits, commitsToolDescription, s.atlas.handleCommits)
	addTool[SnapshotInput](s, ToolNameSnapshot, snapshotToolDescription, s.atlas.handleSnapshot)
	addTool[HotspotsInput](s, ToolNameHotspots, hotspotsToolDescription, s.atlas.handleHotspots)
}

func addTool[Input any](s *Server, name, description string, handler toolHandler[Input]) {
	wrapped := withMetrics(s.metrics, name, withTracing(s.tracer, name, handler))

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        name,
		Description: description,
	}, (func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error))(wrapped))

	s.mu.Lock()
	s.tools = append(s.tools, name)
	s.mu.Unlock()
}

type toolHandler[Input any] func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error)

const (
	mcpSpanPrefix  = "mcp."
	traceIDMetaKey = "trace_id"
)

// withTracing opens a span per call and appends the trace id to sampled
// results.
func withTracing[Input any](tracer trace.Tracer, toolName string, handler toolHandler[Input]) toolHandler[Input] {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			result.Content = append(result.Content, &mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID())})
		}

		return result, output, err
	}
}

// withMetrics records RED metrics per call.
func withMetrics[Input any](metrics *observability.REDMetrics, toolName string, handler toolHandler[Input]) toolHandler[Input] {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()

		decInflight := metrics.TrackInflight(ctx, mcpSpanPrefix+toolName)
		defer decInflight()

		result, output, err := handler(ctx, req, input)

		status := observability.StatusOK
		if err != nil || (result != nil && result.IsError) {
			status = observability.StatusError
		}

		metrics.RecordRequest(ctx, mcpSpanPrefix+toolName, status, time.Since(start))

		return result, output, err
	}
}

const (
	commitsToolDescription = "List the commits of a Git repository, oldest first, " +
		"with the files each one changed."

	snapshotToolDescription = "Describe the repository at one commit: every file with the index of " +
		"the commit that last changed it, the files changed by the commit and their " +
		"change class (new, ongoing)."

	hotspotsToolDescription = "Rank the files changed most often from the first commit " +
		"up to a given commit."
)
