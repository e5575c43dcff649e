package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrEnv     = "env"
	attrMode    = "mode"
)

// NewLogger builds the process logger described by cfg: text or JSON,
// wrapped in a TracingHandler.
func NewLogger(cfg Config) *slog.Logger {
	var out io.Writer = os.Stderr
	if cfg.LogOutput != nil {
		out = cfg.LogOutput
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var inner slog.Handler
	if cfg.LogJSON {
		inner = slog.NewJSONHandler(out, opts)
	} else {
		inner = slog.NewTextHandler(out, opts)
	}

	return slog.New(NewTracingHandler(inner, cfg.ServiceName, cfg.Environment, cfg.Mode))
}

// TracingHandler is an [slog.Handler] that adds the active trace and span
// ids to each record. Service, env and mode are attached once at
// construction so they stay top level under WithGroup.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner.
func NewTracingHandler(inner slog.Handler, service, env string, appMode AppMode) *TracingHandler {
	attrs := []slog.Attr{
		slog.String(attrService, service),
		slog.String(attrMode, string(appMode)),
	}

	if env != "" {
		attrs = append(attrs, slog.String(attrEnv, env))
	}

	return &TracingHandler{inner: inner.WithAttrs(attrs)}
}

// Enabled implements slog.Handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	if err := th.inner.Handle(ctx, record); err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}
