// Package server hosts the browser surface: the visualization page, one
// WebSocket session per connection, a small JSON API and the operational
// endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/codeatlas/pkg/cursor"
	"github.com/Sumatoshi-tech/codeatlas/pkg/history"
	"github.com/Sumatoshi-tech/codeatlas/pkg/observability"
	"github.com/Sumatoshi-tech/codeatlas/pkg/plotpage"
	"github.com/Sumatoshi-tech/codeatlas/pkg/session"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Title names the repository on the page.
	Title string
	Theme plotpage.Theme

	Logger *slog.Logger
	Tracer trace.Tracer
	RED    *observability.REDMetrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

// Server is the HTTP host of the browser surface.
type Server struct {
	manager *session.Manager
	reader  history.Reader
	opts    Options
	logger  *slog.Logger

	upgrader websocket.Upgrader

	// shared serves the one-shot snapshot API.
	sharedMu sync.Mutex
	shared   *cursor.Cursor
}

// New creates a Server. WebSocket sessions come from manager; shared
// answers /api requests and reader feeds the timeline.
func New(manager *session.Manager, shared *cursor.Cursor, reader history.Reader, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/Sumatoshi-tech/codeatlas/internal/server")
	}

	return &Server{
		manager: manager,
		reader:  reader,
		opts:    opts,
		logger:  opts.Logger,
		shared:  shared,
	}
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /api/commits", s.handleCommits)
	mux.HandleFunc("GET /api/snapshots/{index}", s.handleSnapshot)
	mux.HandleFunc("GET /timeline", s.handleTimeline)
	mux.Handle("GET /healthz", observability.HealthHandler())
	mux.Handle("GET /readyz", observability.ReadyHandler(s.ready))

	if s.opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", s.opts.MetricsHandler)
	}

	return observability.HTTPMiddleware(s.opts.Tracer, s.opts.RED, mux)
}

func (s *Server) ready(ctx context.Context) error {
	s.sharedMu.Lock()
	defer s.sharedMu.Unlock()

	_, err := s.shared.Current(ctx)

	return err
}

// ListenAndServe listens on Options.Addr and serves until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx ends, then shuts down gracefully and
// closes every session.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.InfoContext(ctx, "server: listening", "addr", "http://"+ln.Addr().String())

	select {
	case err := <-errCh:
		s.manager.Close()

		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.manager.Close()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.InfoContext(shutdownCtx, "server: stopped")

	return nil
}
