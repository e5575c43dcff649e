// Package session runs the request/response protocol between one
// rendering surface and its own history cursor.
//
// A Session consumes requests on a single goroutine, so navigation is
// sequential and responses leave in request order. Closing the session
// discards whatever is still in flight.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Sumatoshi-tech/codeatlas/pkg/cursor"
	"github.com/Sumatoshi-tech/codeatlas/pkg/hierarchy"
	"github.com/Sumatoshi-tech/codeatlas/pkg/hotspot"
	"github.com/Sumatoshi-tech/codeatlas/pkg/observability"
	"github.com/Sumatoshi-tech/codeatlas/pkg/snapshot"
)

const (
	defaultBuffer       = 16
	defaultHotspotLimit = 20
)

// ErrClosed is returned when sending to a closed session.
var ErrClosed = errors.New("session closed")

// Options configures a Session.
type Options struct {
	// HotspotLimit caps View.Hotspots. Zero uses 20; negative keeps all.
	HotspotLimit int
	// Buffer is the capacity of the request and response queues.
	Buffer  int
	Logger  *slog.Logger
	Metrics *observability.SnapshotMetrics
}

// Session serves one consumer.
type Session struct {
	id        string
	cur       *cursor.Cursor
	requests  chan Request
	responses chan Response
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	tracker      hotspot.Tracker
	hotspotLimit int
	logger       *slog.Logger
	metrics      *observability.SnapshotMetrics
}

// New starts a session over cur. It ends when ctx is canceled or Close is
// called. The session takes ownership of cur.
func New(ctx context.Context, id string, cur *cursor.Cursor, opts Options) *Session {
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}

	if opts.HotspotLimit == 0 {
		opts.HotspotLimit = defaultHotspotLimit
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(ctx)

	s := &Session{
		id:           id,
		cur:          cur,
		requests:     make(chan Request, opts.Buffer),
		responses:    make(chan Response, opts.Buffer),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
		hotspotLimit: opts.HotspotLimit,
		logger:       opts.Logger.With("session", id),
		metrics:      opts.Metrics,
	}

	go s.run()

	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Responses delivers responses in request order. It is closed when the
// session ends.
func (s *Session) Responses() <-chan Response { return s.responses }

// Done is closed once the session has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// SendRaw validates a wire message and queues it.
func (s *Session) SendRaw(ctx context.Context, raw []byte) error {
	req, err := Decode(raw)
	if err != nil {
		s.metrics.RecordMessage(ctx, "invalid", observability.StatusError)

		return err
	}

	return s.Send(ctx, req)
}

// Send queues req. It blocks while the queue is full and returns ErrClosed
// once the session has ended.
func (s *Session) Send(ctx context.Context, req Request) error {
	select {
	case <-s.ctx.Done():
		return ErrClosed
	default:
	}

	select {
	case s.requests <- req:
		return nil
	case <-s.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the session and waits for its goroutine to stop. Pending
// requests and in-flight results are dropped. Close is idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(s.cancel)
	<-s.done
}

func (s *Session) run() {
	defer close(s.done)
	defer close(s.responses)

	closed := s.metrics.SessionOpened(s.ctx)
	defer closed()

	s.logger.DebugContext(s.ctx, "session: started")

	for {
		select {
		case <-s.ctx.Done():
			s.logger.DebugContext(context.WithoutCancel(s.ctx), "session: stopped")

			return
		case req := <-s.requests:
			resp := s.handle(s.ctx, req)

			if s.ctx.Err() != nil {
				continue
			}

			select {
			case s.responses <- resp:
			case <-s.ctx.Done():
			}
		}
	}
}

func (s *Session) handle(ctx context.Context, req Request) Response {
	mark := s.cur.Mark()

	snap, err := s.navigate(ctx, req)

	boundary := errors.Is(err, cursor.ErrBoundary) || errors.Is(err, cursor.ErrOutOfRange)
	if boundary {
		snap, err = s.cur.Current(ctx)
	}

	if err == nil {
		var view *View

		view, err = s.view(ctx, snap)
		if err == nil {
			s.metrics.RecordMessage(ctx, req.Command, observability.StatusOK)

			return Response{Command: CommandUpdateGraph, Index: view.Position, Data: view, Boundary: boundary}
		}
	}

	// A failed request leaves the position at the last view sent.
	s.cur.Reset(mark)

	s.metrics.RecordMessage(ctx, req.Command, observability.StatusError)

	index := s.cur.Position()
	if req.Command == CommandFetch {
		index = req.Index
	}

	retryable := errors.Is(err, snapshot.ErrSnapshotBuild)
	if ctx.Err() == nil {
		s.logger.WarnContext(ctx, "session: request failed",
			"command", req.Command, "index", index, "retryable", retryable, "error", err)
	}

	return Response{Command: CommandError, Index: index, Error: err.Error(), Retryable: retryable}
}

func (s *Session) navigate(ctx context.Context, req Request) (*snapshot.Snapshot, error) {
	switch req.Command {
	case CommandFetch:
		return s.cur.JumpTo(ctx, req.Index)
	case CommandNext:
		return s.cur.Advance(ctx)
	case CommandPrev:
		return s.cur.Retreat(ctx)
	case CommandOrigin:
		return s.cur.JumpToOrigin(ctx, req.Path)
	case CommandCommit:
		return s.cur.JumpToCommit(ctx, req.ID)
	default:
		return nil, ErrInvalidMessage
	}
}

// view assembles the view of snap, which must be the current snapshot.
func (s *Session) view(ctx context.Context, snap *snapshot.Snapshot) (*View, error) {
	colors, err := s.cur.Colors(ctx)
	if err != nil {
		return nil, err
	}

	err = s.syncHotspots(ctx, snap)
	if err != nil {
		return nil, err
	}

	commit, err := s.cur.Commit(snap.Position)
	if err != nil {
		return nil, err
	}

	return &View{
		Position: snap.Position,
		Total:    s.cur.Len(),
		Commit:   commit,
		Snapshot: snap,
		Colors:   colors,
		Hotspots: hotspot.Top(s.tracker.Entries(), s.hotspotLimit),
		Tree:     hierarchy.Build(snap, colors),
	}, nil
}

// syncHotspots brings the tracker to positions [0, snap.Position]. Single
// steps push or pop one set; anything else recounts.
func (s *Session) syncHotspots(ctx context.Context, snap *snapshot.Snapshot) error {
	want := snap.Position + 1

	switch s.tracker.Len() {
	case want:
	case want - 1:
		s.tracker.Push(snap.FilesChanged)
	case want + 1:
		s.tracker.Pop()
	default:
		sets, err := s.cur.ChangeSets(ctx, snap.Position)
		if err != nil {
			return err
		}

		s.tracker.Reset(sets)
	}

	return nil
}
