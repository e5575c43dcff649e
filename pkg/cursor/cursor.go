// Package cursor navigates a repository's history one snapshot at a time.
//
// A Cursor owns the ordered commit list, an append-only cache of built
// snapshots and the current position. Snapshots are built on first visit
// and never rebuilt. A Cursor is not safe for concurrent use.
package cursor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/codeatlas/pkg/history"
	"github.com/Sumatoshi-tech/codeatlas/pkg/observability"
	"github.com/Sumatoshi-tech/codeatlas/pkg/snapshot"
)

// minPrefixLen is the shortest commit id prefix accepted by Resolve.
const minPrefixLen = 4

// Navigation errors.
var (
	// ErrBoundary is returned when stepping past either end of history.
	ErrBoundary = errors.New("no commit beyond this point")
	// ErrOutOfRange is returned for a position outside [0, Len).
	ErrOutOfRange = errors.New("position out of range")
	// ErrUnknownPath is returned when a path is absent from the snapshot.
	ErrUnknownPath = errors.New("path not in snapshot")
	// ErrUnknownCommit is returned when no listed commit matches an id.
	ErrUnknownCommit = errors.New("unknown commit")
	// ErrAmbiguousCommit is returned when an id prefix matches several commits.
	ErrAmbiguousCommit = errors.New("ambiguous commit id")
)

// Options configures a Cursor.
type Options struct {
	// EagerIndex records every commit position before the first build so
	// file origins always resolve exactly.
	EagerIndex bool
	// Logger receives build diagnostics. Nil discards them.
	Logger *slog.Logger
	// Tracer wraps each build in a span. Nil uses the global provider.
	Tracer trace.Tracer
	// Metrics records builds and cache lookups. Nil disables them.
	Metrics *observability.SnapshotMetrics
}

// Cursor is a position in history plus the snapshots built so far.
type Cursor struct {
	commits  []history.Commit
	ids      map[string]int
	reader   history.Reader
	builder  *snapshot.Builder
	index    *snapshot.IndexMap
	cache    map[int]*snapshot.Snapshot
	changes  map[int][]string
	position int

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.SnapshotMetrics
}

// New lists the commits of reader and places the cursor on the oldest.
// It fails with history.ErrNoHistory when there are none.
func New(ctx context.Context, reader history.Reader, builder *snapshot.Builder, opts Options) (*Cursor, error) {
	commits, err := reader.ListCommits(ctx)
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}

	if len(commits) == 0 {
		return nil, history.ErrNoHistory
	}

	c := &Cursor{
		commits: commits,
		ids:     make(map[string]int, len(commits)),
		reader:  reader,
		builder: builder,
		index:   snapshot.NewIndexMap(),
		cache:   make(map[int]*snapshot.Snapshot),
		changes: make(map[int][]string),
		logger:  opts.Logger,
		tracer:  opts.Tracer,
		metrics: opts.Metrics,
	}

	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	if c.tracer == nil {
		c.tracer = otel.Tracer("github.com/Sumatoshi-tech/codeatlas/pkg/cursor")
	}

	for i, commit := range commits {
		c.ids[commit.ID] = i

		if opts.EagerIndex {
			c.index.Record(commit.ID, i)
		}
	}

	return c, nil
}

// Len returns the number of commits.
func (c *Cursor) Len() int { return len(c.commits) }

// Position returns the current position.
func (c *Cursor) Position() int { return c.position }

// Commits returns the commit list, oldest first. Callers must not modify it.
func (c *Cursor) Commits() []history.Commit { return c.commits }

// Commit returns the commit at position p.
func (c *Cursor) Commit(p int) (history.Commit, error) {
	if err := c.check(p); err != nil {
		return history.Commit{}, err
	}

	return c.commits[p], nil
}

// Mark records the current position for a later Reset.
type Mark struct {
	position int
}

// Mark returns the current position as a Mark.
func (c *Cursor) Mark() Mark { return Mark{position: c.position} }

// Reset returns the cursor to a position it held when m was taken. It
// builds nothing; callers use it to undo a move whose result they could
// not present.
func (c *Cursor) Reset(m Mark) { c.position = m.position }

// Cached returns the snapshot at p if it has been built.
func (c *Cursor) Cached(p int) (*snapshot.Snapshot, bool) {
	snap, ok := c.cache[p]

	return snap, ok
}

// Current returns the snapshot at the current position.
func (c *Cursor) Current(ctx context.Context) (*snapshot.Snapshot, error) {
	return c.at(ctx, c.position)
}

// Advance moves one commit forward. At the newest commit it returns
// ErrBoundary and stays put.
func (c *Cursor) Advance(ctx context.Context) (*snapshot.Snapshot, error) {
	if c.position+1 >= len(c.commits) {
		return nil, ErrBoundary
	}

	return c.move(ctx, c.position+1)
}

// Retreat moves one commit back. At the oldest commit it returns
// ErrBoundary and stays put.
func (c *Cursor) Retreat(ctx context.Context) (*snapshot.Snapshot, error) {
	if c.position == 0 {
		return nil, ErrBoundary
	}

	return c.move(ctx, c.position-1)
}

// JumpTo moves to position p.
func (c *Cursor) JumpTo(ctx context.Context, p int) (*snapshot.Snapshot, error) {
	if err := c.check(p); err != nil {
		return nil, err
	}

	return c.move(ctx, p)
}

// JumpToCommit moves to the commit identified by a full id or an
// unambiguous prefix.
func (c *Cursor) JumpToCommit(ctx context.Context, id string) (*snapshot.Snapshot, error) {
	p, err := c.Resolve(id)
	if err != nil {
		return nil, err
	}

	return c.move(ctx, p)
}

// JumpToOrigin moves to the commit that last changed path as of the
// current snapshot.
func (c *Cursor) JumpToOrigin(ctx context.Context, path string) (*snapshot.Snapshot, error) {
	cur, err := c.Current(ctx)
	if err != nil {
		return nil, err
	}

	entry, ok := cur.Entry(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}

	return c.move(ctx, entry.LastModifiedIndex)
}

// Resolve returns the position of a commit id or id prefix.
func (c *Cursor) Resolve(id string) (int, error) {
	id = strings.ToLower(strings.TrimSpace(id))

	if p, ok := c.ids[id]; ok {
		return p, nil
	}

	if len(id) < minPrefixLen {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCommit, id)
	}

	found := -1

	for i, commit := range c.commits {
		if !strings.HasPrefix(commit.ID, id) {
			continue
		}

		if found >= 0 {
			return 0, fmt.Errorf("%w: %q", ErrAmbiguousCommit, id)
		}

		found = i
	}

	if found < 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCommit, id)
	}

	return found, nil
}

// Colors classifies the files changed at the current position.
func (c *Cursor) Colors(ctx context.Context) (Coloring, error) {
	cur, err := c.Current(ctx)
	if err != nil {
		return nil, err
	}

	var prev []string

	if c.position > 0 {
		prev, err = c.changesAt(ctx, c.position-1)
		if err != nil {
			return nil, err
		}
	}

	return Classify(prev, cur.FilesChanged), nil
}

// ChangeSets returns the changed-file sets of positions 0 through p.
// Positions without a built snapshot are answered by ChangedFiles alone
// and memoised.
func (c *Cursor) ChangeSets(ctx context.Context, p int) ([][]string, error) {
	if err := c.check(p); err != nil {
		return nil, err
	}

	sets := make([][]string, 0, p+1)

	for i := 0; i <= p; i++ {
		set, err := c.changesAt(ctx, i)
		if err != nil {
			return nil, err
		}

		sets = append(sets, set)
	}

	return sets, nil
}

func (c *Cursor) changesAt(ctx context.Context, p int) ([]string, error) {
	if snap, ok := c.cache[p]; ok {
		return snap.FilesChanged, nil
	}

	if set, ok := c.changes[p]; ok {
		return set, nil
	}

	set, err := c.reader.ChangedFiles(ctx, c.commits[p].ID)
	if err != nil {
		return nil, fmt.Errorf("%w: changed files of %s: %w", snapshot.ErrSnapshotBuild, c.commits[p].ShortID(), err)
	}

	slices.Sort(set)
	c.changes[p] = set

	return set, nil
}

func (c *Cursor) move(ctx context.Context, p int) (*snapshot.Snapshot, error) {
	snap, err := c.at(ctx, p)
	if err != nil {
		return nil, err
	}

	c.position = p

	return snap, nil
}

func (c *Cursor) at(ctx context.Context, p int) (*snapshot.Snapshot, error) {
	if snap, ok := c.cache[p]; ok {
		c.metrics.RecordCache(ctx, true)

		return snap, nil
	}

	c.metrics.RecordCache(ctx, false)

	commit := c.commits[p]

	ctx, span := c.tracer.Start(ctx, "cursor.build", trace.WithAttributes(
		attribute.Int("snapshot.position", p),
		attribute.String("commit.id", commit.ID),
	))
	defer span.End()

	start := time.Now()
	snap, err := c.builder.Build(ctx, commit, p, c.index)
	elapsed := time.Since(start)

	c.metrics.RecordBuild(ctx, elapsed, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")

		c.logger.WarnContext(ctx, "cursor: snapshot build failed",
			"position", p, "commit", commit.ShortID(), "error", err)

		return nil, err
	}

	span.SetAttributes(attribute.Int("snapshot.files", len(snap.AllFiles)))

	c.cache[p] = snap
	delete(c.changes, p)

	c.logger.DebugContext(ctx, "cursor: snapshot built",
		"position", p, "commit", commit.ShortID(), "files", len(snap.AllFiles), "duration", elapsed)

	return snap, nil
}

func (c *Cursor) check(p int) error {
	if p < 0 || p >= len(c.commits) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, p, len(c.commits))
	}

	return nil
}
