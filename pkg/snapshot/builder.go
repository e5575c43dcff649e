package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"

	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/codeatlas/pkg/history"
)

// Builder assembles snapshots from reader queries.
type Builder struct {
	reader history.Reader
	logger *slog.Logger
}

// NewBuilder returns a builder over reader. A nil logger discards output.
func NewBuilder(reader history.Reader, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Builder{reader: reader, logger: logger}
}

// Build returns the snapshot of commit at position and records the commit
// in index.
//
// File origins are resolved through index. An origin commit not yet in
// index resolves to position; it becomes exact once that commit has been
// built. A failed per-file lookup also falls back to position.
func (b *Builder) Build(ctx context.Context, commit history.Commit, position int, index *IndexMap) (*Snapshot, error) {
	changed, err := b.reader.ChangedFiles(ctx, commit.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: changed files of %s: %w", ErrSnapshotBuild, commit.ShortID(), err)
	}

	slices.Sort(changed)

	files, err := b.reader.AllFilesAt(ctx, commit.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: files of %s: %w", ErrSnapshotBuild, commit.ShortID(), err)
	}

	snap := &Snapshot{
		Position:     position,
		CommitID:     commit.ID,
		FilesChanged: changed,
		AllFiles:     make([]FileEntry, 0, len(files)),
	}

	for _, file := range files {
		origin := b.origin(ctx, snap, file, index)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrSnapshotBuild, ctxErr)
		}

		snap.AllFiles = append(snap.AllFiles, FileEntry{
			Path:              file,
			LastModifiedIndex: origin,
			Language:          enry.GetLanguage(path.Base(file), nil),
			Vendored:          enry.IsVendor(file),
		})
	}

	index.Record(commit.ID, position)

	return snap, nil
}

func (b *Builder) origin(ctx context.Context, snap *Snapshot, file string, index *IndexMap) int {
	if snap.Changed(file) {
		return snap.Position
	}

	id, err := b.reader.LastModifyingCommit(ctx, snap.CommitID, file)
	if err != nil {
		level := slog.LevelDebug
		if !errors.Is(err, history.ErrFileHistory) {
			level = slog.LevelWarn
		}

		b.logger.Log(ctx, level, "snapshot: file origin unresolved",
			"commit", snap.CommitID, "path", file, "error", err)

		return snap.Position
	}

	pos, ok := index.Lookup(id)
	if !ok || pos > snap.Position {
		return snap.Position
	}

	return pos
}
