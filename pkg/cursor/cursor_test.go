package cursor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codeatlas/pkg/cursor"
	"github.com/Sumatoshi-tech/codeatlas/pkg/gitlib/gittest"
	"github.com/Sumatoshi-tech/codeatlas/pkg/history"
	"github.com/Sumatoshi-tech/codeatlas/pkg/history/historytest"
	"github.com/Sumatoshi-tech/codeatlas/pkg/snapshot"
)

var errBackend = errors.New("backend failure")

func newCursor(t *testing.T, reader history.Reader, opts cursor.Options) *cursor.Cursor {
	t.Helper()

	c, err := cursor.New(context.Background(), reader, snapshot.NewBuilder(reader, nil), opts)
	require.NoError(t, err)

	return c
}

func colorScenario() *historytest.Repo {
	return historytest.New().
		Commit("c0", historytest.Add("a.txt")).
		Commit("c1", historytest.Modify("a.txt"), historytest.Add("b.txt")).
		Commit("c2", historytest.Modify("b.txt"))
}

func TestNewEmptyHistory(t *testing.T) {
	t.Parallel()

	_, err := cursor.New(context.Background(), historytest.New(), nil, cursor.Options{})
	require.ErrorIs(t, err, history.ErrNoHistory)
}

func TestStartsAtOldestCommit(t *testing.T) {
	t.Parallel()

	c := newCursor(t, colorScenario(), cursor.Options{})

	assert.Equal(t, 0, c.Position())
	assert.Equal(t, 3, c.Len())

	snap, err := c.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, historytest.ID(0), snap.CommitID)
}

func TestAdvanceRetreat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newCursor(t, colorScenario(), cursor.Options{})

	_, err := c.Retreat(ctx)
	require.ErrorIs(t, err, cursor.ErrBoundary)
	assert.Equal(t, 0, c.Position())

	for want := 1; want < 3; want++ {
		snap, advErr := c.Advance(ctx)
		require.NoError(t, advErr)
		assert.Equal(t, want, snap.Position)
		assert.Equal(t, want, c.Position())
	}

	_, err = c.Advance(ctx)
	require.ErrorIs(t, err, cursor.ErrBoundary)
	assert.Equal(t, 2, c.Position())

	snap, err := c.Retreat(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Position)
}

func TestSingleCommitBoundaries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newCursor(t, historytest.New().Commit("only", historytest.Add("x")), cursor.Options{})

	_, err := c.Advance(ctx)
	require.ErrorIs(t, err, cursor.ErrBoundary)

	_, err = c.Retreat(ctx)
	require.ErrorIs(t, err, cursor.ErrBoundary)

	assert.Equal(t, 0, c.Position())
}

func TestJumpToOutOfRange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newCursor(t, colorScenario(), cursor.Options{})

	for _, p := range []int{-1, 3, 100} {
		_, err := c.JumpTo(ctx, p)
		require.ErrorIs(t, err, cursor.ErrOutOfRange, "position %d", p)
	}

	assert.Equal(t, 0, c.Position())
}

func TestJumpToIsCached(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := colorScenario()
	c := newCursor(t, repo, cursor.Options{})

	first, err := c.JumpTo(ctx, 2)
	require.NoError(t, err)

	second, err := c.JumpTo(ctx, 2)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, repo.Calls(historytest.OpAllFilesAt))

	cached, ok := c.Cached(2)
	assert.True(t, ok)
	assert.Same(t, first, cached)

	_, ok = c.Cached(1)
	assert.False(t, ok)
}

func TestFailedBuildKeepsPosition(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := colorScenario()
	c := newCursor(t, repo, cursor.Options{})

	before, err := c.Current(ctx)
	require.NoError(t, err)

	repo.Fail(historytest.OpAllFilesAt, historytest.ID(1), errBackend)

	_, err = c.Advance(ctx)
	require.ErrorIs(t, err, snapshot.ErrSnapshotBuild)
	assert.Equal(t, 0, c.Position())

	after, err := c.Current(ctx)
	require.NoError(t, err)
	assert.Same(t, before, after)

	repo.Heal()

	snap, err := c.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Position)
}

func TestResetReturnsToMark(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := colorScenario()
	c := newCursor(t, repo, cursor.Options{})

	mark := c.Mark()

	_, err := c.JumpTo(ctx, 2)
	require.NoError(t, err)

	builds := repo.Calls(historytest.OpAllFilesAt)

	c.Reset(mark)
	assert.Equal(t, 0, c.Position())
	assert.Equal(t, builds, repo.Calls(historytest.OpAllFilesAt))

	snap, err := c.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Position)
}

func TestColors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newCursor(t, colorScenario(), cursor.Options{})

	colors, err := c.Colors(ctx)
	require.NoError(t, err)
	assert.Equal(t, cursor.ColorNew, colors.Of("a.txt"))

	_, err = c.Advance(ctx)
	require.NoError(t, err)

	colors, err = c.Colors(ctx)
	require.NoError(t, err)
	assert.Equal(t, cursor.ColorOngoing, colors.Of("a.txt"))
	assert.Equal(t, cursor.ColorNew, colors.Of("b.txt"))

	_, err = c.Advance(ctx)
	require.NoError(t, err)

	colors, err = c.Colors(ctx)
	require.NoError(t, err)
	assert.Equal(t, cursor.ColorUnchanged, colors.Of("a.txt"))
	assert.Equal(t, cursor.ColorOngoing, colors.Of("b.txt"))
}

func TestColorsAfterJumpUseUnbuiltPredecessor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := colorScenario()
	c := newCursor(t, repo, cursor.Options{})

	_, err := c.JumpTo(ctx, 2)
	require.NoError(t, err)

	colors, err := c.Colors(ctx)
	require.NoError(t, err)
	assert.Equal(t, cursor.ColorOngoing, colors.Of("b.txt"))

	_, ok := c.Cached(1)
	assert.False(t, ok, "colouring must not build the predecessor")
}

func TestChangeSets(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := colorScenario()
	c := newCursor(t, repo, cursor.Options{})

	sets, err := c.ChangeSets(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a.txt"}, {"a.txt", "b.txt"}, {"b.txt"}}, sets)
	assert.Zero(t, repo.Calls(historytest.OpAllFilesAt))

	calls := repo.Calls(historytest.OpChangedFiles)

	_, err = c.ChangeSets(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, calls, repo.Calls(historytest.OpChangedFiles), "change sets are memoised")

	_, err = c.ChangeSets(ctx, 3)
	require.ErrorIs(t, err, cursor.ErrOutOfRange)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	c := newCursor(t, colorScenario(), cursor.Options{})

	p, err := c.Resolve(historytest.ID(1))
	require.NoError(t, err)
	assert.Equal(t, 1, p)

	p, err = c.Resolve(historytest.ID(2)[30:])
	require.ErrorIs(t, err, cursor.ErrUnknownCommit, "suffixes are not prefixes")
	assert.Zero(t, p)

	_, err = c.Resolve("0000")
	require.ErrorIs(t, err, cursor.ErrAmbiguousCommit)

	_, err = c.Resolve("000")
	require.ErrorIs(t, err, cursor.ErrUnknownCommit)

	_, err = c.Resolve("ffff")
	require.ErrorIs(t, err, cursor.ErrUnknownCommit)
}

func TestJumpToCommitAndOrigin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newCursor(t, colorScenario(), cursor.Options{EagerIndex: true})

	snap, err := c.JumpToCommit(ctx, historytest.ID(2))
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Position)

	snap, err = c.JumpToOrigin(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Position)
	assert.Equal(t, 1, c.Position())

	_, err = c.JumpToOrigin(ctx, "missing.txt")
	require.ErrorIs(t, err, cursor.ErrUnknownPath)
	assert.Equal(t, 1, c.Position())
}

func TestLazyIndexApproximatesUnvisitedOrigins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newCursor(t, colorScenario(), cursor.Options{})

	snap, err := c.JumpTo(ctx, 2)
	require.NoError(t, err)

	entry, ok := snap.Entry("a.txt")
	require.True(t, ok)
	assert.Equal(t, 2, entry.LastModifiedIndex, "origin at 1 was never visited")
}

// End to end against a real repository: C0 adds src/a.py, C1 adds src/b.py
// and edits src/a.py, C2 deletes src/a.py.
func TestRepositoryScenario(t *testing.T) {
	t.Parallel()

	repo := gittest.NewRepo(t)
	repo.Write("src/a.py", "a = 1\n").Commit("add a")
	repo.Write("src/b.py", "b = 1\n").Write("src/a.py", "a = 2\n").Commit("add b, edit a")
	repo.Remove("src/a.py").Commit("drop a")

	reader, err := history.Open(repo.Path, history.Options{})
	require.NoError(t, err)

	t.Cleanup(func() { _ = reader.Close() })

	for _, eager := range []bool{false, true} {
		ctx := context.Background()
		c := newCursor(t, reader, cursor.Options{EagerIndex: eager})

		if !eager {
			for range 2 {
				_, err = c.Advance(ctx)
				require.NoError(t, err)
			}
		}

		snap, jumpErr := c.JumpTo(ctx, 2)
		require.NoError(t, jumpErr)
		require.Len(t, snap.AllFiles, 1)
		assert.Equal(t, "src/b.py", snap.AllFiles[0].Path)
		assert.Equal(t, 1, snap.AllFiles[0].LastModifiedIndex)

		origin, originErr := c.JumpToOrigin(ctx, "src/b.py")
		require.NoError(t, originErr)
		assert.Equal(t, 1, origin.Position)
	}
}
