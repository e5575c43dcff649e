package history_test

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codeatlas/pkg/gitlib/gittest"
	"github.com/Sumatoshi-tech/codeatlas/pkg/history"
)

// forEachBackend runs fn against every backend able to read path.
func forEachBackend(t *testing.T, path string, opts history.Options, fn func(t *testing.T, r history.Reader)) {
	t.Helper()

	backends := []string{history.BackendLibgit2, history.BackendGit}

	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			if backend == history.BackendGit {
				if _, err := exec.LookPath("git"); err != nil {
					t.Skip("git binary not available")
				}
			}

			o := opts
			o.Backend = backend

			reader, err := history.Open(path, o)
			require.NoError(t, err)

			t.Cleanup(func() { _ = reader.Close() })

			fn(t, reader)
		})
	}
}

// scenarioRepo: C0 adds src/a.py, C1 adds src/b.py and edits src/a.py,
// C2 deletes src/a.py.
func scenarioRepo(t *testing.T) (string, []string) {
	t.Helper()

	repo := gittest.NewRepo(t)
	ids := []string{
		repo.Write("src/a.py", "a = 1\n").Commit("add a"),
		repo.Write("src/b.py", "b = 1\n").Write("src/a.py", "a = 2\n").Commit("add b, edit a"),
		repo.Remove("src/a.py").Commit("drop a"),
	}

	return repo.Path, ids
}

func TestListCommits(t *testing.T) {
	t.Parallel()

	path, ids := scenarioRepo(t)

	forEachBackend(t, path, history.Options{}, func(t *testing.T, r history.Reader) {
		ctx := context.Background()

		commits, err := r.ListCommits(ctx)
		require.NoError(t, err)
		require.Len(t, commits, len(ids))

		for i, c := range commits {
			assert.Equal(t, ids[i], c.ID)
			assert.Equal(t, "Test User", c.Author)
			assert.Equal(t, "test@example.com", c.Email)

			if i > 0 {
				assert.False(t, c.Timestamp.Before(commits[i-1].Timestamp))
				assert.Equal(t, []string{ids[i-1]}, c.Parents)
			}
		}

		assert.Empty(t, commits[0].Parents)
		assert.Equal(t, "add b, edit a", commits[1].Message)

		again, err := r.ListCommits(ctx)
		require.NoError(t, err)
		assert.Equal(t, commits, again)
	})
}

func TestListCommitsLimit(t *testing.T) {
	t.Parallel()

	path, ids := scenarioRepo(t)

	forEachBackend(t, path, history.Options{Limit: 2}, func(t *testing.T, r history.Reader) {
		commits, err := r.ListCommits(context.Background())
		require.NoError(t, err)
		require.Len(t, commits, 2)
		assert.Equal(t, ids[1], commits[0].ID)
		assert.Equal(t, ids[2], commits[1].ID)
	})
}

func TestListCommitsEmptyRepository(t *testing.T) {
	t.Parallel()

	repo := gittest.NewRepo(t)

	forEachBackend(t, repo.Path, history.Options{}, func(t *testing.T, r history.Reader) {
		_, err := r.ListCommits(context.Background())
		require.ErrorIs(t, err, history.ErrNoHistory)
	})
}

func TestChangedFiles(t *testing.T) {
	t.Parallel()

	path, ids := scenarioRepo(t)

	forEachBackend(t, path, history.Options{}, func(t *testing.T, r history.Reader) {
		ctx := context.Background()

		want := [][]string{
			{"src/a.py"},
			{"src/a.py", "src/b.py"},
			{"src/a.py"},
		}

		for i, id := range ids {
			files, err := r.ChangedFiles(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, want[i], files, "commit %d", i)
		}
	})
}

func TestAllFilesAt(t *testing.T) {
	t.Parallel()

	path, ids := scenarioRepo(t)

	forEachBackend(t, path, history.Options{}, func(t *testing.T, r history.Reader) {
		ctx := context.Background()

		files, err := r.AllFilesAt(ctx, ids[1])
		require.NoError(t, err)
		assert.Equal(t, []string{"src/a.py", "src/b.py"}, files)

		files, err = r.AllFilesAt(ctx, ids[2])
		require.NoError(t, err)
		assert.Equal(t, []string{"src/b.py"}, files)
	})
}

func TestLastModifyingCommit(t *testing.T) {
	t.Parallel()

	path, ids := scenarioRepo(t)

	forEachBackend(t, path, history.Options{}, func(t *testing.T, r history.Reader) {
		ctx := context.Background()

		id, err := r.LastModifyingCommit(ctx, ids[2], "src/b.py")
		require.NoError(t, err)
		assert.Equal(t, ids[1], id)

		id, err = r.LastModifyingCommit(ctx, ids[1], "src/a.py")
		require.NoError(t, err)
		assert.Equal(t, ids[1], id)

		id, err = r.LastModifyingCommit(ctx, ids[0], "src/a.py")
		require.NoError(t, err)
		assert.Equal(t, ids[0], id)

		_, err = r.LastModifyingCommit(ctx, ids[2], "src/a.py")
		require.ErrorIs(t, err, history.ErrFileHistory)

		_, err = r.LastModifyingCommit(ctx, ids[0], "src/b.py")
		require.ErrorIs(t, err, history.ErrFileHistory)
	})
}

func TestLastModifyingCommitRevertedContent(t *testing.T) {
	t.Parallel()

	repo := gittest.NewRepo(t)
	repo.Write("f.txt", "one").Commit("c0")
	repo.Write("f.txt", "two").Commit("c1")
	restored := repo.Write("f.txt", "one").Commit("c2")
	head := repo.Write("g.txt", "other").Commit("c3")

	forEachBackend(t, repo.Path, history.Options{}, func(t *testing.T, r history.Reader) {
		id, err := r.LastModifyingCommit(context.Background(), head, "f.txt")
		require.NoError(t, err)
		assert.Equal(t, restored, id)
	})
}

func TestOpenUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := history.Open(t.TempDir(), history.Options{Backend: "svn"})
	require.ErrorIs(t, err, history.ErrUnknownBackend)
}

func TestCommitShortIDAndSubject(t *testing.T) {
	t.Parallel()

	c := history.Commit{
		ID:      "0123456789abcdef0123456789abcdef01234567",
		Message: "fix parser\n\nlonger body",
	}

	assert.Equal(t, "0123456", c.ShortID())
	assert.Equal(t, "fix parser", c.Subject())
	assert.Equal(t, "abc", history.Commit{ID: "abc"}.ShortID())
}
