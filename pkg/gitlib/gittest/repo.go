// Package gittest builds throwaway git repositories for tests.
package gittest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/require"
)

// Repo is a scratch repository with a working directory.
type Repo struct {
	t      testing.TB
	Path   string
	native *git2go.Repository
	clock  time.Time
}

// NewRepo initialises an empty repository in a temp dir. It is freed when
// the test ends.
func NewRepo(t testing.TB) *Repo {
	t.Helper()

	dir := t.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	t.Cleanup(repo.Free)

	return &Repo{
		t:      t,
		Path:   dir,
		native: repo,
		clock:  time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Write creates or overwrites a file in the working directory.
func (r *Repo) Write(name, content string) *Repo {
	r.t.Helper()

	path := filepath.Join(r.Path, filepath.FromSlash(name))

	require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(r.t, os.WriteFile(path, []byte(content), 0o644))

	return r
}

// Remove deletes a file from the working directory.
func (r *Repo) Remove(name string) *Repo {
	r.t.Helper()

	require.NoError(r.t, os.Remove(filepath.Join(r.Path, filepath.FromSlash(name))))

	return r
}

// Commit stages the whole working directory and commits it on HEAD. Commit
// times advance by one minute per call so ordering is deterministic.
func (r *Repo) Commit(message string) string {
	r.t.Helper()

	index, err := r.native.Index()
	require.NoError(r.t, err)

	defer index.Free()

	require.NoError(r.t, index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil))
	require.NoError(r.t, index.UpdateAll([]string{"*"}, nil))
	require.NoError(r.t, index.Write())

	treeID, err := index.WriteTree()
	require.NoError(r.t, err)

	tree, err := r.native.LookupTree(treeID)
	require.NoError(r.t, err)

	defer tree.Free()

	r.clock = r.clock.Add(time.Minute)

	sig := &git2go.Signature{
		Name:  "Test User",
		Email: "test@example.com",
		When:  r.clock,
	}

	var parents []*git2go.Commit

	head, err := r.native.Head()
	if err == nil {
		headCommit, lookupErr := r.native.LookupCommit(head.Target())
		require.NoError(r.t, lookupErr)

		parents = append(parents, headCommit)

		head.Free()
	}

	oid, err := r.native.CreateCommit("HEAD", sig, sig, message, tree, parents...)
	require.NoError(r.t, err)

	for _, parent := range parents {
		parent.Free()
	}

	return oid.String()
}
