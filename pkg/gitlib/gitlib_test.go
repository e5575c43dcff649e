package gitlib_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codeatlas/pkg/gitlib"
	"github.com/Sumatoshi-tech/codeatlas/pkg/gitlib/gittest"
)

func openRepo(t *testing.T, path string) *gitlib.Repository {
	t.Helper()

	repo, err := gitlib.OpenRepository(path)
	require.NoError(t, err)

	t.Cleanup(repo.Free)

	return repo
}

func lookupCommit(t *testing.T, repo *gitlib.Repository, id string) *gitlib.Commit {
	t.Helper()

	hash, err := gitlib.ParseHash(id)
	require.NoError(t, err)

	commit, err := repo.LookupCommit(hash)
	require.NoError(t, err)

	t.Cleanup(commit.Free)

	return commit
}

func TestOpenRepositoryNotFound(t *testing.T) {
	t.Parallel()

	repo, err := gitlib.OpenRepository("/nonexistent/path/to/repo")

	assert.Nil(t, repo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open repository")
}

func TestLoadRepositoryRejectsRemote(t *testing.T) {
	t.Parallel()

	for _, uri := range []string{"https://github.com/x/y.git", "git@github.com:x/y.git"} {
		_, err := gitlib.LoadRepository(uri)
		require.ErrorIs(t, err, gitlib.ErrRemoteNotSupported, uri)
	}
}

func TestRepositoryHeadAndEmpty(t *testing.T) {
	t.Parallel()

	scratch := gittest.NewRepo(t)

	repo := openRepo(t, scratch.Path)

	empty, err := repo.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)

	id := scratch.Write("a.txt", "a").Commit("init")

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, id, head.String())

	empty, err = repo.IsEmpty()
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestParseHash(t *testing.T) {
	t.Parallel()

	const hexID = "0123456789abcdef0123456789abcdef01234567"

	hash, err := gitlib.ParseHash(hexID)
	require.NoError(t, err)
	assert.Equal(t, hexID, hash.String())
	assert.Equal(t, "0123456", hash.Short())
	assert.False(t, hash.IsZero())
	assert.True(t, gitlib.Hash{}.IsZero())

	_, err = gitlib.ParseHash("abc")
	require.ErrorIs(t, err, gitlib.ErrInvalidHash)

	_, err = gitlib.ParseHash("zz23456789abcdef0123456789abcdef01234567")
	require.ErrorIs(t, err, gitlib.ErrInvalidHash)
}

func TestCommitMetadataAndParents(t *testing.T) {
	t.Parallel()

	scratch := gittest.NewRepo(t)
	first := scratch.Write("a.txt", "a").Commit("first")
	second := scratch.Write("a.txt", "b").Commit("second\n\nbody")

	repo := openRepo(t, scratch.Path)

	commit := lookupCommit(t, repo, second)

	assert.Equal(t, second, commit.Hash().String())
	assert.Equal(t, "Test User", commit.Author().Name)
	assert.Equal(t, "test@example.com", commit.Author().Email)
	assert.Contains(t, commit.Message(), "second")
	require.Equal(t, 1, commit.NumParents())
	assert.Equal(t, first, commit.ParentHash(0).String())

	parent, err := commit.Parent(0)
	require.NoError(t, err)

	defer parent.Free()

	assert.Equal(t, first, parent.Hash().String())

	root := lookupCommit(t, repo, first)
	assert.Equal(t, 0, root.NumParents())

	_, err = root.Parent(0)
	require.ErrorIs(t, err, gitlib.ErrParentNotFound)
}

func TestTreePathsAndBlobHash(t *testing.T) {
	t.Parallel()

	scratch := gittest.NewRepo(t)
	id := scratch.
		Write("README.md", "readme").
		Write("src/main.go", "package main").
		Write("src/pkg/util.go", "package pkg").
		Commit("init")

	repo := openRepo(t, scratch.Path)
	commit := lookupCommit(t, repo, id)

	tree, err := commit.Tree()
	require.NoError(t, err)

	defer tree.Free()

	paths, err := tree.Paths()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"README.md", "src/main.go", "src/pkg/util.go"}, paths)

	hash, ok := tree.BlobHash("src/main.go")
	assert.True(t, ok)
	assert.False(t, hash.IsZero())

	_, ok = tree.BlobHash("src")
	assert.False(t, ok, "directories are not blobs")

	_, ok = tree.BlobHash("missing.txt")
	assert.False(t, ok)
}

func TestChangedPaths(t *testing.T) {
	t.Parallel()

	scratch := gittest.NewRepo(t)
	first := scratch.Write("keep.txt", "k").Write("edit.txt", "1").Write("gone.txt", "g").Commit("first")
	second := scratch.Write("edit.txt", "2").Remove("gone.txt").Write("new/added.txt", "n").Commit("second")

	repo := openRepo(t, scratch.Path)

	oldTree, err := lookupCommit(t, repo, first).Tree()
	require.NoError(t, err)

	defer oldTree.Free()

	newTree, err := lookupCommit(t, repo, second).Tree()
	require.NoError(t, err)

	defer newTree.Free()

	paths, err := repo.ChangedPaths(oldTree, newTree)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"edit.txt", "gone.txt", "new/added.txt"}, paths)

	initial, err := repo.ChangedPaths(nil, oldTree)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"keep.txt", "edit.txt", "gone.txt"}, initial)

	same, err := repo.ChangedPaths(newTree, newTree)
	require.NoError(t, err)
	assert.Empty(t, same)
}

func TestLoadCommitsOldestFirst(t *testing.T) {
	t.Parallel()

	scratch := gittest.NewRepo(t)
	ids := []string{
		scratch.Write("a", "1").Commit("c0"),
		scratch.Write("a", "2").Commit("c1"),
		scratch.Write("a", "3").Commit("c2"),
	}

	repo := openRepo(t, scratch.Path)

	commits, err := gitlib.LoadCommits(repo, gitlib.LogOptions{})
	require.NoError(t, err)
	require.Len(t, commits, len(ids))

	for i, commit := range commits {
		assert.Equal(t, ids[i], commit.Hash().String())
		commit.Free()
	}

	limited, err := gitlib.LoadCommits(repo, gitlib.LogOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, ids[1], limited[0].Hash().String(), "limit keeps the most recent commits")

	for _, commit := range limited {
		commit.Free()
	}
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	parsed, err := gitlib.ParseTime("2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC), parsed)

	parsed, err = gitlib.ParseTime("2024-01-02T03:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, 3, parsed.Hour())

	parsed, err = gitlib.ParseTime("1h")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(-time.Hour), parsed, time.Minute)

	_, err = gitlib.ParseTime("yesterday-ish")
	require.ErrorIs(t, err, gitlib.ErrInvalidTimeFormat)
}
