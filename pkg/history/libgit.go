package history

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Sumatoshi-tech/codeatlas/pkg/gitlib"
)

var _ ReadCloser = (*LibgitReader)(nil)

// LibgitReader reads history through libgit2.
//
// libgit2 handles are not safe for concurrent use, so every call holds the
// reader's lock for its duration.
type LibgitReader struct {
	mu   sync.Mutex
	repo *gitlib.Repository
	opts Options
}

// NewLibgitReader opens the local repository at path.
func NewLibgitReader(path string, opts Options) (*LibgitReader, error) {
	repo, err := gitlib.LoadRepository(path)
	if err != nil {
		return nil, err
	}

	return &LibgitReader{repo: repo, opts: opts}, nil
}

// Close frees the repository.
func (r *LibgitReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.repo.Free()

	return nil
}

// ListCommits implements Reader.
func (r *LibgitReader) ListCommits(ctx context.Context) ([]Commit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	empty, err := r.repo.IsEmpty()
	if err != nil {
		return nil, err
	}

	if empty {
		return nil, ErrNoHistory
	}

	native, err := gitlib.LoadCommits(r.repo, gitlib.LogOptions{
		Since:       r.opts.Since,
		FirstParent: r.opts.FirstParent,
		Limit:       r.opts.Limit,
	})
	if err != nil {
		return nil, err
	}

	defer func() {
		for _, c := range native {
			c.Free()
		}
	}()

	commits := make([]Commit, 0, len(native))

	for _, c := range native {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		commits = append(commits, toCommit(c))
	}

	if len(commits) == 0 {
		return nil, ErrNoHistory
	}

	return commits, nil
}

func toCommit(c *gitlib.Commit) Commit {
	author := c.Author()

	parents := make([]string, c.NumParents())
	for i := range parents {
		parents[i] = c.ParentHash(i).String()
	}

	return Commit{
		ID:        c.Hash().String(),
		Parents:   parents,
		Timestamp: author.When,
		Author:    author.Name,
		Email:     author.Email,
		Message:   strings.TrimSpace(c.Message()),
	}
}

// ChangedFiles implements Reader.
func (r *LibgitReader) ChangedFiles(ctx context.Context, commitID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	commit, err := r.lookup(commitID)
	if err != nil {
		return nil, err
	}
	defer commit.Free()

	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	defer tree.Free()

	var parentTree *gitlib.Tree

	if commit.NumParents() > 0 {
		parent, parentErr := commit.Parent(0)
		if parentErr != nil {
			return nil, fmt.Errorf("changed files %s: %w", commitID, parentErr)
		}

		parentTree, err = parent.Tree()

		parent.Free()

		if err != nil {
			return nil, err
		}
		defer parentTree.Free()
	}

	paths, err := r.repo.ChangedPaths(parentTree, tree)
	if err != nil {
		return nil, fmt.Errorf("changed files %s: %w", commitID, err)
	}

	return sortedUnique(paths), nil
}

// AllFilesAt implements Reader.
func (r *LibgitReader) AllFilesAt(ctx context.Context, commitID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	commit, err := r.lookup(commitID)
	if err != nil {
		return nil, err
	}
	defer commit.Free()

	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	defer tree.Free()

	paths, err := tree.Paths()
	if err != nil {
		return nil, fmt.Errorf("list files %s: %w", commitID, err)
	}

	return sortedUnique(paths), nil
}

// LastModifyingCommit implements Reader. Starting at commitID it steps to a
// parent holding the identical blob for path, preferring earlier parents,
// and stops at the first commit whose parents all differ.
func (r *LibgitReader) LastModifyingCommit(ctx context.Context, commitID, path string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.lookup(commitID)
	if err != nil {
		return "", err
	}

	blob, ok := blobAt(current, path)
	if !ok {
		current.Free()

		return "", fmt.Errorf("%w: %s at %s", ErrFileHistory, path, commitID)
	}

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			current.Free()

			return "", ctxErr
		}

		next := r.sameBlobParent(current, path, blob)
		if next == nil {
			id := current.Hash().String()
			current.Free()

			return id, nil
		}

		current.Free()
		current = next
	}
}

func (r *LibgitReader) sameBlobParent(commit *gitlib.Commit, path string, blob gitlib.Hash) *gitlib.Commit {
	n := commit.NumParents()
	if r.opts.FirstParent && n > 1 {
		n = 1
	}

	for i := range n {
		parent, err := commit.Parent(i)
		if err != nil {
			continue
		}

		if hash, ok := blobAt(parent, path); ok && hash == blob {
			return parent
		}

		parent.Free()
	}

	return nil
}

func blobAt(commit *gitlib.Commit, path string) (gitlib.Hash, bool) {
	tree, err := commit.Tree()
	if err != nil {
		return gitlib.Hash{}, false
	}
	defer tree.Free()

	return tree.BlobHash(path)
}

func (r *LibgitReader) lookup(commitID string) (*gitlib.Commit, error) {
	hash, err := gitlib.ParseHash(commitID)
	if err != nil {
		return nil, err
	}

	commit, err := r.repo.LookupCommit(hash)
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", commitID, err)
	}

	return commit, nil
}
