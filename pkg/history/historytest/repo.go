// Package historytest provides a scripted in-memory history.Reader.
package historytest

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Sumatoshi-tech/codeatlas/pkg/history"
)

// Op names a Reader operation.
type Op string

// Reader operations.
const (
	OpListCommits   Op = "list"
	OpChangedFiles  Op = "changed"
	OpAllFilesAt    Op = "all"
	OpLastModifying Op = "last"
)

// ErrUnknownCommit is returned for ids the repository never produced.
var ErrUnknownCommit = errors.New("unknown commit")

// Change edits the tree of a scripted commit.
type Change struct {
	path   string
	remove bool
}

// Add introduces path.
func Add(path string) Change { return Change{path: path} }

// Modify changes path.
func Modify(path string) Change { return Change{path: path} }

// Delete removes path.
func Delete(path string) Change { return Change{path: path, remove: true} }

// Hook runs before every operation. A non-nil error is returned from it.
type Hook func(ctx context.Context, op Op, key string) error

type fault struct {
	op  Op
	key string
}

// Repo is a linear scripted history. It is safe for concurrent use.
type Repo struct {
	mu      sync.Mutex
	commits []history.Commit
	trees   []map[string]struct{}
	changed [][]string
	faults  map[fault]error
	calls   map[Op]int
	hook    Hook
}

var _ history.Reader = (*Repo)(nil)

// New returns an empty repository.
func New() *Repo {
	return &Repo{
		faults: make(map[fault]error),
		calls:  make(map[Op]int),
	}
}

// ID returns the deterministic id of the commit at position i.
func ID(i int) string {
	return fmt.Sprintf("%040x", i+1)
}

var epoch = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

// Commit appends a commit applying changes to the previous tree.
func (r *Repo) Commit(message string, changes ...Change) *Repo {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos := len(r.commits)

	tree := make(map[string]struct{})
	if pos > 0 {
		maps.Copy(tree, r.trees[pos-1])
	}

	changed := make([]string, 0, len(changes))

	for _, ch := range changes {
		if ch.remove {
			delete(tree, ch.path)
		} else {
			tree[ch.path] = struct{}{}
		}

		changed = append(changed, ch.path)
	}

	slices.Sort(changed)

	var parents []string
	if pos > 0 {
		parents = []string{ID(pos - 1)}
	}

	r.commits = append(r.commits, history.Commit{
		ID:        ID(pos),
		Parents:   parents,
		Timestamp: epoch.Add(time.Duration(pos) * time.Minute),
		Author:    "Test User",
		Email:     "test@example.com",
		Message:   message,
	})
	r.trees = append(r.trees, tree)
	r.changed = append(r.changed, slices.Compact(changed))

	return r
}

// Fail makes op return err. key is a commit id, or a path for
// OpLastModifying; an empty key matches every call.
func (r *Repo) Fail(op Op, key string, err error) *Repo {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.faults[fault{op: op, key: key}] = err

	return r
}

// Heal removes every injected failure.
func (r *Repo) Heal() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.faults)
}

// SetHook installs a hook called before every operation.
func (r *Repo) SetHook(hook Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hook = hook
}

// Calls returns how many times op has been invoked.
func (r *Repo) Calls(op Op) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.calls[op]
}

func (r *Repo) enter(ctx context.Context, op Op, key string) error {
	r.mu.Lock()
	r.calls[op]++
	hook := r.hook

	err := r.faults[fault{op: op, key: key}]
	if err == nil {
		err = r.faults[fault{op: op}]
	}
	r.mu.Unlock()

	if hook != nil {
		if hookErr := hook(ctx, op, key); hookErr != nil {
			return hookErr
		}
	}

	if err != nil {
		return err
	}

	return ctx.Err()
}

func (r *Repo) position(id string) (int, error) {
	for i, c := range r.commits {
		if c.ID == id {
			return i, nil
		}
	}

	return 0, fmt.Errorf("%w: %s", ErrUnknownCommit, id)
}

// ListCommits implements history.Reader.
func (r *Repo) ListCommits(ctx context.Context) ([]history.Commit, error) {
	if err := r.enter(ctx, OpListCommits, ""); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.commits) == 0 {
		return nil, history.ErrNoHistory
	}

	return slices.Clone(r.commits), nil
}

// ChangedFiles implements history.Reader.
func (r *Repo) ChangedFiles(ctx context.Context, commitID string) ([]string, error) {
	if err := r.enter(ctx, OpChangedFiles, commitID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pos, err := r.position(commitID)
	if err != nil {
		return nil, err
	}

	return slices.Clone(r.changed[pos]), nil
}

// AllFilesAt implements history.Reader.
func (r *Repo) AllFilesAt(ctx context.Context, commitID string) ([]string, error) {
	if err := r.enter(ctx, OpAllFilesAt, commitID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pos, err := r.position(commitID)
	if err != nil {
		return nil, err
	}

	return slices.Sorted(maps.Keys(r.trees[pos])), nil
}

// LastModifyingCommit implements history.Reader.
func (r *Repo) LastModifyingCommit(ctx context.Context, commitID, path string) (string, error) {
	if err := r.enter(ctx, OpLastModifying, path); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pos, err := r.position(commitID)
	if err != nil {
		return "", err
	}

	if _, ok := r.trees[pos][path]; !ok {
		return "", fmt.Errorf("%w: %s", history.ErrFileHistory, path)
	}

	for i := pos; i >= 0; i-- {
		if slices.Contains(r.changed[i], path) {
			return r.commits[i].ID, nil
		}
	}

	return "", fmt.Errorf("%w: %s", history.ErrFileHistory, path)
}
