// Package history reads a repository's commit history through a pluggable
// version-control backend.
//
// A Reader answers four read-only questions: the ordered commit list, the
// files a commit changed, the full file listing at a commit, and the last
// commit that touched a file as of a commit. Every call may block on I/O and
// takes a context.
package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
)

// Backend names accepted by Open.
const (
	BackendLibgit2 = "libgit2"
	BackendGit     = "git"
)

// ShortIDSize is the abbreviated commit id length shown to users.
const ShortIDSize = 7

// Sentinel errors.
var (
	// ErrNoHistory is returned when the repository has no commits.
	ErrNoHistory = errors.New("no git commits found")
	// ErrFileHistory is returned when a path never existed at or before a commit.
	ErrFileHistory = errors.New("no history for file")
	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown history backend")
)

// Commit is an immutable point in history.
type Commit struct {
	ID        string    `json:"id"                yaml:"id"`
	Parents   []string  `json:"parents,omitempty" yaml:"parents,omitempty"`
	Timestamp time.Time `json:"timestamp"         yaml:"timestamp"`
	Author    string    `json:"author"            yaml:"author"`
	Email     string    `json:"email,omitempty"   yaml:"email,omitempty"`
	Message   string    `json:"message"           yaml:"message"`
}

// ShortID returns the abbreviated commit id.
func (c Commit) ShortID() string {
	if len(c.ID) <= ShortIDSize {
		return c.ID
	}

	return c.ID[:ShortIDSize]
}

// Subject returns the first line of the commit message.
func (c Commit) Subject() string {
	subject, _, _ := strings.Cut(c.Message, "\n")

	return strings.TrimSpace(subject)
}

// Reader is the read-only capability set over a repository.
type Reader interface {
	// ListCommits returns every commit oldest first. It fails with
	// ErrNoHistory when there are none.
	ListCommits(ctx context.Context) ([]Commit, error)
	// ChangedFiles returns the sorted paths touched by the commit relative
	// to its first parent. A root commit reports every file it introduces.
	ChangedFiles(ctx context.Context, commitID string) ([]string, error)
	// AllFilesAt returns the sorted file listing of the commit's tree.
	AllFilesAt(ctx context.Context, commitID string) ([]string, error)
	// LastModifyingCommit returns the id of the closest ancestor-or-self of
	// commitID that changed path. It fails with ErrFileHistory when the
	// path has no history at commitID.
	LastModifyingCommit(ctx context.Context, commitID, path string) (string, error)
}

// ReadCloser is a Reader holding backend resources.
type ReadCloser interface {
	Reader
	io.Closer
}

// Options configures a backend.
type Options struct {
	// Backend is BackendLibgit2 (default) or BackendGit.
	Backend string
	// GitBinary is the executable used by the git backend.
	GitBinary string
	// FirstParent restricts listing and file history to first parents.
	FirstParent bool
	// Limit keeps only the Limit most recent commits; 0 keeps all.
	Limit int
	// Since drops commits authored before this time.
	Since *time.Time
}

// Open returns a reader for the repository at path.
func Open(path string, opts Options) (ReadCloser, error) {
	switch opts.Backend {
	case "", BackendLibgit2:
		return NewLibgitReader(path, opts)
	case BackendGit:
		return NewExecReader(path, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

func sortedUnique(paths []string) []string {
	if len(paths) == 0 {
		return []string{}
	}

	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))

	for _, p := range paths {
		if _, dup := seen[p]; dup {
			continue
		}

		seen[p] = struct{}{}
		out = append(out, p)
	}

	slices.Sort(out)

	return out
}
