package gitlib

import (
	"errors"
	"fmt"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrInvalidTimeFormat is returned when a time string cannot be parsed.
var ErrInvalidTimeFormat = errors.New("cannot parse time")

// LogOptions configures the commit log iteration.
type LogOptions struct {
	Since       *time.Time // Only include commits after this time.
	FirstParent bool       // Follow only first parent (git log --first-parent).
	Limit       int        // Keep at most the Limit most recent commits; 0 keeps all.
}

// Log returns a commit iterator starting from HEAD, newest first.
func (r *Repository) Log(opts *LogOptions) (*CommitIter, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}

	headRef, err := r.repo.Head()
	if err != nil {
		walk.Free()

		return nil, fmt.Errorf("get HEAD: %w", err)
	}
	defer headRef.Free()

	err = walk.Push(headRef.Target())
	if err != nil {
		walk.Free()

		return nil, fmt.Errorf("push HEAD to revwalk: %w", err)
	}

	// Topological order guarantees a parent is never listed after a child
	// once the sequence is reversed.
	walk.Sorting(git2go.SortTime | git2go.SortTopological)

	iter := &CommitIter{walk: walk, repo: r}

	if opts != nil {
		if opts.FirstParent {
			walk.SimplifyFirstParent()
		}

		iter.since = opts.Since
	}

	return iter, nil
}

// LoadCommits returns the history reachable from HEAD, oldest first.
// The caller owns the returned commits and must Free them.
func LoadCommits(repository *Repository, opts LogOptions) ([]*Commit, error) {
	iter, err := repository.Log(&opts)
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	defer iter.Close()

	var commits []*Commit

	for {
		commit, nextErr := iter.Next()
		if nextErr != nil {
			break
		}

		if opts.Limit > 0 && len(commits) >= opts.Limit {
			commit.Free()

			break
		}

		commits = append(commits, commit)
	}

	ReverseCommits(commits)

	return commits, nil
}

// ReverseCommits reverses the order of commits in place.
func ReverseCommits(commits []*Commit) {
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
}

// ParseTime parses a time string in various formats:
// - Duration relative to now (e.g. "24h")
// - RFC3339 (e.g. "2024-01-01T00:00:00Z")
// - Date only (e.g. "2024-01-01").
func ParseTime(s string) (time.Time, error) {
	d, durationErr := time.ParseDuration(s)
	if durationErr == nil {
		return time.Now().Add(-d), nil
	}

	parsedTime, rfc3339Err := time.Parse(time.RFC3339, s)
	if rfc3339Err == nil {
		return parsedTime, nil
	}

	parsedTime, dateOnlyErr := time.Parse(time.DateOnly, s)
	if dateOnlyErr == nil {
		return parsedTime, nil
	}

	return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidTimeFormat, s)
}
