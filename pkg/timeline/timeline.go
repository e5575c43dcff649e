// Package timeline lists commits newest first with the files each one
// changed.
package timeline

import (
	"context"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/codeatlas/pkg/history"
)

// Entry is one commit of the timeline.
type Entry struct {
	history.Commit `yaml:",inline"`

	Files []string `json:"files" yaml:"files"`
}

// Build reads every commit of reader and the files it changed, newest
// first.
func Build(ctx context.Context, reader history.Reader) ([]Entry, error) {
	commits, err := reader.ListCommits(ctx)
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}

	entries := make([]Entry, 0, len(commits))

	for _, commit := range slices.Backward(commits) {
		files, filesErr := reader.ChangedFiles(ctx, commit.ID)
		if filesErr != nil {
			return nil, fmt.Errorf("changed files of %s: %w", commit.ShortID(), filesErr)
		}

		entries = append(entries, Entry{Commit: commit, Files: files})
	}

	return entries, nil
}
