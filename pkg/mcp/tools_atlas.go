package mcp

import (
	"context"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/codeatlas/pkg/cursor"
	"github.com/Sumatoshi-tech/codeatlas/pkg/gitlib"
	"github.com/Sumatoshi-tech/codeatlas/pkg/history"
	"github.com/Sumatoshi-tech/codeatlas/pkg/hotspot"
	"github.com/Sumatoshi-tech/codeatlas/pkg/snapshot"
)

const defaultHotspotTop = 20

// atlas answers tool calls. Each call opens the repository afresh, so calls
// share nothing.
type atlas struct {
	open     Opener
	defaults history.Options
	logger   *slog.Logger
}

type commitEntry struct {
	history.Commit

	Files []string `json:"files,omitempty"`
}

type commitsResult struct {
	Total   int           `json:"total"`
	Commits []commitEntry `json:"commits"`
}

type snapshotResult struct {
	Total    int                `json:"total"`
	Commit   history.Commit     `json:"commit"`
	Snapshot *snapshot.Snapshot `json:"snapshot"`
	Colors   cursor.Coloring    `json:"colors"`
}

type hotspotsResult struct {
	Position int             `json:"position"`
	Commit   history.Commit  `json:"commit"`
	Hotspots []hotspot.Entry `json:"hotspots"`
}

func (a *atlas) handleCommits(ctx context.Context, _ *mcpsdk.CallToolRequest, input CommitsInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	reader, err := a.reader(input.repo())
	if err != nil {
		return errorResult(err)
	}
	defer func() { _ = reader.Close() }()

	commits, err := reader.ListCommits(ctx)
	if err != nil {
		return errorResult(fmt.Errorf("list commits: %w", err))
	}

	out := commitsResult{Total: len(commits), Commits: make([]commitEntry, 0, len(commits))}

	for _, commit := range commits {
		entry := commitEntry{Commit: commit}

		if input.WithFiles {
			entry.Files, err = reader.ChangedFiles(ctx, commit.ID)
			if err != nil {
				return errorResult(fmt.Errorf("changed files of %s: %w", commit.ShortID(), err))
			}
		}

		out.Commits = append(out.Commits, entry)
	}

	return jsonResult(out)
}

func (a *atlas) handleSnapshot(ctx context.Context, _ *mcpsdk.CallToolRequest, input SnapshotInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	reader, err := a.reader(input.repo())
	if err != nil {
		return errorResult(err)
	}
	defer func() { _ = reader.Close() }()

	cur, err := cursor.New(ctx, reader, snapshot.NewBuilder(reader, a.logger), cursor.Options{EagerIndex: true, Logger: a.logger})
	if err != nil {
		return errorResult(err)
	}

	p, err := position(cur, input.Commit, input.Index)
	if err != nil {
		return errorResult(err)
	}

	snap, err := cur.JumpTo(ctx, p)
	if err != nil {
		return errorResult(err)
	}

	colors, err := cur.Colors(ctx)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(snapshotResult{
		Total:    cur.Len(),
		Commit:   cur.Commits()[p],
		Snapshot: snap,
		Colors:   colors,
	})
}

// handleHotspots counts changes without building any snapshot.
func (a *atlas) handleHotspots(ctx context.Context, _ *mcpsdk.CallToolRequest, input HotspotsInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	reader, err := a.reader(input.repo())
	if err != nil {
		return errorResult(err)
	}
	defer func() { _ = reader.Close() }()

	cur, err := cursor.New(ctx, reader, snapshot.NewBuilder(reader, a.logger), cursor.Options{Logger: a.logger})
	if err != nil {
		return errorResult(err)
	}

	p, err := position(cur, input.Commit, input.Index)
	if err != nil {
		return errorResult(err)
	}

	sets, err := cur.ChangeSets(ctx, p)
	if err != nil {
		return errorResult(err)
	}

	top := input.Top
	if top <= 0 {
		top = defaultHotspotTop
	}

	return jsonResult(hotspotsResult{
		Position: p,
		Commit:   cur.Commits()[p],
		Hotspots: hotspot.Top(hotspot.Compute(sets), top),
	})
}

func (a *atlas) reader(sel repoSelector) (history.ReadCloser, error) {
	err := validateRepoPath(sel.RepoPath)
	if err != nil {
		return nil, err
	}

	opts := a.defaults
	opts.FirstParent = opts.FirstParent || sel.FirstParent

	if sel.Limit > 0 {
		opts.Limit = sel.Limit
	}

	if sel.Since != "" {
		since, parseErr := gitlib.ParseTime(sel.Since)
		if parseErr != nil {
			return nil, fmt.Errorf("since: %w", parseErr)
		}

		opts.Since = &since
	}

	reader, err := a.open(sel.RepoPath, opts)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return reader, nil
}

// position picks the commit a tool call refers to: an id, an index, or the
// newest commit.
func position(cur *cursor.Cursor, commit string, index *int) (int, error) {
	switch {
	case commit != "":
		return cur.Resolve(commit)
	case index != nil:
		if *index < 0 || *index >= cur.Len() {
			return 0, fmt.Errorf("%w: %d not in [0, %d)", cursor.ErrOutOfRange, *index, cur.Len())
		}

		return *index, nil
	default:
		return cur.Len() - 1, nil
	}
}
