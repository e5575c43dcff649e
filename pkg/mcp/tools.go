package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool names.
const (
	ToolNameCommits  = "codeatlas_commits"
	ToolNameSnapshot = "codeatlas_snapshot"
	ToolNameHotspots = "codeatlas_hotspots"
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyRepoPath indicates the repo_path parameter is empty.
	ErrEmptyRepoPath = errors.New("repo_path parameter is required and must not be empty")
	// ErrRepoPathNotAbsolute indicates the repo_path is not an absolute path.
	ErrRepoPathNotAbsolute = errors.New("repo_path must be an absolute path")
	// ErrRepoNotFound indicates the repository path does not exist.
	ErrRepoNotFound = errors.New("repository path does not exist")
	// ErrNotGitRepo indicates the path is not a git repository.
	ErrNotGitRepo = errors.New("path is not a git repository")
)

// repoSelector is the repository part shared by every tool input.
type repoSelector struct {
	RepoPath    string
	FirstParent bool
	Limit       int
	Since       string
}

// CommitsInput is the input schema for the codeatlas_commits tool.
type CommitsInput struct {
	FirstParent bool   `json:"first_parent,omitempty" jsonschema:"follow only the first parent of merge commits"`
	Limit       int    `json:"limit,omitempty"        jsonschema:"keep only the most recent commits (default: all)"`
	RepoPath    string `json:"repo_path"              jsonschema:"absolute path to a Git repository"`
	Since       string `json:"since,omitempty"        jsonschema:"only commits after this time (e.g. 24h or 2024-01-01)"`
	WithFiles   bool   `json:"with_files,omitempty"   jsonschema:"include the files each commit changed"`
}

func (in CommitsInput) repo() repoSelector {
	return repoSelector{RepoPath: in.RepoPath, FirstParent: in.FirstParent, Limit: in.Limit, Since: in.Since}
}

// SnapshotInput is the input schema for the codeatlas_snapshot tool.
type SnapshotInput struct {
	Commit      string `json:"commit,omitempty"       jsonschema:"commit id or unambiguous prefix; overrides index"`
	FirstParent bool   `json:"first_parent,omitempty" jsonschema:"follow only the first parent of merge commits"`
	Index       *int   `json:"index,omitempty"        jsonschema:"position in history, 0 is the oldest commit (default: newest)"`
	Limit       int    `json:"limit,omitempty"        jsonschema:"keep only the most recent commits (default: all)"`
	RepoPath    string `json:"repo_path"              jsonschema:"absolute path to a Git repository"`
	Since       string `json:"since,omitempty"        jsonschema:"only commits after this time (e.g. 24h or 2024-01-01)"`
}

func (in SnapshotInput) repo() repoSelector {
	return repoSelector{RepoPath: in.RepoPath, FirstParent: in.FirstParent, Limit: in.Limit, Since: in.Since}
}

// HotspotsInput is the input schema for the codeatlas_hotspots tool.
type HotspotsInput struct {
	Commit      string `json:"commit,omitempty"       jsonschema:"commit id or unambiguous prefix; overrides index"`
	FirstParent bool   `json:"first_parent,omitempty" jsonschema:"follow only the first parent of merge commits"`
	Index       *int   `json:"index,omitempty"        jsonschema:"position in history, 0 is the oldest commit (default: newest)"`
	Limit       int    `json:"limit,omitempty"        jsonschema:"keep only the most recent commits (default: all)"`
	RepoPath    string `json:"repo_path"              jsonschema:"absolute path to a Git repository"`
	Since       string `json:"since,omitempty"        jsonschema:"only commits after this time (e.g. 24h or 2024-01-01)"`
	Top         int    `json:"top,omitempty"          jsonschema:"number of files to return (default: 20)"`
}

func (in HotspotsInput) repo() repoSelector {
	return repoSelector{RepoPath: in.RepoPath, FirstParent: in.FirstParent, Limit: in.Limit, Since: in.Since}
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

func validateRepoPath(repoPath string) error {
	if repoPath == "" {
		return ErrEmptyRepoPath
	}

	if !filepath.IsAbs(repoPath) {
		return ErrRepoPathNotAbsolute
	}

	info, err := os.Stat(repoPath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRepoNotFound, repoPath)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrRepoNotFound, repoPath)
	}

	_, err = os.Stat(filepath.Join(repoPath, ".git"))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotGitRepo, repoPath)
	}

	return nil
}
