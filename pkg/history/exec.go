package history

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"

	// %H parents author-time author-name author-email body.
	logFormat = "--format=%H%x1f%P%x1f%at%x1f%an%x1f%ae%x1f%B%x1e"

	logFields = 6
)

// ErrGitOutput is returned when git prints something the reader cannot parse.
var ErrGitOutput = errors.New("unexpected git output")

// Runner executes a git-compatible command in a directory and returns its
// standard output.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}

// CommandRunner runs a binary on the local machine.
type CommandRunner struct {
	Binary string
}

// Run implements Runner.
func (c CommandRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Binary, args...)
	cmd.Dir = dir

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %s", c.Binary, strings.Join(args, " "), err,
			strings.TrimSpace(stderr.String()))
	}

	return out, nil
}

var _ ReadCloser = (*ExecReader)(nil)

// ExecReader reads history by running the git command line tool.
type ExecReader struct {
	dir    string
	runner Runner
	opts   Options
}

// NewExecReader returns a reader for the repository at dir using the
// configured git binary.
func NewExecReader(dir string, opts Options) (*ExecReader, error) {
	binary := opts.GitBinary
	if binary == "" {
		binary = "git"
	}

	return NewExecReaderWithRunner(context.Background(), dir, CommandRunner{Binary: binary}, opts)
}

// NewExecReaderWithRunner returns a reader that issues commands through runner.
// It verifies that dir is inside a repository.
func NewExecReaderWithRunner(ctx context.Context, dir string, runner Runner, opts Options) (*ExecReader, error) {
	_, err := runner.Run(ctx, dir, "rev-parse", "--git-dir")
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &ExecReader{dir: dir, runner: runner, opts: opts}, nil
}

// Close implements io.Closer.
func (r *ExecReader) Close() error { return nil }

// ListCommits implements Reader.
func (r *ExecReader) ListCommits(ctx context.Context) ([]Commit, error) {
	_, err := r.git(ctx, "rev-parse", "--verify", "--quiet", "HEAD")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		return nil, ErrNoHistory
	}

	args := []string{"log", "--reverse", "--date-order", logFormat}

	if r.opts.FirstParent {
		args = append(args, "--first-parent")
	}

	if r.opts.Limit > 0 {
		args = append(args, "--max-count="+strconv.Itoa(r.opts.Limit))
	}

	if r.opts.Since != nil {
		args = append(args, "--since="+r.opts.Since.Format(time.RFC3339))
	}

	out, err := r.git(ctx, args...)
	if err != nil {
		return nil, err
	}

	commits, err := parseLog(string(out))
	if err != nil {
		return nil, err
	}

	if len(commits) == 0 {
		return nil, ErrNoHistory
	}

	return commits, nil
}

func parseLog(out string) ([]Commit, error) {
	var commits []Commit

	for record := range strings.SplitSeq(out, recordSep) {
		record = strings.TrimLeft(record, "\n")
		if record == "" {
			continue
		}

		fields := strings.SplitN(record, fieldSep, logFields)
		if len(fields) != logFields {
			return nil, fmt.Errorf("%w: log record %q", ErrGitOutput, record)
		}

		unix, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: author time %q", ErrGitOutput, fields[2])
		}

		commits = append(commits, Commit{
			ID:        fields[0],
			Parents:   strings.Fields(fields[1]),
			Timestamp: time.Unix(unix, 0).UTC(),
			Author:    fields[3],
			Email:     fields[4],
			Message:   strings.TrimSpace(fields[5]),
		})
	}

	return commits, nil
}

// ChangedFiles implements Reader.
func (r *ExecReader) ChangedFiles(ctx context.Context, commitID string) ([]string, error) {
	out, err := r.git(ctx, "rev-list", "--parents", "--max-count=1", commitID)
	if err != nil {
		return nil, err
	}

	ids := strings.Fields(string(out))
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: rev-list %s", ErrGitOutput, commitID)
	}

	if len(ids) == 1 {
		return r.AllFilesAt(ctx, commitID)
	}

	out, err = r.git(ctx, "diff", "--name-only", "--no-renames", "-z", ids[1], commitID)
	if err != nil {
		return nil, err
	}

	return sortedUnique(splitNul(out)), nil
}

// AllFilesAt implements Reader.
func (r *ExecReader) AllFilesAt(ctx context.Context, commitID string) ([]string, error) {
	out, err := r.git(ctx, "ls-tree", "-r", "-z", commitID)
	if err != nil {
		return nil, err
	}

	var paths []string

	// Entries read "<mode> <type> <object>\t<path>".
	for _, entry := range splitNul(out) {
		meta, path, ok := strings.Cut(entry, "\t")
		if !ok {
			return nil, fmt.Errorf("%w: ls-tree entry %q", ErrGitOutput, entry)
		}

		if fields := strings.Fields(meta); len(fields) >= 2 && fields[1] == "blob" {
			paths = append(paths, path)
		}
	}

	return sortedUnique(paths), nil
}

// LastModifyingCommit implements Reader.
func (r *ExecReader) LastModifyingCommit(ctx context.Context, commitID, path string) (string, error) {
	_, err := r.git(ctx, "cat-file", "-e", commitID+":"+path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		return "", fmt.Errorf("%w: %s at %s", ErrFileHistory, path, commitID)
	}

	args := []string{"--literal-pathspecs", "log", "--max-count=1", "--format=%H"}

	if r.opts.FirstParent {
		args = append(args, "--first-parent")
	}

	args = append(args, commitID, "--", path)

	out, err := r.git(ctx, args...)
	if err != nil {
		return "", err
	}

	id := strings.TrimSpace(string(out))
	if id == "" {
		return "", fmt.Errorf("%w: %s at %s", ErrFileHistory, path, commitID)
	}

	return id, nil
}

func (r *ExecReader) git(ctx context.Context, args ...string) ([]byte, error) {
	return r.runner.Run(ctx, r.dir, args...)
}

func splitNul(out []byte) []string {
	var parts []string

	for part := range strings.SplitSeq(string(out), "\x00") {
		if part != "" {
			parts = append(parts, part)
		}
	}

	return parts
}
