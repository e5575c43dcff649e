package history_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codeatlas/pkg/history"
)

var errExit = errors.New("exit status 128")

// stubRunner answers commands by their joined argument string.
type stubRunner struct {
	replies map[string]string
	calls   []string
}

func (s *stubRunner) Run(_ context.Context, _ string, args ...string) ([]byte, error) {
	key := strings.Join(args, " ")
	s.calls = append(s.calls, key)

	reply, ok := s.replies[key]
	if !ok {
		return nil, errExit
	}

	return []byte(reply), nil
}

func newStub(replies map[string]string) *stubRunner {
	replies["rev-parse --git-dir"] = ".git\n"

	return &stubRunner{replies: replies}
}

func TestExecReaderParsesLog(t *testing.T) {
	t.Parallel()

	runner := newStub(map[string]string{
		"rev-parse --verify --quiet HEAD": "bbbb\n",
		"log --reverse --date-order --format=%H%x1f%P%x1f%at%x1f%an%x1f%ae%x1f%B%x1e --first-parent": "" +
			"aaaa\x1f\x1f1704110400\x1fAda\x1fada@example.com\x1finit\n\x1e\n" +
			"bbbb\x1faaaa\x1f1704110460\x1fBob\x1fbob@example.com\x1fsecond\n\nbody\n\x1e\n",
	})

	reader, err := history.NewExecReaderWithRunner(context.Background(), "/repo", runner,
		history.Options{FirstParent: true})
	require.NoError(t, err)

	commits, err := reader.ListCommits(context.Background())
	require.NoError(t, err)
	require.Len(t, commits, 2)

	assert.Equal(t, "aaaa", commits[0].ID)
	assert.Empty(t, commits[0].Parents)
	assert.Equal(t, "Ada", commits[0].Author)
	assert.Equal(t, int64(1704110400), commits[0].Timestamp.Unix())
	assert.Equal(t, []string{"aaaa"}, commits[1].Parents)
	assert.Equal(t, "second\n\nbody", commits[1].Message)
}

func TestExecReaderMalformedLog(t *testing.T) {
	t.Parallel()

	runner := newStub(map[string]string{
		"rev-parse --verify --quiet HEAD": "aaaa\n",
		"log --reverse --date-order --format=%H%x1f%P%x1f%at%x1f%an%x1f%ae%x1f%B%x1e": "garbage\x1e",
	})

	reader, err := history.NewExecReaderWithRunner(context.Background(), "/repo", runner, history.Options{})
	require.NoError(t, err)

	_, err = reader.ListCommits(context.Background())
	require.ErrorIs(t, err, history.ErrGitOutput)
}

func TestExecReaderNoHead(t *testing.T) {
	t.Parallel()

	reader, err := history.NewExecReaderWithRunner(context.Background(), "/repo", newStub(map[string]string{}),
		history.Options{})
	require.NoError(t, err)

	_, err = reader.ListCommits(context.Background())
	require.ErrorIs(t, err, history.ErrNoHistory)
}

func TestExecReaderNotARepository(t *testing.T) {
	t.Parallel()

	_, err := history.NewExecReaderWithRunner(context.Background(), "/tmp", &stubRunner{}, history.Options{})
	require.Error(t, err)
}

func TestExecReaderRootCommitListsTree(t *testing.T) {
	t.Parallel()

	runner := newStub(map[string]string{
		"rev-list --parents --max-count=1 aaaa": "aaaa\n",
		"ls-tree -r -z aaaa": "100644 blob 01\tz.txt\x00" +
			"160000 commit 02\tvendor/sub\x00" +
			"100644 blob 03\tdir/a.txt\x00",
	})

	reader, err := history.NewExecReaderWithRunner(context.Background(), "/repo", runner, history.Options{})
	require.NoError(t, err)

	files, err := reader.ChangedFiles(context.Background(), "aaaa")
	require.NoError(t, err)
	assert.Equal(t, []string{"dir/a.txt", "z.txt"}, files)
}

func TestExecReaderDiffAgainstFirstParent(t *testing.T) {
	t.Parallel()

	runner := newStub(map[string]string{
		"rev-list --parents --max-count=1 cccc":      "cccc aaaa bbbb\n",
		"diff --name-only --no-renames -z aaaa cccc": "b.txt\x00a.txt\x00",
	})

	reader, err := history.NewExecReaderWithRunner(context.Background(), "/repo", runner, history.Options{})
	require.NoError(t, err)

	files, err := reader.ChangedFiles(context.Background(), "cccc")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, files)
}

func TestExecReaderLastModifyingCommit(t *testing.T) {
	t.Parallel()

	runner := newStub(map[string]string{
		"cat-file -e cccc:a.txt": "",
		"--literal-pathspecs log --max-count=1 --format=%H cccc -- a.txt": "aaaa\n",
	})

	reader, err := history.NewExecReaderWithRunner(context.Background(), "/repo", runner, history.Options{})
	require.NoError(t, err)

	id, err := reader.LastModifyingCommit(context.Background(), "cccc", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "aaaa", id)

	_, err = reader.LastModifyingCommit(context.Background(), "cccc", "missing.txt")
	require.ErrorIs(t, err, history.ErrFileHistory)
}
