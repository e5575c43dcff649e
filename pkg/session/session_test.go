package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codeatlas/pkg/cursor"
	"github.com/Sumatoshi-tech/codeatlas/pkg/history/historytest"
	"github.com/Sumatoshi-tech/codeatlas/pkg/hotspot"
	"github.com/Sumatoshi-tech/codeatlas/pkg/session"
	"github.com/Sumatoshi-tech/codeatlas/pkg/snapshot"
)

const waitFor = 5 * time.Second

var errBackend = errors.New("backend failure")

func scenario() *historytest.Repo {
	return historytest.New().
		Commit("c0", historytest.Add("a.txt")).
		Commit("c1", historytest.Modify("a.txt"), historytest.Add("b.txt")).
		Commit("c2", historytest.Modify("b.txt"))
}

func factory(repo *historytest.Repo) session.CursorFactory {
	return func(ctx context.Context) (*cursor.Cursor, error) {
		return cursor.New(ctx, repo, snapshot.NewBuilder(repo, nil), cursor.Options{})
	}
}

func open(t *testing.T, repo *historytest.Repo) *session.Session {
	t.Helper()

	cur, err := factory(repo)(context.Background())
	require.NoError(t, err)

	s := session.New(context.Background(), "test", cur, session.Options{})
	t.Cleanup(s.Close)

	return s
}

func roundTrip(t *testing.T, s *session.Session, req session.Request) session.Response {
	t.Helper()

	require.NoError(t, s.Send(context.Background(), req))

	select {
	case resp, ok := <-s.Responses():
		require.True(t, ok, "session ended")

		return resp
	case <-time.After(waitFor):
		require.FailNow(t, "no response")

		return session.Response{}
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	valid := map[string]session.Request{
		`{"command":"fetch","index":2}`:        session.Fetch(2),
		`{"command":"next"}`:                   {Command: session.CommandNext},
		`{"command":"prev"}`:                   {Command: session.CommandPrev},
		`{"command":"origin","path":"a/b.go"}`: {Command: session.CommandOrigin, Path: "a/b.go"},
		`{"command":"commit","id":"abcd"}`:     {Command: session.CommandCommit, ID: "abcd"},
	}

	for raw, want := range valid {
		got, err := session.Decode([]byte(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	invalid := []string{
		`not json`,
		`{}`,
		`{"command":"fetch"}`,
		`{"command":"fetch","index":"2"}`,
		`{"command":"fetch","index":1.5}`,
		`{"command":"origin"}`,
		`{"command":"origin","path":""}`,
		`{"command":"commit"}`,
		`{"command":"delete"}`,
		`{"command":"next","extra":true}`,
	}

	for _, raw := range invalid {
		_, err := session.Decode([]byte(raw))
		require.ErrorIs(t, err, session.ErrInvalidMessage, raw)
	}
}

func TestResponsesInRequestOrder(t *testing.T) {
	t.Parallel()

	s := open(t, scenario())
	ctx := context.Background()

	reqs := []session.Request{
		session.Fetch(2),
		session.Fetch(0),
		{Command: session.CommandNext},
		{Command: session.CommandNext},
		{Command: session.CommandPrev},
	}

	for _, req := range reqs {
		require.NoError(t, s.Send(ctx, req))
	}

	var got []int

	for range reqs {
		select {
		case resp := <-s.Responses():
			require.Equal(t, session.CommandUpdateGraph, resp.Command)
			got = append(got, resp.Index)
		case <-time.After(waitFor):
			require.FailNow(t, "missing response")
		}
	}

	assert.Equal(t, []int{2, 0, 1, 2, 1}, got)
}

func TestView(t *testing.T) {
	t.Parallel()

	s := open(t, scenario())

	resp := roundTrip(t, s, session.Fetch(2))
	require.NotNil(t, resp.Data)

	view := resp.Data
	assert.Equal(t, 2, view.Position)
	assert.Equal(t, 3, view.Total)
	assert.Equal(t, historytest.ID(2), view.Commit.ID)
	assert.Equal(t, view.Commit.ID, view.Snapshot.CommitID)
	assert.Equal(t, cursor.ColorOngoing, view.Colors.Of("b.txt"))
	assert.Equal(t, []hotspot.Entry{{Path: "a.txt", Count: 2}, {Path: "b.txt", Count: 2}}, view.Hotspots)
	require.NotNil(t, view.Tree.Find("b.txt"))

	resp = roundTrip(t, s, session.Request{Command: session.CommandPrev})
	assert.Equal(t, []hotspot.Entry{{Path: "a.txt", Count: 2}, {Path: "b.txt", Count: 1}}, resp.Data.Hotspots)

	resp = roundTrip(t, s, session.Request{Command: session.CommandPrev})
	assert.Equal(t, []hotspot.Entry{{Path: "a.txt", Count: 1}}, resp.Data.Hotspots)
}

func TestBoundaryResendsCurrentView(t *testing.T) {
	t.Parallel()

	s := open(t, scenario())

	resp := roundTrip(t, s, session.Request{Command: session.CommandPrev})
	assert.Equal(t, session.CommandUpdateGraph, resp.Command)
	assert.True(t, resp.Boundary)
	assert.Equal(t, 0, resp.Index)

	resp = roundTrip(t, s, session.Fetch(7))
	assert.True(t, resp.Boundary)
	assert.Equal(t, 0, resp.Index)

	resp = roundTrip(t, s, session.Fetch(1))
	assert.False(t, resp.Boundary)
	assert.Equal(t, 1, resp.Index)
}

func TestBuildFailureIsRetryable(t *testing.T) {
	t.Parallel()

	repo := scenario().Fail(historytest.OpAllFilesAt, historytest.ID(1), errBackend)
	s := open(t, repo)

	resp := roundTrip(t, s, session.Fetch(1))
	assert.Equal(t, session.CommandError, resp.Command)
	assert.Equal(t, 1, resp.Index)
	assert.True(t, resp.Retryable)
	assert.Contains(t, resp.Error, "backend failure")

	repo.Heal()

	resp = roundTrip(t, s, session.Fetch(1))
	assert.Equal(t, session.CommandUpdateGraph, resp.Command)
	assert.Equal(t, 1, resp.Index)
}

func TestFailedViewKeepsPosition(t *testing.T) {
	t.Parallel()

	repo := scenario()
	s := open(t, repo)

	resp := roundTrip(t, s, session.Fetch(0))
	require.Equal(t, session.CommandUpdateGraph, resp.Command)

	repo.Fail(historytest.OpChangedFiles, historytest.ID(1), errBackend)

	resp = roundTrip(t, s, session.Fetch(2))
	assert.Equal(t, session.CommandError, resp.Command)
	assert.Equal(t, 2, resp.Index)
	assert.True(t, resp.Retryable)

	repo.Heal()

	resp = roundTrip(t, s, session.Request{Command: session.CommandNext})
	require.Equal(t, session.CommandUpdateGraph, resp.Command)
	assert.Equal(t, 1, resp.Index)
	assert.False(t, resp.Boundary)
}

func TestUnknownPathIsNotRetryable(t *testing.T) {
	t.Parallel()

	s := open(t, scenario())

	resp := roundTrip(t, s, session.Request{Command: session.CommandOrigin, Path: "nope.txt"})
	assert.Equal(t, session.CommandError, resp.Command)
	assert.False(t, resp.Retryable)
	assert.Equal(t, 0, resp.Index)
}

func TestCommitAndOriginNavigation(t *testing.T) {
	t.Parallel()

	s := open(t, scenario())

	resp := roundTrip(t, s, session.Request{Command: session.CommandCommit, ID: historytest.ID(2)})
	require.Equal(t, session.CommandUpdateGraph, resp.Command)
	assert.Equal(t, 2, resp.Index)

	resp = roundTrip(t, s, session.Request{Command: session.CommandOrigin, Path: "b.txt"})
	require.Equal(t, session.CommandUpdateGraph, resp.Command)
	assert.Equal(t, 2, resp.Index)
}

func TestSendRawRejectsInvalid(t *testing.T) {
	t.Parallel()

	s := open(t, scenario())

	err := s.SendRaw(context.Background(), []byte(`{"command":"jump"}`))
	require.ErrorIs(t, err, session.ErrInvalidMessage)

	require.NoError(t, s.SendRaw(context.Background(), []byte(`{"command":"fetch","index":1}`)))

	select {
	case resp := <-s.Responses():
		assert.Equal(t, 1, resp.Index)
	case <-time.After(waitFor):
		require.FailNow(t, "no response")
	}
}

func TestCloseDiscardsInFlight(t *testing.T) {
	t.Parallel()

	repo := scenario()
	started := make(chan struct{}, 1)

	repo.SetHook(func(ctx context.Context, op historytest.Op, _ string) error {
		if op != historytest.OpAllFilesAt {
			return nil
		}

		started <- struct{}{}
		<-ctx.Done()

		return ctx.Err()
	})

	s := open(t, repo)

	require.NoError(t, s.Send(context.Background(), session.Fetch(1)))

	select {
	case <-started:
	case <-time.After(waitFor):
		require.FailNow(t, "build never started")
	}

	s.Close()
	s.Close()

	_, ok := <-s.Responses()
	assert.False(t, ok, "in-flight result must be discarded")

	require.ErrorIs(t, s.Send(context.Background(), session.Fetch(0)), session.ErrClosed)
}

func TestParentContextEndsSession(t *testing.T) {
	t.Parallel()

	cur, err := factory(scenario())(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s := session.New(ctx, "ctx", cur, session.Options{})

	cancel()

	select {
	case <-s.Done():
	case <-time.After(waitFor):
		require.FailNow(t, "session did not stop")
	}
}

func TestManager(t *testing.T) {
	t.Parallel()

	repo := scenario()
	m := session.NewManager(factory(repo), session.Options{HotspotLimit: 1})
	ctx := context.Background()

	first, err := m.Open(ctx)
	require.NoError(t, err)

	second, err := m.Open(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, 2, m.Len())

	got, ok := m.Get(first.ID())
	require.True(t, ok)
	assert.Same(t, first, got)

	resp := roundTrip(t, first, session.Fetch(2))
	assert.Len(t, resp.Data.Hotspots, 1)

	resp = roundTrip(t, second, session.Request{Command: session.CommandNext})
	assert.Equal(t, 1, resp.Index, "sessions navigate independently")

	first.Close()
	assert.Eventually(t, func() bool { return m.Len() == 1 }, waitFor, 10*time.Millisecond)

	m.Close()
	assert.Eventually(t, func() bool { return m.Len() == 0 }, waitFor, 10*time.Millisecond)

	_, err = m.Open(ctx)
	require.ErrorIs(t, err, session.ErrClosed)
}

func TestManagerFactoryError(t *testing.T) {
	t.Parallel()

	m := session.NewManager(factory(historytest.New()), session.Options{})

	_, err := m.Open(context.Background())
	require.Error(t, err)
	assert.Zero(t, m.Len())
}
