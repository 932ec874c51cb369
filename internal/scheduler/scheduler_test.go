package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RobinhoodMCP/internal/recorder"
	"RobinhoodMCP/internal/session"
	"RobinhoodMCP/internal/upstream"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeNotifier) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func setup(t *testing.T, allowMFA bool) (*Scheduler, *session.Manager, *upstream.Mock, *fakeNotifier, *recorder.SQLiteRecorder) {
	t.Helper()
	mock := &upstream.Mock{}
	mgr := session.NewManager(mock, session.Config{
		Credentials: upstream.Credentials{Username: "u", Password: "p"},
		AllowMFA:    allowMFA,
	})
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	n := &fakeNotifier{}
	s := NewScheduler(context.Background(), mgr, n, rec, 24*time.Hour)
	mgr.OnTransition(s.OnSessionTransition)
	return s, mgr, mock, n, rec
}

func TestRegisterAll(t *testing.T) {
	s, _, _, _, _ := setup(t, false)
	require.NoError(t, s.RegisterAll("0 */15 * * * *", "0 0 3 * * *"))
	assert.Len(t, s.Cron.Entries(), 2)

	s2, _, _, _, _ := setup(t, false)
	assert.Error(t, s2.RegisterAll("not a cron", ""))
}

func TestKeepaliveDemotesAndAlerts(t *testing.T) {
	s, mgr, mock, n, rec := setup(t, false)
	require.NoError(t, mgr.EnsureSession(context.Background(), ""))

	mock.ProbeErr = upstream.ErrUnauthorized
	s.keepaliveTask()
	s.pending.Wait()

	assert.Equal(t, session.StateUnauthenticated, mgr.Status().State)
	msgs := n.messages()
	require.Len(t, msgs, 1, "login itself does not alert")
	assert.Contains(t, msgs[0], "session lost")

	stats, err := rec.Stats(context.Background(), time.Unix(0, 0))
	require.NoError(t, err)
	assert.Empty(t, stats, "session events are not tool calls")
}

func TestKeepaliveSkipsWhenUnauthenticated(t *testing.T) {
	s, _, mock, n, _ := setup(t, false)
	s.keepaliveTask()
	s.pending.Wait()
	assert.Zero(t, mock.Probes())
	assert.Zero(t, mock.Logins())
	assert.Empty(t, n.messages())
}

func TestChallengeAlertAndMFACommand(t *testing.T) {
	s, mgr, mock, n, _ := setup(t, true)
	mock.LoginFunc = func(_ upstream.Credentials, code string) (*upstream.Token, error) {
		if code == "654321" {
			return &upstream.Token{AccessToken: "a"}, nil
		}
		return nil, upstream.ErrChallenge
	}

	err := mgr.EnsureSession(context.Background(), "")
	require.Error(t, err)
	s.pending.Wait()
	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "/mfa")

	reply := s.HandleCommand("/mfa 654321")
	assert.Contains(t, reply, "live")
	assert.NotContains(t, reply, "654321")
	assert.True(t, mgr.Status().Authenticated)

	assert.Equal(t, "Usage: /mfa <code>", s.HandleCommand("/mfa"))
}

func TestHandleCommand(t *testing.T) {
	s, mgr, mock, _, rec := setup(t, false)
	ctx := context.Background()
	require.NoError(t, rec.RecordCall(ctx, &recorder.ToolCall{RequestID: "1", Tool: "robinhood.news.latest", Code: recorder.CodeOK}))

	assert.Contains(t, s.HandleCommand("/status"), "news.latest: 1 calls")
	assert.Contains(t, s.HandleCommand("/login"), "live")
	assert.True(t, mgr.Status().Authenticated)

	assert.Contains(t, s.HandleCommand("/logout"), "Logged out")
	assert.Equal(t, 1, mock.Logouts())
	assert.False(t, mgr.Status().Authenticated)

	assert.Contains(t, s.HandleCommand("/weekly"), "/status")
	assert.Contains(t, s.HandleCommand("   "), "/status")
}

func TestLoginFailureReply(t *testing.T) {
	s, _, mock, _, _ := setup(t, false)
	mock.LoginFunc = func(upstream.Credentials, string) (*upstream.Token, error) {
		return nil, errors.New("dial tcp: connection refused")
	}
	assert.Contains(t, s.HandleCommand("/login"), "❌")
}

func TestPruneTask(t *testing.T) {
	s, _, _, _, rec := setup(t, false)
	ctx := context.Background()
	require.NoError(t, rec.RecordCall(ctx, &recorder.ToolCall{RequestID: "old", Tool: "t", Code: recorder.CodeOK, At: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, rec.RecordCall(ctx, &recorder.ToolCall{RequestID: "new", Tool: "t", Code: recorder.CodeOK}))

	s.pruneTask()

	stats, err := rec.Stats(ctx, time.Unix(0, 0))
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.EqualValues(t, 1, stats[0].Calls)
}
