package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RobinhoodMCP/internal/errs"
	"RobinhoodMCP/internal/model"
	"RobinhoodMCP/internal/recorder"
	"RobinhoodMCP/internal/service"
	"RobinhoodMCP/internal/session"
	"RobinhoodMCP/internal/upstream"
)

type memRecorder struct {
	recorder.NoopRecorder
	mu    sync.Mutex
	calls []recorder.ToolCall
}

func (m *memRecorder) RecordCall(_ context.Context, c *recorder.ToolCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, *c)
	return nil
}

var creds = upstream.Credentials{Username: "trader@example.com", Password: "hunter2"}

func setup(t *testing.T, c upstream.Credentials, responses map[string]any) (*Dispatcher, *upstream.Mock, *memRecorder) {
	t.Helper()
	mock := &upstream.Mock{Responses: responses}
	mgr := session.NewManager(mock, session.Config{Credentials: c})
	rec := &memRecorder{}
	d := New(service.New(mgr, mock), mgr, Options{CallTimeout: time.Second, Recorder: rec})
	return d, mock, rec
}

func TestTools_AllRegistered(t *testing.T) {
	d, _, _ := setup(t, creds, nil)
	tools := d.Tools()
	require.Len(t, tools, 12)

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
		assert.Equal(t, "object", tool.InputSchema["type"], tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
	}
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, ToolAuthStatus)
	assert.Contains(t, names, ToolOrderHistory)
}

func TestCall_UnknownTool(t *testing.T) {
	d, mock, rec := setup(t, creds, nil)

	res := d.Call(context.Background(), "robinhood.trade.buy", nil)
	require.False(t, res.OK())
	assert.Equal(t, "METHOD_NOT_FOUND", res.Error.Code)
	assert.NotEmpty(t, res.RequestID)
	assert.Zero(t, mock.Logins())

	require.Len(t, rec.calls, 1)
	assert.Equal(t, "METHOD_NOT_FOUND", rec.calls[0].Code)
	assert.Equal(t, res.RequestID, rec.calls[0].RequestID)
}

func TestCall_InvalidIntervalBeforeSession(t *testing.T) {
	d, mock, _ := setup(t, creds, nil)

	res := d.Call(context.Background(), ToolPriceHistory, Args{"symbol": "AAPL", "interval": "bogus"})
	require.False(t, res.OK())
	assert.Equal(t, "INVALID_ARGUMENT", res.Error.Code)
	assert.Zero(t, mock.Logins())
	assert.Zero(t, mock.Calls(""))
}

func TestCall_ArgumentTypes(t *testing.T) {
	d, _, _ := setup(t, creds, nil)

	for name, args := range map[string]Args{
		ToolCurrentPrice: {"symbols": "AAPL"},
		ToolNews:         {},
		ToolFundamentals: {"symbol": []any{"AAPL"}},
		ToolPositions:    {"symbols": []any{"AAPL", 3.0}},
	} {
		res := d.Call(context.Background(), name, args)
		require.False(t, res.OK(), name)
		assert.Equal(t, "INVALID_ARGUMENT", res.Error.Code, name)
	}
}

func TestCall_CurrentPrice(t *testing.T) {
	d, mock, rec := setup(t, creds, map[string]any{
		upstream.MethodQuotes: []any{
			map[string]any{"symbol": "AAPL", "last_trade_price": "110.00", "previous_close": "100.00", "updated_at": "2026-02-11T15:00:00Z"},
		},
	})

	res := d.Call(context.Background(), ToolQuote, Args{"symbols": []any{"aapl"}})
	require.True(t, res.OK(), "%v", res.Error)
	quotes, ok := res.Data.([]model.Quote)
	require.True(t, ok)
	require.Len(t, quotes, 1)
	assert.Equal(t, "AAPL", quotes[0].Symbol)
	require.NotNil(t, quotes[0].ChangePercent)
	assert.InDelta(t, 10.0, *quotes[0].ChangePercent, 1e-9)
	assert.Equal(t, 1, mock.Logins())
	assert.Equal(t, recorder.CodeOK, rec.calls[0].Code)
}

func TestCall_NoCredentials(t *testing.T) {
	d, mock, _ := setup(t, upstream.Credentials{}, nil)

	res := d.Call(context.Background(), ToolPortfolioSummary, nil)
	require.False(t, res.OK())
	assert.Equal(t, "AUTH_REQUIRED", res.Error.Code)
	assert.Zero(t, mock.Logins())
}

func TestCall_UpstreamFailureKinds(t *testing.T) {
	d, _, _ := setup(t, creds, map[string]any{
		upstream.MethodPortfolioProfile: map[string]any{"equity": "100"},
		upstream.MethodAccountProfile:   map[string]any{"cash": "nope"},
	})

	res := d.Call(context.Background(), ToolPortfolioSummary, nil)
	require.False(t, res.OK())
	assert.Equal(t, "ROBINHOOD_ERROR", res.Error.Code)
}

func TestAuthStatus(t *testing.T) {
	t.Run("no credentials", func(t *testing.T) {
		d, _, _ := setup(t, upstream.Credentials{}, nil)
		res := d.Call(context.Background(), ToolAuthStatus, nil)
		require.True(t, res.OK())
		status := res.Data.(model.AuthStatus)
		assert.False(t, status.Authenticated)
		assert.Equal(t, "unauthenticated", status.State)
		require.NotNil(t, status.Error)
	})

	t.Run("challenge", func(t *testing.T) {
		d, mock, _ := setup(t, creds, nil)
		mock.LoginFunc = func(upstream.Credentials, string) (*upstream.Token, error) {
			return nil, upstream.ErrChallenge
		}
		res := d.Call(context.Background(), ToolAuthStatus, Args{"mfa_code": "123456"})
		require.True(t, res.OK())
		status := res.Data.(model.AuthStatus)
		assert.False(t, status.Authenticated)
		assert.Equal(t, "challenge_blocked", status.State)
		require.NotNil(t, status.Error)
		assert.NotContains(t, *status.Error, "123456")
		assert.NotContains(t, *status.Error, "hunter2")
	})

	t.Run("authenticated", func(t *testing.T) {
		d, _, _ := setup(t, creds, nil)
		res := d.Call(context.Background(), ToolAuthStatus, nil)
		require.True(t, res.OK())
		status := res.Data.(model.AuthStatus)
		assert.True(t, status.Authenticated)
		assert.Equal(t, "authenticated", status.State)
		assert.Nil(t, status.Error)
	})
}

func TestCall_PanicRecovered(t *testing.T) {
	d, _, rec := setup(t, creds, nil)
	d.register(Tool{Name: "test.panic", run: func(context.Context, Args) (any, error) {
		panic("boom")
	}})

	res := d.Call(context.Background(), "test.panic", nil)
	require.False(t, res.OK())
	assert.Equal(t, "INTERNAL_ERROR", res.Error.Code)
	assert.Equal(t, "INTERNAL_ERROR", rec.calls[0].Code)
}

func TestCall_Timeout(t *testing.T) {
	d, _, _ := setup(t, creds, nil)
	d.timeout = 20 * time.Millisecond
	d.register(Tool{Name: "test.slow", run: func(ctx context.Context, _ Args) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}})

	res := d.Call(context.Background(), "test.slow", nil)
	require.False(t, res.OK())
	assert.Equal(t, "NETWORK_ERROR", res.Error.Code)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.Equal(t, errs.KindUpstream, errs.KindOf(classify(errs.Validation("quote: missing last_price"))))
	assert.Equal(t, errs.KindInternal, errs.KindOf(classify(errors.New("plain"))))
	assert.Equal(t, errs.KindAuthRequired, errs.KindOf(classify(errs.AuthRequired("login"))))
}
