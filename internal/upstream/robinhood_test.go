package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, mux *http.ServeMux) (*Robinhood, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	rh := NewRobinhood(Options{BaseURL: srv.URL, CryptoURL: srv.URL + "/nummus", DeviceToken: "device-1"})
	return rh, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLogin_Success(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token/", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "alice", r.PostForm.Get("username"))
		assert.Equal(t, "device-1", r.PostForm.Get("device_token"))
		assert.Equal(t, "123456", r.PostForm.Get("mfa_code"))
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "acc", "refresh_token": "ref", "token_type": "Bearer", "expires_in": 86400,
		})
	})
	mux.HandleFunc("/positions/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer acc", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"results": []any{}})
	})
	rh, _ := newTestServer(t, mux)

	tok, err := rh.Login(context.Background(), Credentials{Username: "alice", Password: "pw"}, "123456")
	require.NoError(t, err)
	assert.Equal(t, "acc", tok.AccessToken)
	assert.Equal(t, int64(86400), tok.ExpiresIn)
	assert.Equal(t, "device-1", tok.DeviceToken)
	assert.NoError(t, rh.Probe(context.Background()))
}

func TestLogin_Challenge(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{"verification_workflow": map[string]any{"id": "wf"}})
	})
	rh, _ := newTestServer(t, mux)

	_, err := rh.Login(context.Background(), Credentials{Username: "alice", Password: "pw"}, "")
	assert.ErrorIs(t, err, ErrChallenge)
	assert.True(t, IsChallenge(err))
}

func TestLogin_CredentialsRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Unable to log in with provided credentials."})
	})
	rh, _ := newTestServer(t, mux)

	_, err := rh.Login(context.Background(), Credentials{Username: "alice", Password: "hunter2"}, "")
	assert.ErrorIs(t, err, ErrCredentials)
	assert.NotContains(t, err.Error(), "hunter2")
}

func TestProbe_Unauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/positions/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid token."})
	})
	rh, _ := newTestServer(t, mux)

	assert.ErrorIs(t, rh.Probe(context.Background()), ErrUnauthorized, "no token installed")

	rh.Restore(&Token{AccessToken: "stale", TokenType: "Bearer"})
	assert.ErrorIs(t, rh.Probe(context.Background()), ErrUnauthorized)
}

func TestCall_FollowsPagination(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/positions/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "" {
			writeJSON(w, http.StatusOK, map[string]any{
				"results": []any{map[string]any{"quantity": "1"}},
				"next":    srvURL + "/positions/?cursor=2",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": []any{map[string]any{"quantity": "2"}}, "next": nil})
	})
	rh, srv := newTestServer(t, mux)
	srvURL = srv.URL
	rh.Restore(&Token{AccessToken: "acc"})

	got, err := rh.Call(context.Background(), MethodPositions, nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCall_QuotesKeepNumericStrings(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/quotes/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL,MSFT", r.URL.Query().Get("symbols"))
		fmt.Fprint(w, `{"results":[{"symbol":"AAPL","last_trade_price":"150.5000"},null]}`)
	})
	rh, _ := newTestServer(t, mux)
	rh.Restore(&Token{AccessToken: "acc"})

	got, err := rh.Call(context.Background(), MethodQuotes, Args{"symbols": []string{"AAPL", "MSFT"}})
	require.NoError(t, err)
	items := got.([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "150.5000", items[0].(map[string]any)["last_trade_price"])
	assert.Nil(t, items[1])
}

func TestCall_OptionContractsMergeMarketData(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/instruments/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"results": []any{map[string]any{"symbol": "AAPL", "tradable_chain_id": "chain-1"}}})
	})
	mux.HandleFunc("/options/instruments/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "chain-1", r.URL.Query().Get("chain_id"))
		assert.Equal(t, "2026-03-20", r.URL.Query().Get("expiration_dates"))
		writeJSON(w, http.StatusOK, map[string]any{"results": []any{
			map[string]any{"url": srvURL + "/options/instruments/o1/", "strike_price": "150.0000", "type": "call"},
		}})
	})
	mux.HandleFunc("/marketdata/options/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"results": []any{
			map[string]any{"instrument": srvURL + "/options/instruments/o1/", "bid_price": "1.10", "delta": "0.5"},
		}})
	})
	rh, srv := newTestServer(t, mux)
	srvURL = srv.URL
	rh.Restore(&Token{AccessToken: "acc"})

	got, err := rh.Call(context.Background(), MethodOptionContracts, Args{"symbol": "AAPL", "expiration_date": "2026-03-20"})
	require.NoError(t, err)
	items := got.([]any)
	require.Len(t, items, 1)
	merged := items[0].(map[string]any)
	assert.Equal(t, "1.10", merged["bid_price"])
	assert.Equal(t, "150.0000", merged["strike_price"])
}

func TestCall_ServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fundamentals/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, map[string]any{"detail": "upstream down"})
	})
	rh, _ := newTestServer(t, mux)
	rh.Restore(&Token{AccessToken: "acc"})

	_, err := rh.Call(context.Background(), MethodFundamentals, Args{"symbol": "AAPL"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestCall_UnknownMethod(t *testing.T) {
	rh := NewRobinhood(Options{})
	_, err := rh.Call(context.Background(), "bogus", nil)
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestCredentials_NeverRenderPassword(t *testing.T) {
	c := Credentials{Username: "alice", Password: "hunter2"}
	assert.NotContains(t, c.String(), "hunter2")
	assert.NotContains(t, fmt.Sprintf("%v %+v %#v", c, c, c), "hunter2")

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("login", "creds", c, "token", Token{AccessToken: "secret-token"})
	assert.NotContains(t, buf.String(), "hunter2")
	assert.NotContains(t, buf.String(), "secret-token")
	assert.True(t, strings.Contains(buf.String(), "alice"))
}

func TestIsChallenge_MessageOnly(t *testing.T) {
	assert.True(t, IsChallenge(errors.New("login failed: Challenge required")))
	assert.False(t, IsChallenge(errors.New("connection refused")))
	assert.False(t, IsChallenge(nil))
}

func TestCapability_Name(t *testing.T) {
	for want, c := range map[string]Capability{
		"robinhood": NewRobinhood(Options{}),
		"mock":      &Mock{},
	} {
		assert.Equal(t, want, c.Name())
	}
}
