// Package session owns the single upstream login. Every data call goes through
// EnsureSession, which authenticates lazily and at most once per need.
package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"RobinhoodMCP/internal/errs"
	"RobinhoodMCP/internal/upstream"
)

// State is the session lifecycle position.
type State string

const (
	StateUnauthenticated  State = "unauthenticated"
	StateAuthenticated    State = "authenticated"
	StateChallengeBlocked State = "challenge_blocked"
)

// Config is fixed at startup.
type Config struct {
	Credentials upstream.Credentials
	CachePath   string
	AllowMFA    bool
}

// Snapshot is a read-only view for status reporting.
type Snapshot struct {
	State           State
	Authenticated   bool
	CacheConfigured bool
	MFAAllowed      bool
	Since           time.Time
	LastError       string
}

// Listener is told about every state change. It runs with the manager locked
// and must not call back into it.
type Listener func(from, to State, reason string)

// Manager serializes all authentication work behind one mutex.
type Manager struct {
	mu        sync.Mutex
	auth      upstream.Authenticator
	cfg       Config
	state     State
	since     time.Time
	blockedAt time.Time
	lastErr   string
	listeners []Listener
	now       func() time.Time
}

// NewManager creates an unauthenticated manager. No network traffic happens
// until the first EnsureSession.
func NewManager(auth upstream.Authenticator, cfg Config) *Manager {
	return &Manager{
		auth:  auth,
		cfg:   cfg,
		state: StateUnauthenticated,
		since: time.Now(),
		now:   time.Now,
	}
}

// OnTransition registers l.
func (m *Manager) OnTransition(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// EnsureSession returns nil once an upstream session is live. mfaCode is only
// used when MFA fallback is enabled and a verification challenge is pending.
func (m *Manager) EnsureSession(ctx context.Context, mfaCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateAuthenticated {
		err := m.auth.Probe(ctx)
		if err == nil {
			return nil
		}
		logger().Info("session probe failed, re-authenticating", "error", err)
		m.transition(StateUnauthenticated, "probe failed")
	}

	if m.state == StateChallengeBlocked {
		withCode := m.cfg.AllowMFA && mfaCode != ""
		if cacheModTime(m.cfg.CachePath).After(m.blockedAt) {
			if m.restoreFromCache(ctx) {
				return nil
			}
			// only a newer cache earns another probe
			m.blockedAt = m.now()
		}
		if !withCode {
			return m.blockedError()
		}
		return m.login(ctx, mfaCode)
	}

	if m.restoreFromCache(ctx) {
		return nil
	}
	if !m.cfg.Credentials.Complete() {
		return errs.AuthRequired("not logged in to Robinhood and no credentials are configured; set RH_USERNAME and RH_PASSWORD")
	}
	return m.login(ctx, mfaCode)
}

// restoreFromCache installs a cached token and keeps it only if a probe
// accepts it. All failures are swallowed.
func (m *Manager) restoreFromCache(ctx context.Context) bool {
	if m.cfg.CachePath == "" {
		return false
	}
	tok, err := LoadCache(m.cfg.CachePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger().Debug("session cache unusable", "error", err)
		}
		return false
	}
	m.auth.Restore(tok)
	if err := m.auth.Probe(ctx); err != nil {
		logger().Debug("cached session rejected", "error", err)
		return false
	}
	m.transition(StateAuthenticated, "restored from cache")
	return true
}

func (m *Manager) login(ctx context.Context, mfaCode string) error {
	creds := m.cfg.Credentials
	first := ""
	if m.state == StateChallengeBlocked && m.cfg.AllowMFA {
		first = mfaCode
	}

	tok, err := m.auth.Login(ctx, creds, first)
	if err != nil && first == "" && upstream.IsChallenge(err) && m.cfg.AllowMFA && mfaCode != "" {
		logger().Info("verification challenge, retrying login with mfa code")
		tok, err = m.auth.Login(ctx, creds, mfaCode)
	}
	if err != nil {
		return m.loginFailed(err)
	}

	if m.cfg.CachePath != "" {
		if err := SaveCache(m.cfg.CachePath, tok); err != nil {
			logger().Warn("session cache not written", "path", m.cfg.CachePath, "error", err)
		}
	}
	m.lastErr = ""
	m.transition(StateAuthenticated, "login")
	return nil
}

func (m *Manager) loginFailed(err error) error {
	m.lastErr = err.Error()
	switch {
	case upstream.IsChallenge(err):
		m.blockedAt = m.now()
		m.transition(StateChallengeBlocked, "verification challenge")
		return m.blockedError()
	case errors.Is(err, upstream.ErrCredentials):
		m.transition(StateUnauthenticated, "credentials rejected")
		return errs.Wrap(errs.KindAuthRequired, err, "Robinhood rejected the login")
	default:
		m.transition(StateUnauthenticated, "login failed")
		return errs.Network(err, "Robinhood login failed")
	}
}

func (m *Manager) blockedError() error {
	if m.cfg.AllowMFA {
		return errs.AuthRequired("Robinhood requires verification; retry with the code as mfa_code")
	}
	return errs.AuthRequired("Robinhood requires a verification challenge; approve it in the Robinhood app, refresh the session cache and retry")
}

// Logout drops the session, the cache file and the upstream token. It never
// fails; problems are logged.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.CachePath != "" {
		if err := os.Remove(m.cfg.CachePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger().Warn("session cache not removed", "path", m.cfg.CachePath, "error", err)
		}
	}
	if err := m.auth.Logout(ctx); err != nil {
		logger().Warn("upstream logout failed", "error", err)
	}
	m.lastErr = ""
	m.blockedAt = time.Time{}
	m.transition(StateUnauthenticated, "logout")
}

// Keepalive probes an authenticated session and demotes it when the probe
// fails. It never logs in.
func (m *Manager) Keepalive(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAuthenticated {
		return nil
	}
	if err := m.auth.Probe(ctx); err != nil {
		m.lastErr = err.Error()
		m.transition(StateUnauthenticated, "keepalive probe failed")
		return err
	}
	return nil
}

// Status returns the current snapshot without any network traffic.
func (m *Manager) Status() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:           m.state,
		Authenticated:   m.state == StateAuthenticated,
		CacheConfigured: m.cfg.CachePath != "",
		MFAAllowed:      m.cfg.AllowMFA,
		Since:           m.since,
		LastError:       m.lastErr,
	}
}

func (m *Manager) transition(to State, reason string) {
	from := m.state
	if from == to {
		return
	}
	m.state = to
	m.since = m.now()
	logger().Info("session state changed", "from", from, "to", to, "reason", reason)
	for _, l := range m.listeners {
		l(from, to, reason)
	}
}

func logger() *slog.Logger {
	return slog.Default().With("component", "session")
}
