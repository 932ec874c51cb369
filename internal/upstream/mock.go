package upstream

import (
	"context"
	"fmt"
	"sync"
)

// Mock is an in-memory Capability for development and tests. Responses and
// errors are keyed by method; Handler, when set, takes precedence.
type Mock struct {
	// LoginFunc decides each login attempt; nil means success.
	LoginFunc func(creds Credentials, mfaCode string) (*Token, error)
	ProbeErr  error
	LogoutErr error

	Responses map[string]any
	Errors    map[string]error
	Handler   func(method string, args Args) (any, error)

	mu       sync.Mutex
	token    *Token
	logins   int
	probes   int
	logouts  int
	restores int
	calls    map[string]int
	lastArgs map[string]Args
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Login(_ context.Context, creds Credentials, mfaCode string) (*Token, error) {
	m.mu.Lock()
	m.logins++
	fn := m.LoginFunc
	m.mu.Unlock()

	tok := &Token{AccessToken: "mock-access", RefreshToken: "mock-refresh", TokenType: "Bearer", ExpiresIn: 86400, DeviceToken: "mock-device"}
	if fn != nil {
		var err error
		if tok, err = fn(creds, mfaCode); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	m.token = tok
	m.mu.Unlock()
	return tok, nil
}

func (m *Mock) Restore(tok *Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restores++
	m.token = tok
}

func (m *Mock) Probe(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes++
	return m.ProbeErr
}

func (m *Mock) Logout(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logouts++
	m.token = nil
	return m.LogoutErr
}

func (m *Mock) Call(_ context.Context, method string, args Args) (any, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
		m.lastArgs = make(map[string]Args)
	}
	m.calls[method]++
	m.lastArgs[method] = args
	handler := m.Handler
	m.mu.Unlock()

	if handler != nil {
		return handler(method, args)
	}
	if err, ok := m.Errors[method]; ok {
		return nil, err
	}
	if resp, ok := m.Responses[method]; ok {
		return resp, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
}

// Token returns the currently installed token.
func (m *Mock) Token() *Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *Mock) Logins() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logins
}

func (m *Mock) Probes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.probes
}

func (m *Mock) Logouts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logouts
}

func (m *Mock) Restores() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restores
}

// Calls returns how often method was called, or the total when method is "".
func (m *Mock) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if method != "" {
		return m.calls[method]
	}
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// LastArgs returns the arguments of the most recent call to method.
func (m *Mock) LastArgs(method string) Args {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastArgs[method]
}

var _ Capability = (*Mock)(nil)
