package upstream

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrChallenge means the login needs an out-of-band verification step.
	ErrChallenge = errors.New("verification challenge required")
	// ErrCredentials means the username or password was rejected.
	ErrCredentials = errors.New("credentials rejected")
	// ErrUnauthorized means a data call was refused for lack of a session.
	ErrUnauthorized = errors.New("not authenticated")
	// ErrUnknownMethod is returned by Call for unsupported methods.
	ErrUnknownMethod = errors.New("unknown method")
)

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int
	Path       string
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Path, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: status %d", e.Path, e.StatusCode)
}

// IsChallenge reports whether err is a verification challenge, either typed or
// reported only in the message.
func IsChallenge(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrChallenge) || strings.Contains(strings.ToLower(err.Error()), "challenge")
}
