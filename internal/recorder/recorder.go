package recorder

import (
	"context"
	"time"
)

// ToolCall is one audited tool invocation. Arguments are deliberately absent:
// they can carry MFA codes.
type ToolCall struct {
	RequestID string
	Tool      string
	Code      string // "OK" or an error kind
	Duration  time.Duration
	At        time.Time
}

// SessionEvent records a session state transition.
type SessionEvent struct {
	From   string
	To     string
	Reason string
	At     time.Time
}

// ToolStats aggregates calls of one tool.
type ToolStats struct {
	Tool     string
	Calls    int64
	Failures int64
	AvgMS    float64
}

// Recorder persists the audit trail.
type Recorder interface {
	RecordCall(ctx context.Context, call *ToolCall) error
	RecordSessionEvent(ctx context.Context, evt *SessionEvent) error
	Stats(ctx context.Context, since time.Time) ([]ToolStats, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// CodeOK marks a successful call.
const CodeOK = "OK"

func stamp(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().UnixMilli()
}
