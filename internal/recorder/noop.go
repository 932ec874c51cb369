package recorder

import (
	"context"
	"time"
)

// NoopRecorder is used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordCall(context.Context, *ToolCall) error             { return nil }
func (n *NoopRecorder) RecordSessionEvent(context.Context, *SessionEvent) error { return nil }
func (n *NoopRecorder) Stats(context.Context, time.Time) ([]ToolStats, error)   { return nil, nil }
func (n *NoopRecorder) Prune(context.Context, time.Time) (int64, error)         { return 0, nil }
func (n *NoopRecorder) Close() error                                            { return nil }
