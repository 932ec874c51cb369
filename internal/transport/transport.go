// Package transport exposes the dispatcher to clients: MCP over stdio for
// MCP hosts, and a small HTTP API.
package transport

import (
	"context"
	"log/slog"

	"RobinhoodMCP/internal/dispatch"
)

// Dispatcher is the tool surface both transports serve.
type Dispatcher interface {
	Tools() []dispatch.Tool
	Call(ctx context.Context, name string, args dispatch.Args) dispatch.Result
}

func logger() *slog.Logger {
	return slog.Default().With("component", "transport")
}
