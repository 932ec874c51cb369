package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"RobinhoodMCP/internal/dispatch"
	"RobinhoodMCP/internal/errs"
)

// Stdio serves the dispatcher's tools to MCP hosts over newline-delimited
// JSON-RPC. Framing, the initialize handshake, ping and tools/list are
// handled by mcp-go; every tools/call is delegated to the dispatcher.
type Stdio struct {
	d   Dispatcher
	srv *server.MCPServer
}

// NewStdio registers every dispatcher tool on an MCP server named name/version.
func NewStdio(d Dispatcher, name, version string) *Stdio {
	s := &Stdio{
		d:   d,
		srv: server.NewMCPServer(name, version, server.WithToolCapabilities(false)),
	}
	for _, t := range d.Tools() {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			logger().Error("tool schema not encodable", "tool", t.Name, "error", err)
			continue
		}
		s.srv.AddTool(mcp.NewToolWithRawSchema(t.Name, t.Description, schema), s.handler(t.Name))
	}
	return s
}

// Serve reads requests from in until EOF or ctx is done.
func (s *Stdio) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.srv)
	stdio.SetErrorLogger(slog.NewLogLogger(logger().Handler(), slog.LevelError))

	logger().Info("stdio transport ready")
	err := stdio.Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return err
	}
	logger().Info("stdio input closed")
	return nil
}

func (s *Stdio) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decodeArgs(req.Params.Arguments)
		if err != nil {
			return toolResult(dispatch.Result{Error: &dispatch.Failure{
				Code:    string(errs.KindInvalidArgument),
				Message: "arguments must be a JSON object",
			}}), nil
		}
		return toolResult(s.d.Call(ctx, name, args)), nil
	}
}

// decodeArgs re-reads the decoded arguments with UseNumber so numeric
// values reach the dispatcher as json.Number, as they do over HTTP.
func decodeArgs(raw any) (dispatch.Args, error) {
	if raw == nil {
		return nil, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var args dispatch.Args
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil {
		return nil, err
	}
	return args, nil
}

// toolResult wraps a dispatch result as MCP text content. Failures carry
// the {code,message} object with isError set.
func toolResult(res dispatch.Result) *mcp.CallToolResult {
	var body any = res.Data
	if !res.OK() {
		body = res.Error
	}
	text, err := json.Marshal(body)
	if err != nil {
		logger().Error("result not encodable", "request_id", res.RequestID, "error", err)
		text, _ = json.Marshal(&dispatch.Failure{Code: string(errs.KindInternal), Message: "result could not be encoded"})
		return mcp.NewToolResultError(string(text))
	}
	if !res.OK() {
		return mcp.NewToolResultError(string(text))
	}
	return mcp.NewToolResultText(string(text))
}
