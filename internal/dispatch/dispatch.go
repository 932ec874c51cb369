// Package dispatch is the single translation point between tool calls and the
// domain services: it validates arguments, runs the service under a timeout
// and turns every failure into a {code, message} body.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"RobinhoodMCP/internal/errs"
	"RobinhoodMCP/internal/recorder"
	"RobinhoodMCP/internal/service"
	"RobinhoodMCP/internal/session"
)

// Sessions is what auth.status needs from the session manager.
type Sessions interface {
	EnsureSession(ctx context.Context, mfaCode string) error
	Status() session.Snapshot
}

// Failure is the wire form of an error.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (f *Failure) Error() string { return f.Code + ": " + f.Message }

// Result is the outcome of one call. Exactly one of Data and Error is set.
type Result struct {
	RequestID string   `json:"request_id"`
	Data      any      `json:"data"`
	Error     *Failure `json:"error,omitempty"`
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Error == nil }

// Options tunes a Dispatcher.
type Options struct {
	CallTimeout time.Duration
	Recorder    recorder.Recorder
}

// Dispatcher routes tool calls. It holds no per-request state.
type Dispatcher struct {
	tools   map[string]Tool
	sess    Sessions
	rec     recorder.Recorder
	timeout time.Duration
}

// New registers every tool over svc.
func New(svc *service.Services, sess Sessions, opts Options) *Dispatcher {
	d := &Dispatcher{
		tools:   make(map[string]Tool),
		sess:    sess,
		rec:     opts.Recorder,
		timeout: opts.CallTimeout,
	}
	if d.rec == nil {
		d.rec = recorder.NewNoopRecorder()
	}
	if d.timeout <= 0 {
		d.timeout = 60 * time.Second
	}
	d.registerTools(svc)
	return d
}

func (d *Dispatcher) register(t Tool) {
	d.tools[t.Name] = t
}

// Tools lists the registered tools by name.
func (d *Dispatcher) Tools() []Tool {
	out := make([]Tool, 0, len(d.tools))
	for _, t := range d.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call runs the named tool. It never panics and never returns a bare error:
// failures are carried in Result.Error.
func (d *Dispatcher) Call(ctx context.Context, name string, args Args) Result {
	id := uuid.NewString()
	start := time.Now()
	log := logger().With("request_id", id, "tool", name)

	data, err := d.run(ctx, name, args)
	elapsed := time.Since(start)

	res := Result{RequestID: id}
	code := recorder.CodeOK
	if err != nil {
		res.Error = &Failure{Code: string(errs.KindOf(err)), Message: err.Error()}
		code = res.Error.Code
		log.Warn("tool failed", "code", code, "error", res.Error.Message, "duration", elapsed)
	} else {
		res.Data = data
		log.Debug("tool ok", "duration", elapsed)
	}

	// The caller's context may already be gone; the audit row should not be.
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.rec.RecordCall(auditCtx, &recorder.ToolCall{
		RequestID: id,
		Tool:      name,
		Code:      code,
		Duration:  elapsed,
		At:        start,
	}); err != nil {
		log.Warn("audit record failed", "error", err)
	}
	return res
}

func (d *Dispatcher) run(ctx context.Context, name string, args Args) (data any, err error) {
	tool, ok := d.tools[name]
	if !ok {
		return nil, errs.MethodNotFound("unknown tool: %s", name)
	}
	if args == nil {
		args = Args{}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger().Error("tool panicked", "tool", name, "panic", r)
			data, err = nil, errs.New(errs.KindInternal, "internal error in %s", name)
		}
	}()

	data, err = tool.run(ctx, args)
	return data, classify(err)
}

// classify folds kinds that must not reach the caller into the public set.
func classify(err error) error {
	switch errs.KindOf(err) {
	case "":
		return nil
	case errs.KindValidation:
		return errs.Upstream(err, "unexpected upstream data")
	case errs.KindInternal:
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return errs.Network(err, "call did not complete")
		}
	}
	return err
}

func logger() *slog.Logger {
	return slog.Default().With("component", "dispatch")
}
