// Package scheduler runs the background jobs (session keepalive and audit
// pruning) and answers operator commands.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"RobinhoodMCP/internal/notifier"
	"RobinhoodMCP/internal/recorder"
	"RobinhoodMCP/internal/session"
)

// Session is the session manager surface the jobs and commands use.
type Session interface {
	EnsureSession(ctx context.Context, mfaCode string) error
	Keepalive(ctx context.Context) error
	Logout(ctx context.Context)
	Status() session.Snapshot
}

// Notifier delivers operator alerts.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Session   Session
	Notifier  Notifier // nil disables alerts
	Recorder  recorder.Recorder
	Retention time.Duration
	Ctx       context.Context

	pending sync.WaitGroup
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, sess Session, n Notifier, rec recorder.Recorder, retention time.Duration) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Session:   sess,
		Notifier:  n,
		Recorder:  rec,
		Retention: retention,
		Ctx:       ctx,
	}
}

// RegisterAll registers the keepalive and prune tasks. An empty cron expression skips
// the task.
func (s *Scheduler) RegisterAll(keepaliveCron, pruneCron string) error {
	if keepaliveCron != "" {
		if _, err := s.Cron.AddFunc(keepaliveCron, s.keepaliveTask); err != nil {
			return fmt.Errorf("register keepalive task: %w", err)
		}
	}
	if pruneCron != "" && s.Retention > 0 {
		if _, err := s.Cron.AddFunc(pruneCron, s.pruneTask); err != nil {
			return fmt.Errorf("register prune task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger().Info("scheduler started", "jobs", len(s.Cron.Entries()))
}

// Stop waits for running jobs and queued alerts.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.pending.Wait()
	logger().Info("scheduler stopped")
}

func (s *Scheduler) keepaliveTask() {
	ctx, cancel := context.WithTimeout(s.Ctx, time.Minute)
	defer cancel()
	if err := s.Session.Keepalive(ctx); err != nil {
		logger().Warn("keepalive probe failed", "error", err)
		return
	}
	logger().Debug("keepalive ok", "state", s.Session.Status().State)
}

func (s *Scheduler) pruneTask() {
	ctx, cancel := context.WithTimeout(s.Ctx, 5*time.Minute)
	defer cancel()
	cutoff := time.Now().Add(-s.Retention)
	n, err := s.Recorder.Prune(ctx, cutoff)
	if err != nil {
		logger().Error("audit prune failed", "error", err)
		return
	}
	logger().Info("audit pruned", "rows", n, "before", cutoff.UTC().Format(time.RFC3339))
}

// OnSessionTransition is a session.Listener. It runs under the session lock,
// so the audit write and any alert happen on their own goroutine.
func (s *Scheduler) OnSessionTransition(from, to session.State, reason string) {
	at := time.Now()
	alert := to == session.StateChallengeBlocked ||
		(from == session.StateAuthenticated && to == session.StateUnauthenticated && reason != "logout")

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.Recorder.RecordSessionEvent(s.Ctx, &recorder.SessionEvent{
			From: string(from), To: string(to), Reason: reason, At: at,
		}); err != nil {
			logger().Error("record session event", "error", err)
		}
		if alert {
			s.trySend(notifier.FormatSessionAlert(from, to, reason, s.Session.Status().MFAAllowed))
		}
	}()
}

// HandleCommand processes an operator command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return help
	}
	ctx, cancel := context.WithTimeout(s.Ctx, time.Minute)
	defer cancel()

	switch fields[0] {
	case "/status":
		stats, err := s.Recorder.Stats(ctx, time.Now().Add(-24*time.Hour))
		if err != nil {
			logger().Warn("load call stats", "error", err)
		}
		return notifier.FormatStatus(s.Session.Status(), stats)
	case "/login":
		return s.ensure(ctx, "")
	case "/mfa":
		if len(fields) != 2 {
			return "Usage: /mfa <code>"
		}
		return s.ensure(ctx, fields[1])
	case "/logout":
		s.Session.Logout(ctx)
		return "Logged out. The session cache was removed."
	default:
		return help
	}
}

const help = "Commands:\n• /status\n• /login\n• /mfa <code>\n• /logout"

func (s *Scheduler) ensure(ctx context.Context, code string) string {
	if err := s.Session.EnsureSession(ctx, code); err != nil {
		return "❌ " + err.Error()
	}
	return "✅ Robinhood session is live."
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		logger().Error("send notification", "error", err)
	}
}

func logger() *slog.Logger {
	return slog.Default().With("component", "scheduler")
}
