package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"RobinhoodMCP/internal/config"
	"RobinhoodMCP/internal/dispatch"
	"RobinhoodMCP/internal/logging"
	"RobinhoodMCP/internal/notifier"
	"RobinhoodMCP/internal/recorder"
	"RobinhoodMCP/internal/scheduler"
	"RobinhoodMCP/internal/service"
	"RobinhoodMCP/internal/session"
	"RobinhoodMCP/internal/transport"
	"RobinhoodMCP/internal/upstream"
)

const serverName = "robinhood-mcp"

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the exit code so deferred closers flush before the process exits.
func run(args []string) int {
	cfg, err := config.FromArgs(serverName, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		slog.Error("load config", "error", err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config validation", "error", err)
		return 2
	}

	logCloser, err := logging.Init(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}, os.Stderr)
	if err != nil {
		slog.Error("init logging", "error", err)
		return 1
	}
	defer logCloser.Close()

	slog.Info("robinhood-mcp starting", "version", version, "config", cfg)

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var up upstream.Capability = upstream.NewRobinhood(upstream.Options{
		BaseURL:   cfg.Robinhood.BaseURL,
		CryptoURL: cfg.Robinhood.CryptoURL,
		Timeout:   cfg.HTTPTimeout(),
		Proxy:     cfg.Robinhood.Proxy,
	})
	mgr := session.NewManager(up, session.Config{
		Credentials: upstream.Credentials{Username: cfg.Robinhood.Username, Password: cfg.Robinhood.Password},
		CachePath:   cfg.Session.CachePath,
		AllowMFA:    cfg.Session.AllowMFA,
	})
	slog.Info("upstream configured", "upstream", up.Name(), "base_url", cfg.Robinhood.BaseURL)

	rec := openRecorder(ctx, cfg)
	defer rec.Close()

	var tn *notifier.TelegramNotifier
	var alerts scheduler.Notifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Robinhood.Proxy)
		alerts = tn
	}

	sched := scheduler.NewScheduler(ctx, mgr, alerts, rec, time.Duration(cfg.Database.RetentionDays)*24*time.Hour)
	mgr.OnTransition(sched.OnSessionTransition)
	if err := sched.RegisterAll(cfg.Session.KeepaliveCron, cfg.Database.PruneCron); err != nil {
		slog.Error("register cron tasks", "error", err)
		return 1
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil && cfg.Telegram.Polling {
		go tn.StartPolling(ctx, sched.HandleCommand)
	}

	if cfg.Session.EagerLogin {
		if err := mgr.EnsureSession(ctx, ""); err != nil {
			slog.Warn("eager login failed; tools will retry on demand", "error", err)
		}
	}

	d := dispatch.New(service.New(mgr, up), mgr, dispatch.Options{
		CallTimeout: cfg.CallTimeout(),
		Recorder:    rec,
	})

	switch cfg.Server.Transport {
	case "http":
		srv := transport.NewHTTP(d, mgr, cfg.Log.Level == "debug")
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("http shutdown", "error", err)
			}
		}()
		if err := srv.Start(cfg.Server.Addr); err != nil {
			slog.Error("http transport", "error", err)
			return 1
		}
	default:
		go func() {
			<-ctx.Done()
			os.Stdin.Close()
		}()
		if err := transport.NewStdio(d, serverName, version).Serve(ctx, os.Stdin, os.Stdout); err != nil {
			slog.Error("stdio transport", "error", err)
			return 1
		}
	}

	slog.Info("robinhood-mcp stopped")
	return 0
}

// openRecorder falls back to the noop recorder when the database is
// unavailable; auditing never blocks serving.
func openRecorder(ctx context.Context, cfg *config.Config) recorder.Recorder {
	switch cfg.Database.Driver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755); err != nil {
			slog.Warn("create sqlite dir failed, using noop recorder", "error", err)
			return recorder.NewNoopRecorder()
		}
		r, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			slog.Warn("init sqlite recorder failed, using noop", "error", err)
			return recorder.NewNoopRecorder()
		}
		return r
	case "postgres":
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		r, err := recorder.NewPostgresRecorder(pingCtx, cfg.Database.PostgresDSN, cfg.Database.PostgresSchema)
		if err != nil {
			slog.Warn("init postgres recorder failed, using noop", "error", err)
			return recorder.NewNoopRecorder()
		}
		return r
	default:
		return recorder.NewNoopRecorder()
	}
}
