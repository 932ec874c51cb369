package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists the audit trail to a local SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the server writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger().Info("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tool_calls (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			request_id  TEXT NOT NULL,
			tool        TEXT NOT NULL,
			code        TEXT NOT NULL,
			duration_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tool_calls_ts ON tool_calls(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_tool_calls_tool ON tool_calls(tool)`,

		`CREATE TABLE IF NOT EXISTS session_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			from_state TEXT,
			to_state   TEXT NOT NULL,
			reason     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_events_ts ON session_events(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordCall(ctx context.Context, call *ToolCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO tool_calls
		(timestamp, request_id, tool, code, duration_ms)
		VALUES (?,?,?,?,?)`,
		stamp(call.At), call.RequestID, call.Tool, call.Code, call.Duration.Milliseconds(),
	)
	return err
}

func (r *SQLiteRecorder) RecordSessionEvent(ctx context.Context, evt *SessionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO session_events
		(timestamp, from_state, to_state, reason)
		VALUES (?,?,?,?)`,
		stamp(evt.At), evt.From, evt.To, evt.Reason,
	)
	return err
}

// Stats summarizes calls per tool recorded at or after since.
func (r *SQLiteRecorder) Stats(ctx context.Context, since time.Time) ([]ToolStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tool, COUNT(*),
		SUM(CASE WHEN code = ? THEN 0 ELSE 1 END), AVG(duration_ms)
		FROM tool_calls WHERE timestamp >= ?
		GROUP BY tool ORDER BY tool`,
		CodeOK, stamp(since),
	)
	if err != nil {
		return nil, err
	}
	return scanStats(rows)
}

// Prune deletes rows older than before and reports how many went.
func (r *SQLiteRecorder) Prune(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := stamp(before)
	var total int64
	for _, table := range []string{"tool_calls", "session_events"} {
		res, err := r.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE timestamp < ?", cutoff)
		if err != nil {
			return total, fmt.Errorf("prune %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

func scanStats(rows *sql.Rows) ([]ToolStats, error) {
	defer rows.Close()
	var out []ToolStats
	for rows.Next() {
		var s ToolStats
		if err := rows.Scan(&s.Tool, &s.Calls, &s.Failures, &s.AvgMS); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func logger() *slog.Logger {
	return slog.Default().With("component", "recorder")
}
