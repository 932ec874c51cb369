package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/lib/pq"
)

var schemaName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresRecorder persists the audit trail to a shared Postgres database,
// inside its own schema.
type PostgresRecorder struct {
	db     *sql.DB
	schema string
}

// NewPostgresRecorder connects, creates schema if needed and migrates.
func NewPostgresRecorder(ctx context.Context, dsn, schema string) (*PostgresRecorder, error) {
	if schema == "" {
		schema = "robinhood_mcp"
	}
	if !schemaName.MatchString(schema) {
		return nil, fmt.Errorf("invalid schema name %q", schema)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	r := &PostgresRecorder{db: db, schema: schema}
	if err := r.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger().Info("postgres recorder opened", "schema", schema)
	return r, nil
}

func (r *PostgresRecorder) table(name string) string {
	return fmt.Sprintf(`"%s"."%s"`, r.schema, name)
}

func (r *PostgresRecorder) migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, r.schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id          BIGSERIAL PRIMARY KEY,
			timestamp   BIGINT NOT NULL,
			request_id  TEXT NOT NULL,
			tool        TEXT NOT NULL,
			code        TEXT NOT NULL,
			duration_ms BIGINT NOT NULL
		)`, r.table("tool_calls")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_tool_calls_ts ON %s(timestamp)`, r.table("tool_calls")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id         BIGSERIAL PRIMARY KEY,
			timestamp  BIGINT NOT NULL,
			from_state TEXT,
			to_state   TEXT NOT NULL,
			reason     TEXT
		)`, r.table("session_events")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_session_events_ts ON %s(timestamp)`, r.table("session_events")),
	}
	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *PostgresRecorder) RecordCall(ctx context.Context, call *ToolCall) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s
		(timestamp, request_id, tool, code, duration_ms)
		VALUES ($1,$2,$3,$4,$5)`, r.table("tool_calls")),
		stamp(call.At), call.RequestID, call.Tool, call.Code, call.Duration.Milliseconds(),
	)
	return err
}

func (r *PostgresRecorder) RecordSessionEvent(ctx context.Context, evt *SessionEvent) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s
		(timestamp, from_state, to_state, reason)
		VALUES ($1,$2,$3,$4)`, r.table("session_events")),
		stamp(evt.At), evt.From, evt.To, evt.Reason,
	)
	return err
}

func (r *PostgresRecorder) Stats(ctx context.Context, since time.Time) ([]ToolStats, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT tool, COUNT(*),
		SUM(CASE WHEN code = $1 THEN 0 ELSE 1 END), COALESCE(AVG(duration_ms), 0)::DOUBLE PRECISION
		FROM %s WHERE timestamp >= $2
		GROUP BY tool ORDER BY tool`, r.table("tool_calls")),
		CodeOK, stamp(since),
	)
	if err != nil {
		return nil, err
	}
	return scanStats(rows)
}

func (r *PostgresRecorder) Prune(ctx context.Context, before time.Time) (int64, error) {
	cutoff := stamp(before)
	var total int64
	for _, name := range []string{"tool_calls", "session_events"} {
		res, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE timestamp < $1`, r.table(name)), cutoff)
		if err != nil {
			return total, fmt.Errorf("prune %s: %w", name, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func (r *PostgresRecorder) Close() error {
	return r.db.Close()
}
