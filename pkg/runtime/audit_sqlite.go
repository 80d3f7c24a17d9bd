package runtime

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jllopis/skillrt/pkg/errors"
)

// SQLiteAuditStore persists run audit events in SQLite.
type SQLiteAuditStore struct {
	db *sql.DB
}

// OpenSQLiteAuditStore opens dsn with the modernc driver and prepares the schema.
func OpenSQLiteAuditStore(dsn string) (*SQLiteAuditStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	store, err := NewSQLiteAuditStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteAuditStore creates a SQLite-backed audit store and ensures schema.
func NewSQLiteAuditStore(db *sql.DB) (*SQLiteAuditStore, error) {
	if db == nil {
		return nil, errors.New(errors.CodePrecondition, "db is nil", nil)
	}
	if err := ensureSkillRunSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteAuditStore{db: db}, nil
}

// Close releases the underlying database.
func (s *SQLiteAuditStore) Close() error {
	return s.db.Close()
}

// Record stores a single audit event.
func (s *SQLiteAuditStore) Record(ctx context.Context, event AuditEvent) error {
	output, err := encodeAuditOutput(event.Output)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO skill_runs (
			run_id, skill_id, user_id, status, code, error_text, duration_ms, output_json, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.RunID,
		event.SkillID,
		event.UserID,
		event.Status,
		string(event.Code),
		event.Error,
		event.DurationMs,
		string(output),
		normalizeAuditTime(event.StartedAt),
		normalizeAuditTime(event.FinishedAt),
	)
	return err
}

// List returns audit events matching the filter.
func (s *SQLiteAuditStore) List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.SkillID != "" {
		addFilter("skill_id = ?", filter.SkillID)
	}
	if filter.UserID != "" {
		addFilter("user_id = ?", filter.UserID)
	}
	if filter.RunID != "" {
		addFilter("run_id = ?", filter.RunID)
	}
	if filter.Status != "" {
		addFilter("status = ?", filter.Status)
	}

	inner := `
		SELECT id, run_id, skill_id, user_id, status, code, error_text, duration_ms, output_json, started_at, finished_at
		FROM skill_runs` + where + " ORDER BY id DESC"
	if filter.Limit > 0 {
		inner += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	query := "SELECT run_id, skill_id, user_id, status, code, error_text, duration_ms, output_json, started_at, finished_at FROM (" +
		inner + ") ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var (
			event      AuditEvent
			code       string
			outputJSON sql.NullString
			started    sql.NullTime
			finished   sql.NullTime
		)
		if err := rows.Scan(
			&event.RunID,
			&event.SkillID,
			&event.UserID,
			&event.Status,
			&code,
			&event.Error,
			&event.DurationMs,
			&outputJSON,
			&started,
			&finished,
		); err != nil {
			return nil, err
		}
		event.Code = errors.ErrorCode(code)
		if outputJSON.Valid && outputJSON.String != "" {
			if out, err := decodeAuditOutput([]byte(outputJSON.String)); err == nil {
				event.Output = out
			}
		}
		if started.Valid {
			event.StartedAt = started.Time
		}
		if finished.Valid {
			event.FinishedAt = finished.Time
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Prune deletes events that finished before the cutoff.
func (s *SQLiteAuditStore) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM skill_runs WHERE finished_at < ?`, normalizeAuditTime(before))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func ensureSkillRunSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS skill_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			skill_id TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			code TEXT NOT NULL DEFAULT '',
			error_text TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			output_json TEXT,
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_skill_runs_skill ON skill_runs(skill_id);
		CREATE INDEX IF NOT EXISTS idx_skill_runs_run ON skill_runs(run_id);
		CREATE INDEX IF NOT EXISTS idx_skill_runs_finished ON skill_runs(finished_at);
	`)
	return err
}
