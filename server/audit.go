package server

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// AuditEntry records one service call. Programs are identified by tree
// hash only; their contents are never stored.
type AuditEntry struct {
	RequestID   string
	Time        time.Time
	Procedure   string
	ProgramHash string
	EnvHash     string
	Cost        uint64
	Outcome     string
	Message     string
}

// AuditLog persists AuditEntries in a SQLite database.
type AuditLog struct {
	db *sql.DB
}

// OpenAuditLog opens (creating if needed) the audit database at path.
func OpenAuditLog(path string) (*AuditLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS evaluations (
		request_id   TEXT PRIMARY KEY,
		at           INTEGER NOT NULL,
		procedure    TEXT NOT NULL,
		program_hash TEXT NOT NULL,
		env_hash     TEXT NOT NULL,
		cost         INTEGER NOT NULL,
		outcome      TEXT NOT NULL,
		message      TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	return &AuditLog{db: db}, nil
}

// Record inserts e.
func (l *AuditLog) Record(ctx context.Context, e AuditEntry) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO evaluations (request_id, at, procedure, program_hash, env_hash, cost, outcome, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RequestID, e.Time.UnixNano(), e.Procedure, e.ProgramHash, e.EnvHash, int64(e.Cost), e.Outcome, e.Message)
	if err != nil {
		return fmt.Errorf("recording %s: %w", e.RequestID, err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (l *AuditLog) Recent(ctx context.Context, n int) ([]AuditEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT request_id, at, procedure, program_hash, env_hash, cost, outcome, message
		 FROM evaluations ORDER BY at DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var at, cost int64
		if err := rows.Scan(&e.RequestID, &at, &e.Procedure, &e.ProgramHash, &e.EnvHash, &cost, &e.Outcome, &e.Message); err != nil {
			return nil, fmt.Errorf("scanning audit row: %w", err)
		}
		e.Time = time.Unix(0, at)
		e.Cost = uint64(cost)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database connection.
func (l *AuditLog) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}
