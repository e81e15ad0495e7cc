// Package db records run events in an embedded SQLite database under the
// jobs directory. The log is an audit trail for the stats command; the
// engine never reads it on the hot path and treats failures to record as
// non-fatal.
package db

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// FileName is the event database inside the jobs directory. The leading
// underscore keeps it out of job discovery.
const FileName = "_events.db"

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates the event database for a jobs directory.
func Open(jobsDir string) (*DB, error) {
	path := filepath.Join(jobsDir, FileName)
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open event db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping event db: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}

	d := &DB{conn: conn, path: path}
	if err := d.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the connection.
func (d *DB) Close() error { return d.conn.Close() }

// Conn exposes the underlying connection for analytics queries.
func (d *DB) Conn() *sql.DB { return d.conn }

const schema = `
CREATE TABLE IF NOT EXISTS job_events (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id   TEXT NOT NULL,
    job_id   TEXT NOT NULL,
    event    TEXT NOT NULL,
    status   TEXT,
    detail   TEXT,
    ts       TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_job_events_job ON job_events(job_id, ts DESC);
CREATE INDEX IF NOT EXISTS idx_job_events_run ON job_events(run_id);

CREATE TABLE IF NOT EXISTS llm_calls (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id       TEXT NOT NULL,
    job_id       TEXT NOT NULL,
    phase        TEXT NOT NULL,
    duration_ms  INTEGER NOT NULL,
    prompt_chars INTEGER NOT NULL,
    reply_chars  INTEGER NOT NULL,
    ok           BOOLEAN NOT NULL,
    ts           TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_llm_calls_job ON llm_calls(job_id, phase);

CREATE TABLE IF NOT EXISTS build_runs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT NOT NULL,
    command     TEXT NOT NULL,
    exit_code   INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    ts          TEXT NOT NULL DEFAULT (datetime('now'))
);
`

func (d *DB) migrate() error {
	if _, err := d.conn.Exec(schema); err != nil {
		return fmt.Errorf("apply event db schema: %w", err)
	}
	return nil
}

// RecordJobEvent stores one lifecycle event for a job.
func (d *DB) RecordJobEvent(runID, jobID, event, status, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO job_events (run_id, job_id, event, status, detail) VALUES (?, ?, ?, ?, ?)`,
		runID, jobID, event, status, detail)
	return err
}

// RecordLLMCall stores timing and size stats for one generation call.
func (d *DB) RecordLLMCall(runID, jobID, phase string, duration time.Duration,
	promptChars, replyChars int, ok bool) error {
	_, err := d.conn.Exec(
		`INSERT INTO llm_calls (run_id, job_id, phase, duration_ms, prompt_chars, reply_chars, ok)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, jobID, phase, duration.Milliseconds(), promptChars, replyChars, ok)
	return err
}

// RecordBuildRun stores one build/test verification invocation.
func (d *DB) RecordBuildRun(runID, command string, exitCode int, duration time.Duration) error {
	_, err := d.conn.Exec(
		`INSERT INTO build_runs (run_id, command, exit_code, duration_ms) VALUES (?, ?, ?, ?)`,
		runID, command, exitCode, duration.Milliseconds())
	return err
}
