// Package auditdb mirrors audit log lines into SQLite so that several runs
// can be kept side by side and queried. Only the log is stored; table
// contents are never persisted.
package auditdb

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Line is one stored audit line.
type Line struct {
	Seq    int64
	Micros int64
	Text   string
}

// DB appends the lines of one run, identified by runID. It implements
// audit.Mirror.
type DB struct {
	db    *sql.DB
	runID string

	mu  sync.Mutex
	seq int64
}

// Open creates or opens the database at path.
func Open(path, runID string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has a single writer; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	// resume numbering if the run id is reused
	var last sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(seq) FROM audit_lines WHERE run_id = ?`, runID).Scan(&last); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read last seq: %w", err)
	}

	return &DB{db: db, runID: runID, seq: last.Int64}, nil
}

// Append stores line as the next line of the run.
func (d *DB) Append(micros int64, line string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	next := d.seq + 1
	_, err := d.db.Exec(
		`INSERT INTO audit_lines (run_id, seq, micros, line) VALUES (?, ?, ?, ?)`,
		d.runID, next, micros, line,
	)
	if err != nil {
		return fmt.Errorf("append audit line: %w", err)
	}
	d.seq = next
	return nil
}

// Lines returns the lines of runID in append order.
func (d *DB) Lines(ctx context.Context, runID string) ([]Line, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT seq, micros, line FROM audit_lines WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query lines: %w", err)
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.Seq, &l.Micros, &l.Text); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Runs lists every run id in the database, oldest first line first.
func (d *DB) Runs(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT run_id FROM audit_lines GROUP BY run_id ORDER BY MIN(micros), run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}
