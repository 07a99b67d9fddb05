// Package catalog is a small local record of past capture sessions,
// recorded at startup and teardown so `wtcap sessions` has something
// to list without scanning the filesystem. It is advisory only — the
// capture path itself never reads from it, and a missing or stale row
// is expected and tolerated. Grounded on the teacher's internal/store
// (database/sql over modernc.org/sqlite).
package catalog

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Session is one row of the catalog.
type Session struct {
	Prefix          string
	PID             int
	StartedAtUnixNs int64
	EndedAtUnixNs   sql.NullInt64
	ExitCode        sql.NullInt64
	BuildGitSHA     string
}

// Store wraps the catalog database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the catalog database at dsn and
// ensures its schema exists.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: set WAL mode: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		prefix             TEXT PRIMARY KEY,
		pid                INTEGER NOT NULL,
		started_at_unix_ns INTEGER NOT NULL,
		ended_at_unix_ns   INTEGER,
		exit_code          INTEGER,
		build_git_sha      TEXT
	)`)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert records a session at startup.
func (s *Store) Insert(sess Session) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO sessions (prefix, pid, started_at_unix_ns, build_git_sha) VALUES (?, ?, ?, ?)`,
		sess.Prefix, sess.PID, sess.StartedAtUnixNs, sess.BuildGitSHA,
	)
	if err != nil {
		return fmt.Errorf("catalog: insert: %w", err)
	}
	return nil
}

// Complete updates a session at clean teardown with its end time and
// exit status.
func (s *Store) Complete(prefix string, endedAtUnixNs int64, exitCode int) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET ended_at_unix_ns = ?, exit_code = ? WHERE prefix = ?`,
		endedAtUnixNs, exitCode, prefix,
	)
	if err != nil {
		return fmt.Errorf("catalog: complete: %w", err)
	}
	return nil
}

// List returns every recorded session, most recently started first.
func (s *Store) List() ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT prefix, pid, started_at_unix_ns, ended_at_unix_ns, exit_code, build_git_sha
		 FROM sessions ORDER BY started_at_unix_ns DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.Prefix, &sess.PID, &sess.StartedAtUnixNs, &sess.EndedAtUnixNs, &sess.ExitCode, &sess.BuildGitSHA); err != nil {
			return nil, fmt.Errorf("catalog: scan: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// DefaultPath returns the default catalog location under the user's
// wtcap config directory.
func DefaultPath(configDir string) string {
	return configDir + "/sessions.db"
}

// Now returns the current wall-clock time in Unix nanoseconds, the unit
// of the catalog's time columns. It is a plain function and cannot be
// replaced by tests.
func Now() int64 { return time.Now().UnixNano() }
