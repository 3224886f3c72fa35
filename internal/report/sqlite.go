// FILENAME: internal/report/sqlite.go
package report

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/xkilldash9x/mutafuzz/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS responses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	task_id INTEGER NOT NULL,
	method TEXT,
	url TEXT NOT NULL,
	status INTEGER NOT NULL,
	length INTEGER NOT NULL,
	interesting INTEGER NOT NULL,
	blocked INTEGER NOT NULL,
	learn_group INTEGER NOT NULL,
	payloads TEXT,
	duration_ms INTEGER NOT NULL,
	hash TEXT,
	title TEXT,
	error TEXT,
	body BLOB,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_responses_run ON responses(run_id);
CREATE INDEX IF NOT EXISTS idx_responses_status ON responses(status);
`

// SQLiteSink persists table rows as they are added. It implements table.Sink.
type SQLiteSink struct {
	db    *sql.DB
	runID string

	mu  sync.Mutex
	err error
}

// OpenSQLite opens or creates the database at path. An empty runID gets a
// fresh uuid so several runs can share one file.
func OpenSQLite(path, runID string) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Serialize writers; handlers call Record concurrently
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	return &SQLiteSink{db: db, runID: runID}, nil
}

func (s *SQLiteSink) RunID() string { return s.runID }

// Record inserts one response. Failures are kept and reported by Err.
func (s *SQLiteSink) Record(r *models.Response) {
	if r == nil {
		return
	}
	rec := FromResponse(r)
	_, err := s.db.Exec(`INSERT INTO responses
		(run_id, task_id, method, url, status, length, interesting, blocked, learn_group, payloads, duration_ms, hash, title, error, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, rec.TaskID, rec.Method, rec.URL, rec.Status, rec.Length, rec.Interesting, rec.Blocked,
		rec.LearnGroup, strings.Join(rec.Payloads, "|"), rec.DurationMS, rec.Hash, rec.Title, rec.Error, r.Body,
	)
	if err != nil {
		s.mu.Lock()
		if s.err == nil {
			s.err = fmt.Errorf("failed to insert task %d: %w", rec.TaskID, err)
		}
		s.mu.Unlock()
	}
}

// Err returns the first insert failure, if any.
func (s *SQLiteSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Count returns the number of rows stored for this run.
func (s *SQLiteSink) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM responses WHERE run_id = ?`, s.runID).Scan(&n)
	return n, err
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
