package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// RunHistory records bot runs and per-page outcomes in SQLite so past
// activity stays queryable.
type RunHistory struct {
	db *sql.DB
}

// PageAction is what the run-loop did with one page.
type PageAction string

const (
	ActionRead    PageAction = "read"
	ActionSaved   PageAction = "saved"
	ActionSkipped PageAction = "skipped"
	ActionFailed  PageAction = "failed"
)

// OpenRunHistory opens the history database, creating the schema when
// missing.
func OpenRunHistory(dbPath string) (*RunHistory, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		script TEXT NOT NULL,
		site TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		pages_read INTEGER DEFAULT 0,
		pages_saved INTEGER DEFAULT 0,
		pages_skipped INTEGER DEFAULT 0,
		outcome TEXT
	);

	CREATE TABLE IF NOT EXISTS page_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		action TEXT NOT NULL,
		at TIMESTAMP NOT NULL,
		error TEXT,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON page_events(run_id);
	CREATE INDEX IF NOT EXISTS idx_events_title ON page_events(title);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &RunHistory{db: db}, nil
}

// StartRun registers a new run and returns its id.
func (h *RunHistory) StartRun(script, site string, at time.Time) (int64, error) {
	res, err := h.db.Exec(
		"INSERT INTO runs (script, site, started_at) VALUES (?, ?, ?)",
		script, site, at.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record run start: %w", err)
	}
	return res.LastInsertId()
}

// RecordPage stores what happened to one page during a run.
func (h *RunHistory) RecordPage(runID int64, title string, action PageAction, pageErr string) error {
	_, err := h.db.Exec(
		"INSERT INTO page_events (run_id, title, action, at, error) VALUES (?, ?, ?, ?, ?)",
		runID, title, string(action), time.Now().Format(time.RFC3339), pageErr,
	)
	if err != nil {
		return fmt.Errorf("failed to record page event: %w", err)
	}
	return nil
}

// FinishRun stores the final counters and outcome for a run.
func (h *RunHistory) FinishRun(runID int64, read, saved, skipped int, outcome string, at time.Time) error {
	_, err := h.db.Exec(
		`UPDATE runs SET finished_at = ?, pages_read = ?, pages_saved = ?, pages_skipped = ?, outcome = ?
		 WHERE id = ?`,
		at.Format(time.RFC3339), read, saved, skipped, outcome, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to record run end: %w", err)
	}
	return nil
}

// RunStats summarizes stored runs.
func (h *RunHistory) RunStats() (total, completed int, err error) {
	if err = h.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&total); err != nil {
		return 0, 0, err
	}
	if err = h.db.QueryRow("SELECT COUNT(*) FROM runs WHERE finished_at IS NOT NULL").Scan(&completed); err != nil {
		return 0, 0, err
	}
	return total, completed, nil
}

// Close closes the database.
func (h *RunHistory) Close() error {
	return h.db.Close()
}
