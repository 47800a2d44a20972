// Package store persists workflows in a SQLite database, the same file the
// recorder writes to. Steps are stored as a JSON column, exactly as
// recorded, so the replay side never rewrites a recording.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/replaykit/replay-cli/internal/workflow"
)

// ErrNotFound is returned when no workflow has the requested id.
var ErrNotFound = errors.New("workflow not found")

// Store wraps the SQLite connection.
type Store struct {
	conn *sql.DB
	path string
}

// Summary is a workflow without its steps, for listings.
type Summary struct {
	ID        int64     `json:"id"        yaml:"id"`
	Name      string    `json:"name"      yaml:"name"`
	StepCount int       `json:"stepCount" yaml:"stepCount"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// Open opens or creates the database at dbPath and applies the schema.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite works best with a single connection.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	s := &Store{conn: conn, path: dbPath}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate() error {
	_, err := s.conn.Exec(`
	CREATE TABLE IF NOT EXISTS workflows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		steps TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Get loads one workflow by id.
func (s *Store) Get(id int64) (*workflow.Workflow, error) {
	var name, stepsJSON string
	err := s.conn.QueryRow(`SELECT name, steps FROM workflows WHERE id = ?`, id).Scan(&name, &stepsJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %d: %w", id, err)
	}

	steps, err := workflow.DecodeStepsJSON([]byte(stepsJSON))
	if err != nil {
		return nil, fmt.Errorf("workflow %d has corrupt steps: %w", id, err)
	}
	return &workflow.Workflow{ID: id, Name: name, Steps: steps}, nil
}

// List returns summaries of all stored workflows, newest first.
func (s *Store) List() ([]Summary, error) {
	rows, err := s.conn.Query(`SELECT id, name, steps, created_at FROM workflows ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var stepsJSON string
		if err := rows.Scan(&sum.ID, &sum.Name, &stepsJSON, &sum.CreatedAt); err != nil {
			return nil, err
		}
		if steps, err := workflow.DecodeStepsJSON([]byte(stepsJSON)); err == nil {
			sum.StepCount = len(steps)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Save inserts a workflow and returns its assigned id.
func (s *Store) Save(wf *workflow.Workflow) (int64, error) {
	stepsJSON, err := json.Marshal(wf.Steps)
	if err != nil {
		return 0, fmt.Errorf("failed to encode steps: %w", err)
	}

	res, err := s.conn.Exec(`INSERT INTO workflows (name, steps) VALUES (?, ?)`, wf.Name, string(stepsJSON))
	if err != nil {
		return 0, fmt.Errorf("failed to save workflow: %w", err)
	}
	return res.LastInsertId()
}

// Delete removes a workflow by id.
func (s *Store) Delete(id int64) error {
	res, err := s.conn.Exec(`DELETE FROM workflows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}
