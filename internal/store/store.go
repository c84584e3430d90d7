// Package store provides the SQLite-backed run ledger for ralph.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fentz26/ralph/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Sentinel errors for run lookups.
var (
	ErrRunNotFound  = errors.New("run not found")
	ErrAmbiguousRun = errors.New("run id prefix is ambiguous")
)

// Store provides access to the ralph history database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		backup_branch TEXT NOT NULL DEFAULT '',
		outcome TEXT NOT NULL DEFAULT '',
		iterations INTEGER NOT NULL DEFAULT 0,
		completed INTEGER NOT NULL DEFAULT 0,
		remaining INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS iterations (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		number INTEGER NOT NULL,
		task TEXT NOT NULL,
		packet_path TEXT NOT NULL,
		signal TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE TABLE IF NOT EXISTS gate_runs (
		id TEXT PRIMARY KEY,
		run_id TEXT,
		name TEXT NOT NULL,
		command TEXT NOT NULL,
		args TEXT,
		exit_code INTEGER NOT NULL,
		passed INTEGER NOT NULL,
		output TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pdr (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		run_id TEXT,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_iterations_run_id ON iterations(run_id);
	CREATE INDEX IF NOT EXISTS idx_gate_runs_run_id ON gate_runs(run_id);
	CREATE INDEX IF NOT EXISTS idx_pdr_run_id ON pdr(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Run Operations ---

// CreateRun inserts a new run record.
func (s *Store) CreateRun(backupBranch string) (*models.Run, error) {
	run := &models.Run{
		ID:           uuid.New().String(),
		StartedAt:    time.Now().UTC(),
		BackupBranch: backupBranch,
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (id, started_at, backup_branch) VALUES (?, ?, ?)`,
		run.ID, run.StartedAt, run.BackupBranch,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stamps the terminal outcome and final counts on a run.
func (s *Store) FinishRun(id string, outcome models.RunOutcome, iterations int, progress models.Progress) error {
	res, err := s.db.Exec(
		`UPDATE runs SET ended_at = ?, outcome = ?, iterations = ?, completed = ?, remaining = ? WHERE id = ?`,
		time.Now().UTC(), outcome, iterations, progress.Completed, progress.Remaining, id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (*models.Run, error) {
	row := s.db.QueryRow(
		`SELECT id, started_at, ended_at, backup_branch, outcome, iterations, completed, remaining FROM runs WHERE id = ?`,
		id,
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	return run, nil
}

// ActiveRunID returns the newest run that has not finished yet, or "" when
// no loop is running.
func (s *Store) ActiveRunID() (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM runs WHERE ended_at IS NULL ORDER BY started_at DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query active run: %w", err)
	}
	return id, nil
}

// ResolveRunID expands a unique run ID prefix to the full ID.
func (s *Store) ResolveRunID(prefix string) (string, error) {
	rows, err := s.db.Query(`SELECT id FROM runs WHERE id LIKE ? LIMIT 2`, prefix+"%")
	if err != nil {
		return "", fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan run: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", ErrRunNotFound
	case 1:
		return ids[0], nil
	default:
		return "", ErrAmbiguousRun
	}
}

// ListRuns returns the most recent runs, newest first. limit <= 0 means all.
func (s *Store) ListRuns(limit int) ([]models.Run, error) {
	query := `SELECT id, started_at, ended_at, backup_branch, outcome, iterations, completed, remaining FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var endedAt sql.NullTime
	var outcome string
	if err := row.Scan(&run.ID, &run.StartedAt, &endedAt, &run.BackupBranch, &outcome,
		&run.Iterations, &run.Completed, &run.Remaining); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		run.EndedAt = endedAt.Time
	}
	run.Outcome = models.RunOutcome(outcome)
	return &run, nil
}

// --- Iteration Operations ---

// RecordIteration stores one packet hand-off and the signal that resolved it.
func (s *Store) RecordIteration(runID string, number int, task, packetPath string, signal models.Signal) (*models.Iteration, error) {
	it := &models.Iteration{
		ID:         uuid.New().String(),
		RunID:      runID,
		Number:     number,
		Task:       task,
		PacketPath: packetPath,
		Signal:     signal,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO iterations (id, run_id, number, task, packet_path, signal, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.RunID, it.Number, it.Task, it.PacketPath, string(it.Signal), it.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert iteration: %w", err)
	}
	return it, nil
}

// ListIterations returns the iterations of a run in order.
func (s *Store) ListIterations(runID string) ([]models.Iteration, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, number, task, packet_path, signal, created_at FROM iterations WHERE run_id = ? ORDER BY number ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query iterations: %w", err)
	}
	defer rows.Close()

	var its []models.Iteration
	for rows.Next() {
		var it models.Iteration
		var signal string
		if err := rows.Scan(&it.ID, &it.RunID, &it.Number, &it.Task, &it.PacketPath, &signal, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan iteration: %w", err)
		}
		it.Signal = models.Signal(signal)
		its = append(its, it)
	}
	return its, rows.Err()
}

// --- Gate Operations ---

// RecordGateResult stores one gate outcome. runID may be empty for gates run
// outside a loop.
func (s *Store) RecordGateResult(runID string, result models.GateResult) error {
	argsJSON, _ := json.Marshal(result.Args)
	var run sql.NullString
	if runID != "" {
		run = sql.NullString{String: runID, Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO gate_runs (id, run_id, name, command, args, exit_code, passed, output, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), run, result.Name, result.Command, string(argsJSON),
		result.ExitCode, result.Passed, result.Output, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert gate run: %w", err)
	}
	return nil
}

// ListGateResults returns recorded gate outcomes, newest first. An empty
// runID lists every result.
func (s *Store) ListGateResults(runID string, limit int) ([]models.GateResult, error) {
	query := `SELECT run_id, name, command, args, exit_code, passed, output, created_at FROM gate_runs`
	var args []any
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query gate runs: %w", err)
	}
	defer rows.Close()

	var results []models.GateResult
	for rows.Next() {
		var r models.GateResult
		var run, argsJSON, output sql.NullString
		if err := rows.Scan(&run, &r.Name, &r.Command, &argsJSON, &r.ExitCode, &r.Passed, &output, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan gate run: %w", err)
		}
		r.RunID = run.String
		if argsJSON.Valid && argsJSON.String != "" {
			json.Unmarshal([]byte(argsJSON.String), &r.Args)
		}
		if output.Valid {
			r.Output = output.String
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// --- PDR Operations ---

// WritePDR writes a Process Decision Record.
func (s *Store) WritePDR(action, inputsHash, outcome, runID, details string) (*models.PDREntry, error) {
	pdr := &models.PDREntry{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		RunID:      runID,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO pdr (id, action, inputs_hash, outcome, run_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pdr.ID, pdr.Action, pdr.InputsHash, pdr.Outcome, pdr.RunID, pdr.Details, pdr.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert pdr: %w", err)
	}
	return pdr, nil
}

// ListPDR returns audit records, newest first. An empty runID lists all.
func (s *Store) ListPDR(runID string, limit int) ([]models.PDREntry, error) {
	query := `SELECT id, action, inputs_hash, outcome, run_id, details, timestamp FROM pdr`
	var args []any
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY timestamp DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pdr: %w", err)
	}
	defer rows.Close()

	var entries []models.PDREntry
	for rows.Next() {
		var e models.PDREntry
		var run, details sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &e.InputsHash, &e.Outcome, &run, &details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan pdr: %w", err)
		}
		e.RunID = run.String
		e.Details = details.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
