package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fentz26/ralph/internal/models"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "history.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	run, err := s.CreateRun("backup/claude-loop-20260304_050607")
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if run.ID == "" {
		t.Error("Run ID should not be empty")
	}

	if err := s.FinishRun(run.ID, models.OutcomeBudgetReached, 3, models.Progress{Completed: 0, Remaining: 10}); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, err := s.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Outcome != models.OutcomeBudgetReached {
		t.Errorf("Expected outcome budget_reached, got %s", got.Outcome)
	}
	if got.Iterations != 3 || got.Remaining != 10 {
		t.Errorf("Unexpected counts: %+v", got)
	}
	if got.BackupBranch != "backup/claude-loop-20260304_050607" {
		t.Errorf("Unexpected backup branch %q", got.BackupBranch)
	}
	if got.EndedAt.IsZero() {
		t.Error("Expected ended_at to be set")
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if _, err := s.GetRun("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
	if err := s.FinishRun("missing", models.OutcomeExhausted, 0, models.Progress{}); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	for i := 0; i < 3; i++ {
		if _, err := s.CreateRun("(disabled)"); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}

	runs, err := s.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("Expected 3 runs, got %d", len(runs))
	}

	runs, err = s.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns with limit failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("Expected 2 runs, got %d", len(runs))
	}
}

func TestResolveRunID(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	run, _ := s.CreateRun("")

	got, err := s.ResolveRunID(run.ID[:8])
	if err != nil {
		t.Fatalf("ResolveRunID failed: %v", err)
	}
	if got != run.ID {
		t.Errorf("Expected %s, got %s", run.ID, got)
	}
	if _, err := s.ResolveRunID("zzzz"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
	s.CreateRun("")
	if _, err := s.ResolveRunID(""); !errors.Is(err, ErrAmbiguousRun) {
		t.Errorf("Expected ErrAmbiguousRun for empty prefix, got %v", err)
	}
}

func TestIterations(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	run, _ := s.CreateRun("")

	if _, err := s.RecordIteration(run.ID, 1, "Implement user login", ".ralph/.current_task.md", models.SignalComplete); err != nil {
		t.Fatalf("RecordIteration failed: %v", err)
	}
	if _, err := s.RecordIteration(run.ID, 2, "Implement user signup", ".ralph/.current_task.md", models.SignalContinue); err != nil {
		t.Fatalf("RecordIteration failed: %v", err)
	}

	its, err := s.ListIterations(run.ID)
	if err != nil {
		t.Fatalf("ListIterations failed: %v", err)
	}
	if len(its) != 2 {
		t.Fatalf("Expected 2 iterations, got %d", len(its))
	}
	if its[0].Number != 1 || its[0].Signal != models.SignalComplete {
		t.Errorf("Unexpected first iteration: %+v", its[0])
	}
	if its[1].Task != "Implement user signup" {
		t.Errorf("Unexpected second task %q", its[1].Task)
	}
}

func TestGateResults(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	run, _ := s.CreateRun("")

	pass := models.GateResult{Name: "Lint", Command: "npm", Args: []string{"run", "lint"}, Passed: true}
	fail := models.GateResult{Name: "Build", Command: "npm", Args: []string{"run", "build"}, ExitCode: 1, Output: "boom"}

	if err := s.RecordGateResult(run.ID, pass); err != nil {
		t.Fatalf("RecordGateResult failed: %v", err)
	}
	if err := s.RecordGateResult("", fail); err != nil {
		t.Fatalf("RecordGateResult without run failed: %v", err)
	}

	results, err := s.ListGateResults(run.ID, 0)
	if err != nil {
		t.Fatalf("ListGateResults failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result for run, got %d", len(results))
	}
	if !results[0].Passed || len(results[0].Args) != 2 {
		t.Errorf("Unexpected result: %+v", results[0])
	}
	if results[0].RunID != run.ID || results[0].CreatedAt.IsZero() {
		t.Errorf("Expected run id and timestamp to be read back, got %+v", results[0])
	}

	all, err := s.ListGateResults("", 0)
	if err != nil {
		t.Fatalf("ListGateResults failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 results overall, got %d", len(all))
	}
}

func TestPDR(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	run, _ := s.CreateRun("")

	pdr, err := s.WritePDR("task.complete", "abc123", "success", run.ID, "Implement user login")
	if err != nil {
		t.Fatalf("WritePDR failed: %v", err)
	}
	if pdr.ID == "" {
		t.Error("PDR ID should not be empty")
	}

	entries, err := s.ListPDR(run.ID, 10)
	if err != nil {
		t.Fatalf("ListPDR failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Details != "Implement user login" {
		t.Errorf("Unexpected entries: %+v", entries)
	}
}

func TestActiveRunID(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	id, err := s.ActiveRunID()
	if err != nil {
		t.Fatalf("ActiveRunID failed: %v", err)
	}
	if id != "" {
		t.Errorf("Expected no active run, got %q", id)
	}

	run, _ := s.CreateRun("")
	if id, _ := s.ActiveRunID(); id != run.ID {
		t.Errorf("Expected active run %s, got %q", run.ID, id)
	}

	if err := s.FinishRun(run.ID, models.OutcomeExhausted, 1, models.Progress{}); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}
	if id, _ := s.ActiveRunID(); id != "" {
		t.Errorf("Finished run should not be active, got %q", id)
	}
}

func newTestStore(t *testing.T) *Store {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}
