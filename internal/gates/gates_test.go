package gates

import (
	"context"
	"errors"
	"testing"

	"github.com/fentz26/ralph/internal/connectors"
	"github.com/fentz26/ralph/internal/models"
)

// mockConnector returns a canned exit code per script name.
type mockConnector struct {
	exitCodes map[string]int
	calls     []string
	failOn    string
}

func (m *mockConnector) Name() string { return "mock" }

func (m *mockConnector) Execute(ctx context.Context, cmd string, args []string) (*connectors.ExecResult, error) {
	script := args[len(args)-1]
	m.calls = append(m.calls, script)
	if script == m.failOn {
		return nil, errors.New("boom")
	}
	code := m.exitCodes[script]
	res := &connectors.ExecResult{Command: cmd, Args: args, ExitCode: code, Stdout: "stdout " + script}
	if code != 0 {
		res.Stderr = "stderr " + script
	}
	return res, nil
}

func (m *mockConnector) IsAllowed(cmd string, args []string) bool { return true }

func defaultChecks() []Check {
	return []Check{
		{Name: "Type Check", Command: "npm", Args: []string{"run", "type-check"}},
		{Name: "Lint", Command: "npm", Args: []string{"run", "lint"}},
		{Name: "Build", Command: "npm", Args: []string{"run", "build"}},
	}
}

func TestRunAllPass(t *testing.T) {
	conn := &mockConnector{}
	r := NewRunner(conn, defaultChecks())

	var observed []string
	results, err := r.Run(context.Background(), false, func(res models.GateResult) {
		observed = append(observed, res.Name)
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if !Passed(results) {
		t.Error("Expected all gates to pass")
	}
	if len(observed) != 3 {
		t.Errorf("Expected observer to see 3 results, got %v", observed)
	}
	if results[0].Output != "stdout type-check" {
		t.Errorf("Expected stdout fallback diagnostic, got %q", results[0].Output)
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	conn := &mockConnector{exitCodes: map[string]int{"lint": 1}}
	r := NewRunner(conn, defaultChecks())

	results, err := r.Run(context.Background(), false, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected to stop after lint, got %d results", len(results))
	}
	if results[1].Passed || results[1].Output != "stderr lint" {
		t.Errorf("Unexpected lint result: %+v", results[1])
	}
	if Passed(results) {
		t.Error("Expected Passed to be false")
	}
}

func TestRunKeepGoing(t *testing.T) {
	conn := &mockConnector{exitCodes: map[string]int{"type-check": 2}}
	r := NewRunner(conn, defaultChecks())

	results, err := r.Run(context.Background(), true, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("Expected all gates to run, got %d", len(results))
	}
}

func TestRunConnectorError(t *testing.T) {
	conn := &mockConnector{failOn: "lint"}
	r := NewRunner(conn, defaultChecks())

	results, err := r.Run(context.Background(), false, nil)
	if err == nil {
		t.Fatal("Expected error")
	}
	if len(results) != 1 {
		t.Errorf("Expected partial results before the error, got %d", len(results))
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conn := &mockConnector{}
	_, err := NewRunner(conn, defaultChecks()).Run(ctx, false, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(conn.calls) != 0 {
		t.Errorf("Expected no gate to run, got %v", conn.calls)
	}
}

func TestPassedEmpty(t *testing.T) {
	if !Passed(nil) {
		t.Error("No gates configured should count as passing")
	}
}
