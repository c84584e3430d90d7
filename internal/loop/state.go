package loop

import (
	"github.com/fentz26/ralph/internal/models"
)

// State is a loop run state.
type State string

const (
	StatePreflight     State = "PREFLIGHT"
	StateRunning       State = "RUNNING"
	StateExhausted     State = "EXHAUSTED"
	StateBudgetReached State = "BUDGET_REACHED"
	StateInterrupted   State = "INTERRUPTED"
	StateFaulted       State = "FAULTED"
	StateSummary       State = "SUMMARY"
)

// Outcome maps a terminal state to the outcome stored in the ledger.
func (s State) Outcome() models.RunOutcome {
	switch s {
	case StateExhausted:
		return models.OutcomeExhausted
	case StateBudgetReached:
		return models.OutcomeBudgetReached
	case StateInterrupted:
		return models.OutcomeInterrupted
	default:
		return models.OutcomeFaulted
	}
}

// RunContext is the state of one run. It lives for a single Run call.
type RunContext struct {
	RunID        string
	Iteration    int // iterations entered, 1-based once running
	Handoffs     int // packets handed to the agent
	Recorded     int // completions recorded by the loop itself
	Budget       int
	BackupBranch string
	State        State
	// Terminal is the state the run finished RUNNING in.
	Terminal State
}

// Summary is the final report of a run.
type Summary struct {
	RunID        string
	Outcome      models.RunOutcome
	Iterations   int
	Handoffs     int
	Recorded     int
	BackupBranch string
	Progress     models.Progress
}

// ExitCode is the process status for the run: 0 unless it faulted.
func (s Summary) ExitCode() int {
	if s.Outcome == models.OutcomeFaulted {
		return 1
	}
	return 0
}
