// Package models defines the core domain types for ralph.
package models

import "time"

// Checklist markers recognised in the task file.
const (
	IncompleteMarker = "- [ ]"
	CompleteMarker   = "- [x]"
)

// Entry is a single task line in the checklist.
type Entry struct {
	Line        int    `json:"line"` // 1-based line number in the task file
	Description string `json:"description"`
	Done        bool   `json:"done"`
}

// Progress holds aggregate checklist counts.
type Progress struct {
	Completed int `json:"completed"`
	Remaining int `json:"remaining"`
}

// Total returns the number of task entries counted.
func (p Progress) Total() int {
	return p.Completed + p.Remaining
}

// Signal is the answer returned by an awaiter once the external agent is done.
type Signal string

const (
	// SignalContinue advances to the next iteration without recording anything.
	SignalContinue Signal = "continue"
	// SignalComplete asks the loop to mark the current task complete, then advance.
	SignalComplete Signal = "complete"
	// SignalInterrupt stops the loop.
	SignalInterrupt Signal = "interrupt"
)

// RunOutcome is the terminal state a loop run finished in.
type RunOutcome string

const (
	OutcomeExhausted     RunOutcome = "exhausted"
	OutcomeBudgetReached RunOutcome = "budget_reached"
	OutcomeInterrupted   RunOutcome = "interrupted"
	OutcomeFaulted       RunOutcome = "faulted"
)

// Run is one invocation of the loop as recorded in the ledger.
type Run struct {
	ID           string     `json:"id"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      time.Time  `json:"ended_at,omitempty"`
	BackupBranch string     `json:"backup_branch"`
	Outcome      RunOutcome `json:"outcome,omitempty"`
	Iterations   int        `json:"iterations"`
	Completed    int        `json:"completed"`
	Remaining    int        `json:"remaining"`
}

// Iteration records a single packet hand-off within a run.
type Iteration struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Number     int       `json:"number"`
	Task       string    `json:"task"`
	PacketPath string    `json:"packet_path"`
	Signal     Signal    `json:"signal"`
	CreatedAt  time.Time `json:"created_at"`
}

// GateResult is the outcome of one quality-gate check.
type GateResult struct {
	Name     string   `json:"name"`
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exit_code"`
	Passed   bool     `json:"passed"`
	Output   string   `json:"output"`
	// RunID and CreatedAt are filled in when read back from the ledger.
	RunID     string    `json:"run_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// PDREntry represents a Process Decision Record for audit.
type PDREntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	RunID      string    `json:"run_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Handoff is what the loop shows the operator while it waits for the
// external agent.
type Handoff struct {
	Iteration  int      `json:"iteration"`
	Budget     int      `json:"budget"`
	Task       string   `json:"task"`
	Packet     string   `json:"packet"`
	PacketPath string   `json:"packet_path"`
	TaskFile   string   `json:"task_file"`
	Hints      []string `json:"hints,omitempty"`
	Progress   Progress `json:"progress"`
}
