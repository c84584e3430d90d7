// Package audit provides PDR (Process Decision Record) writing for ralph.
// Every checklist mutation and run boundary gets a record with a hash of the
// inputs that produced it.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/fentz26/ralph/internal/models"
)

// Actions recorded by ralph.
const (
	ActionRunStart     = "run.start"
	ActionRunFinish    = "run.finish"
	ActionTaskComplete = "task.complete"
	ActionGatesRun     = "gates.run"
)

// Outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeNoop    = "noop"
	OutcomeFailure = "failure"
)

// Sink persists PDR entries. *store.Store satisfies it.
type Sink interface {
	WritePDR(action, inputsHash, outcome, runID, details string) (*models.PDREntry, error)
}

// PDRWriter writes Process Decision Records for audit trails.
type PDRWriter struct {
	sink Sink
}

// NewPDRWriter creates a new PDR writer.
func NewPDRWriter(s Sink) *PDRWriter {
	return &PDRWriter{sink: s}
}

// Record writes a PDR entry for a state-mutating action.
func (w *PDRWriter) Record(action string, inputs interface{}, outcome, runID, details string) (*models.PDREntry, error) {
	inputsHash := hashInputs(inputs)
	return w.sink.WritePDR(action, inputsHash, outcome, runID, details)
}

// hashInputs creates a SHA256 hash of the inputs for reproducibility.
func hashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
