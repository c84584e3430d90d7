package audit

import (
	"testing"

	"github.com/fentz26/ralph/internal/models"
)

type memorySink struct {
	entries []models.PDREntry
}

func (m *memorySink) WritePDR(action, inputsHash, outcome, runID, details string) (*models.PDREntry, error) {
	e := models.PDREntry{Action: action, InputsHash: inputsHash, Outcome: outcome, RunID: runID, Details: details}
	m.entries = append(m.entries, e)
	return &e, nil
}

func TestRecordHashesInputs(t *testing.T) {
	sink := &memorySink{}
	w := NewPDRWriter(sink)

	inputs := map[string]string{"task": "Implement user login"}
	if _, err := w.Record(ActionTaskComplete, inputs, OutcomeSuccess, "run-1", "Implement user login"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if _, err := w.Record(ActionTaskComplete, inputs, OutcomeSuccess, "run-1", "again"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if len(sink.entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(sink.entries))
	}
	first := sink.entries[0]
	if len(first.InputsHash) != 64 {
		t.Errorf("Expected sha256 hex digest, got %q", first.InputsHash)
	}
	if first.InputsHash != sink.entries[1].InputsHash {
		t.Error("Same inputs should hash identically")
	}
	if first.RunID != "run-1" || first.Action != ActionTaskComplete {
		t.Errorf("Unexpected entry: %+v", first)
	}
}

func TestHashInputsDiffers(t *testing.T) {
	a := hashInputs(map[string]string{"task": "a"})
	b := hashInputs(map[string]string{"task": "b"})
	if a == b {
		t.Error("Different inputs should hash differently")
	}
	if got := hashInputs(func() {}); got != "hash_error" {
		t.Errorf("Expected hash_error for unmarshalable input, got %q", got)
	}
}
