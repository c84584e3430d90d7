package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fentz26/ralph/internal/audit"
	"github.com/fentz26/ralph/internal/backup"
	"github.com/fentz26/ralph/internal/checklist"
	"github.com/fentz26/ralph/internal/config"
	"github.com/fentz26/ralph/internal/connectors/localexec"
	"github.com/fentz26/ralph/internal/gates"
	"github.com/fentz26/ralph/internal/logging"
	"github.com/fentz26/ralph/internal/models"
	"github.com/fentz26/ralph/internal/packet"
	"github.com/fentz26/ralph/internal/store"
)

// loadConfig resolves the project directory and loads its config, then
// applies the persistent flag overrides.
func loadConfig() (*config.Config, error) {
	dir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("resolve project dir: %w", err)
	}
	cfg, err := config.Load(dir, configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// consoleLogger is the logger for short commands: console only, no run file.
func consoleLogger(cfg *config.Config, out io.Writer) (*logging.Logger, error) {
	return logging.New(logging.Options{Level: cfg.Logging.Level, Console: out})
}

func openChecklist(cfg *config.Config) *checklist.Store {
	return checklist.New(cfg.TaskFile())
}

func newPacketBuilder(cfg *config.Config) (*packet.Builder, error) {
	gateLines := make([]string, 0, len(cfg.Gates))
	for _, g := range cfg.Gates {
		gateLines = append(gateLines, packet.GateCommand(g.Command, g.Args))
	}
	ctx := packet.Context{
		Mission:        cfg.Packet.Mission,
		WebAppLocation: cfg.Packet.WebAppLocation,
		TaskFile:       cfg.Paths.TaskFile,
		PromptFile:     cfg.Paths.PromptFile,
		APIReference:   cfg.Packet.APIReference,
		Requirements:   cfg.Packet.Requirements,
		Gates:          gateLines,
		Principles:     cfg.Packet.Principles,
		Standards:      cfg.Packet.Standards,
	}
	return packet.NewBuilder(ctx, cfg.PacketFile())
}

// newExecutor allows exactly the configured gates and the backup branch
// command.
func newExecutor(cfg *config.Config) *localexec.LocalExec {
	allow := localexec.Allowlist{}
	for _, g := range cfg.Gates {
		allow.Allow(g.Command, g.Args)
	}
	allow.Allow("git", []string{"branch"})
	return localexec.New(cfg.ProjectDir, allow)
}

func newGateRunner(cfg *config.Config) *gates.Runner {
	checks := make([]gates.Check, 0, len(cfg.Gates))
	for _, g := range cfg.Gates {
		checks = append(checks, gates.Check{Name: g.Name, Command: g.Command, Args: g.Args})
	}
	return gates.NewRunner(newExecutor(cfg), checks)
}

func newBrancher(cfg *config.Config) *backup.Brancher {
	return backup.New(newExecutor(cfg), cfg.Backup.Prefix)
}

// openLedger opens the history database. Callers treat a failure as
// "no history" rather than fatal.
func openLedger(cfg *config.Config) (*store.Store, *audit.PDRWriter, error) {
	s, err := store.New(cfg.HistoryDB())
	if err != nil {
		return nil, nil, fmt.Errorf("open history: %w", err)
	}
	return s, audit.NewPDRWriter(s), nil
}

// recordGates stores gate results and a gates.run decision against the run
// currently in progress, if any, so `ralph history <run>` shows them.
func recordGates(log *logging.Logger, ledger *store.Store, auditor *audit.PDRWriter, results []models.GateResult) {
	runID, err := ledger.ActiveRunID()
	if err != nil {
		log.WithError(err).Warn("Could not look up the active run")
	}
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
		if err := ledger.RecordGateResult(runID, r); err != nil {
			log.WithError(err).Warn("Failed to record gate result")
		}
	}
	outcome := audit.OutcomeSuccess
	if !gates.Passed(results) {
		outcome = audit.OutcomeFailure
	}
	if _, err := auditor.Record(audit.ActionGatesRun, names, outcome, runID, fmt.Sprintf("%d gates run", len(results))); err != nil {
		log.WithError(err).Warn("Failed to write audit record")
	}
}
