// Package loop drives one run over the checklist: preflight, then one
// iteration per task until the list is exhausted, the iteration budget is
// spent, or the operator interrupts, then a summary.
package loop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fentz26/ralph/internal/audit"
	"github.com/fentz26/ralph/internal/await"
	"github.com/fentz26/ralph/internal/logging"
	"github.com/fentz26/ralph/internal/models"
)

// DisabledBackup is the backup identifier reported when backups are off.
const DisabledBackup = "(disabled)"

const ruleWidth = 60

// Checklist is the task store the loop walks. *checklist.Store satisfies it.
type Checklist interface {
	Path() string
	Exists() (bool, error)
	NextIncomplete() (string, bool, error)
	MarkComplete(description string) (bool, error)
	Counts() (models.Progress, error)
}

// PacketBuilder renders and persists work packets. *packet.Builder satisfies it.
type PacketBuilder interface {
	Build(description string) (string, error)
	Persist(text string) (string, error)
}

// Backup snapshots the working tree before a run. *backup.Brancher satisfies it.
type Backup interface {
	Create(ctx context.Context) (string, error)
}

// Ledger records run history. *store.Store satisfies it.
type Ledger interface {
	CreateRun(backupBranch string) (*models.Run, error)
	RecordIteration(runID string, number int, task, packetPath string, signal models.Signal) (*models.Iteration, error)
	FinishRun(id string, outcome models.RunOutcome, iterations int, progress models.Progress) error
}

// Auditor writes decision records. *audit.PDRWriter satisfies it.
type Auditor interface {
	Record(action string, inputs interface{}, outcome, runID, details string) (*models.PDREntry, error)
}

// Deps are the collaborators of a Controller. Backup, Ledger, Auditor and
// Hints may be nil.
type Deps struct {
	Checklist Checklist
	Packets   PacketBuilder
	Awaiter   await.Awaiter
	Backup    Backup
	Ledger    Ledger
	Auditor   Auditor
	Hints     func(packetPath string) []string
	Log       *logging.Logger
}

// Options tune a run.
type Options struct {
	MaxIterations int
	Pause         time.Duration
	ProjectDir    string
}

// Controller runs the checklist loop.
type Controller struct {
	deps Deps
	opts Options
}

// NewController creates a loop controller.
func NewController(deps Deps, opts Options) *Controller {
	return &Controller{deps: deps, opts: opts}
}

// Run executes one full run. The returned error is non-nil for a preflight
// failure (wrapping ErrPreflight) or a mid-run fault (wrapping ErrFaulted);
// the summary is still filled in best-effort for a fault.
func (c *Controller) Run(ctx context.Context) (Summary, error) {
	rc := &RunContext{Budget: c.opts.MaxIterations, State: StatePreflight}
	log := c.deps.Log

	c.banner()

	if err := c.preflight(ctx, rc); err != nil {
		log.WithError(err).Error("Preflight failed")
		return Summary{Outcome: models.OutcomeFaulted, BackupBranch: rc.BackupBranch}, err
	}
	c.audit(audit.ActionRunStart, map[string]any{"budget": rc.Budget, "backup": rc.BackupBranch},
		audit.OutcomeSuccess, rc.RunID, c.deps.Checklist.Path())

	rc.State = StateRunning
	runErr := c.running(ctx, rc)
	if runErr != nil {
		rc.Terminal = StateFaulted
		log.WithError(runErr).Error("Run aborted")
	}

	rc.State = StateSummary
	summary := c.summarize(rc)
	return summary, runErr
}

func (c *Controller) banner() {
	log := c.deps.Log
	log.Rule("=", ruleWidth)
	log.Heading("RALPH AUTONOMOUS LOOP")
	log.Rule("=", ruleWidth)
	if c.opts.ProjectDir != "" {
		log.Infof("Project: %s", c.opts.ProjectDir)
	}
	log.Infof("Task file: %s", c.deps.Checklist.Path())
	log.Infof("Max iterations: %d", c.opts.MaxIterations)
	log.Blank()
}

func (c *Controller) preflight(ctx context.Context, rc *RunContext) error {
	log := c.deps.Log

	if rc.Budget <= 0 {
		return fmt.Errorf("%w: iteration budget must be positive, got %d", ErrPreflight, rc.Budget)
	}
	ok, err := c.deps.Checklist.Exists()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPreflight, err)
	}
	if !ok {
		return fmt.Errorf("%w: task file not found: %s", ErrPreflight, c.deps.Checklist.Path())
	}

	rc.BackupBranch = DisabledBackup
	if c.deps.Backup != nil {
		branch, err := c.deps.Backup.Create(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPreflight, err)
		}
		rc.BackupBranch = branch
		log.Success("Created backup branch: %s", branch)
	} else {
		log.Highlight("Backup disabled")
	}

	if c.deps.Ledger != nil {
		run, err := c.deps.Ledger.CreateRun(rc.BackupBranch)
		if err != nil {
			log.WithError(err).Warn("Run history unavailable")
		} else {
			rc.RunID = run.ID
		}
	}
	log.Blank()
	return nil
}

// running iterates until a terminal state. It sets rc.Terminal and returns
// an error only for faults.
func (c *Controller) running(ctx context.Context, rc *RunContext) error {
	log := c.deps.Log

	for {
		if ctx.Err() != nil {
			c.interrupted(rc)
			return nil
		}

		rc.Iteration++
		log.Rule("━", ruleWidth)
		log.Heading("Iteration %d/%d", rc.Iteration, rc.Budget)
		log.Rule("━", ruleWidth)

		progress, err := c.deps.Checklist.Counts()
		if err != nil {
			return fmt.Errorf("%w: count tasks: %w", ErrFaulted, err)
		}
		log.Infof("Progress: %d completed, %d remaining", progress.Completed, progress.Remaining)
		log.Blank()

		task, ok, err := c.deps.Checklist.NextIncomplete()
		if err != nil {
			return fmt.Errorf("%w: select task: %w", ErrFaulted, err)
		}
		if !ok {
			log.Success("All tasks completed! Exiting loop.")
			rc.Terminal = StateExhausted
			return nil
		}
		log.Highlight("Next task: %s", task)
		log.Blank()

		text, err := c.deps.Packets.Build(task)
		if err != nil {
			return fmt.Errorf("%w: build packet: %w", ErrFaulted, err)
		}
		packetPath, err := c.deps.Packets.Persist(text)
		if err != nil {
			return fmt.Errorf("%w: write packet: %w", ErrFaulted, err)
		}
		log.Accent("Task packet saved to: %s", packetPath)
		log.Blank()

		h := models.Handoff{
			Iteration:  rc.Iteration,
			Budget:     rc.Budget,
			Task:       task,
			Packet:     text,
			PacketPath: packetPath,
			TaskFile:   c.deps.Checklist.Path(),
			Progress:   progress,
		}
		if c.deps.Hints != nil {
			h.Hints = c.deps.Hints(packetPath)
		}
		c.handOff(h)

		signal, err := c.deps.Awaiter.Await(ctx, h)
		if err != nil {
			return fmt.Errorf("%w: await: %w", ErrFaulted, err)
		}
		rc.Handoffs++
		c.recordIteration(rc, h, signal)

		switch signal {
		case models.SignalInterrupt:
			c.interrupted(rc)
			return nil
		case models.SignalComplete:
			if err := c.complete(rc, task); err != nil {
				return err
			}
		}

		if rc.Iteration >= rc.Budget {
			_, more, err := c.deps.Checklist.NextIncomplete()
			if err != nil {
				return fmt.Errorf("%w: select task: %w", ErrFaulted, err)
			}
			if !more {
				log.Success("All tasks completed! Exiting loop.")
				rc.Terminal = StateExhausted
				return nil
			}
			log.Highlight("Reached max iterations (%d)", rc.Budget)
			rc.Terminal = StateBudgetReached
			return nil
		}

		if !c.pause(ctx) {
			c.interrupted(rc)
			return nil
		}
	}
}

func (c *Controller) handOff(h models.Handoff) {
	log := c.deps.Log
	log.Rule("=", ruleWidth)
	log.Highlight("HAND-OFF")
	log.Rule("=", ruleWidth)
	log.Blank()
	log.Info("To process this task with your agent, run:")
	for _, hint := range h.Hints {
		log.Accent("  %s", hint)
	}
	log.Blank()
	log.Info("Or paste the packet into your agent session:")
	log.Rule("-", ruleWidth)
	log.Raw(h.Packet)
	log.Rule("-", ruleWidth)
}

func (c *Controller) complete(rc *RunContext, task string) error {
	log := c.deps.Log
	changed, err := c.deps.Checklist.MarkComplete(task)
	if err != nil {
		return fmt.Errorf("%w: record completion: %w", ErrFaulted, err)
	}
	if !changed {
		log.WithField("task", task).Warn("Task not found as incomplete; nothing recorded")
		c.audit(audit.ActionTaskComplete, map[string]string{"task": task}, audit.OutcomeNoop, rc.RunID, task)
		return nil
	}
	rc.Recorded++
	log.Success("Marked complete: %s", task)
	c.audit(audit.ActionTaskComplete, map[string]string{"task": task}, audit.OutcomeSuccess, rc.RunID, task)
	return nil
}

// pause waits between tasks. It reports false when ctx ended first.
func (c *Controller) pause(ctx context.Context) bool {
	if c.opts.Pause <= 0 {
		return ctx.Err() == nil
	}
	c.deps.Log.Accent("Pausing %s before next task...", c.opts.Pause)
	t := time.NewTimer(c.opts.Pause)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		c.deps.Log.Blank()
		return true
	}
}

func (c *Controller) interrupted(rc *RunContext) {
	c.deps.Log.Highlight("Loop stopped by user")
	rc.Terminal = StateInterrupted
}

func (c *Controller) recordIteration(rc *RunContext, h models.Handoff, signal models.Signal) {
	if c.deps.Ledger == nil || rc.RunID == "" {
		return
	}
	if _, err := c.deps.Ledger.RecordIteration(rc.RunID, h.Iteration, h.Task, h.PacketPath, signal); err != nil {
		c.deps.Log.WithError(err).Warn("Failed to record iteration")
	}
}

func (c *Controller) audit(action string, inputs any, outcome, runID, details string) {
	if c.deps.Auditor == nil || runID == "" {
		return
	}
	if _, err := c.deps.Auditor.Record(action, inputs, outcome, runID, details); err != nil {
		c.deps.Log.WithError(err).WithField("action", action).Warn("Failed to write audit record")
	}
}

func (c *Controller) summarize(rc *RunContext) Summary {
	log := c.deps.Log
	s := Summary{
		RunID:        rc.RunID,
		Outcome:      rc.Terminal.Outcome(),
		Iterations:   rc.Iteration,
		Handoffs:     rc.Handoffs,
		Recorded:     rc.Recorded,
		BackupBranch: rc.BackupBranch,
	}

	log.Blank()
	log.Rule("=", ruleWidth)
	log.Heading("LOOP COMPLETE (%s)", rc.Terminal)
	log.Rule("=", ruleWidth)

	progress, err := c.deps.Checklist.Counts()
	if err != nil {
		log.WithError(err).Warn("Could not recount tasks")
	} else {
		s.Progress = progress
		log.Infof("Final progress: %d completed, %d remaining", progress.Completed, progress.Remaining)
	}
	log.Infof("Total iterations: %d", rc.Iteration)
	log.Infof("Backup branch: %s", rc.BackupBranch)
	log.Blank()
	log.Info("Review your changes:")
	log.Accent("  git log --oneline --since='2 hours ago'")
	if rc.BackupBranch != DisabledBackup && rc.BackupBranch != "" {
		log.Accent("  git diff %s", rc.BackupBranch)
	}

	if c.deps.Ledger != nil && rc.RunID != "" {
		if err := c.deps.Ledger.FinishRun(rc.RunID, s.Outcome, rc.Iteration, s.Progress); err != nil {
			log.WithError(err).Warn("Failed to finish run record")
		}
	}
	c.audit(audit.ActionRunFinish, map[string]any{"outcome": s.Outcome, "iterations": rc.Iteration},
		outcomeResult(s.Outcome), rc.RunID, strings.ToLower(string(rc.Terminal)))
	return s
}

func outcomeResult(o models.RunOutcome) string {
	if o == models.OutcomeFaulted {
		return audit.OutcomeFailure
	}
	return audit.OutcomeSuccess
}
