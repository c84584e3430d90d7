package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fentz26/ralph/internal/agents"
	"github.com/fentz26/ralph/internal/await"
	"github.com/fentz26/ralph/internal/logging"
	"github.com/fentz26/ralph/internal/loop"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the checklist loop",
	Long: `Run walks the checklist: for each incomplete task it writes a work packet,
hands it off, and waits until you (or the agent) signal that the task is done.`,
	RunE: runLoop,
}

var (
	maxIterations int
	waitMode      string
	pauseFlag     time.Duration
	noBackup      bool
)

func init() {
	runCmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Iteration budget (default from config)")
	runCmd.Flags().StringVar(&waitMode, "wait", "", "How to wait for the agent: auto, prompt, tui, or watch")
	runCmd.Flags().DurationVar(&pauseFlag, "pause", 0, "Pause between tasks (default from config)")
	runCmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip the backup branch")
}

func runLoop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("max-iterations") {
		cfg.Loop.MaxIterations = maxIterations
	}
	if cmd.Flags().Changed("wait") {
		cfg.Wait.Mode = waitMode
	}
	if cmd.Flags().Changed("pause") {
		cfg.Loop.Pause = pauseFlag
	}
	if noBackup {
		cfg.Backup.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Nothing under .ralph is created until the checklist is known to exist.
	tasks := openChecklist(cfg)
	found, err := tasks.Exists()
	if err != nil {
		return fmt.Errorf("%w: %w", loop.ErrPreflight, err)
	}
	if !found {
		return fmt.Errorf("%w: task file not found: %s (run `ralph init` first)", loop.ErrPreflight, tasks.Path())
	}

	log, err := logging.New(logging.Options{Dir: cfg.LogDir(), Level: cfg.Logging.Level, Console: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	defer log.Close()
	if n := logging.CleanupOldLogs(log, cfg.LogDir(), cfg.Logging.RetentionDays, log.Path(), time.Now()); n > 0 {
		log.Debugf("Pruned %d old log files", n)
	}

	builder, err := newPacketBuilder(cfg)
	if err != nil {
		return err
	}
	awaiter, err := await.Select(cfg.Wait.Mode, await.Options{Selector: tasks, Poll: cfg.Wait.Poll})
	if err != nil {
		return err
	}

	detector := agents.NewDetector()
	for _, a := range detector.Scan() {
		log.WithField("path", a.Path).Debugf("Detected agent %s", a.Name)
	}

	deps := loop.Deps{
		Checklist: tasks,
		Packets:   builder,
		Awaiter:   awaiter,
		Hints:     detector.Hints,
		Log:       log,
	}
	if cfg.Backup.Enabled {
		deps.Backup = newBrancher(cfg)
	}

	ledger, auditor, err := openLedger(cfg)
	if err != nil {
		log.WithError(err).Warn("Run history disabled")
	} else {
		defer ledger.Close()
		deps.Ledger = ledger
		deps.Auditor = auditor
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctl := loop.NewController(deps, loop.Options{
		MaxIterations: cfg.Loop.MaxIterations,
		Pause:         cfg.Loop.Pause,
		ProjectDir:    cfg.ProjectDir,
	})
	summary, err := ctl.Run(ctx)
	if err != nil {
		return err
	}
	if log.Path() != "" {
		log.Infof("Log: %s", log.Path())
	}
	if summary.ExitCode() != 0 {
		return fmt.Errorf("run finished in state %s", summary.Outcome)
	}
	return nil
}
