package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fentz26/ralph/internal/models"
	"github.com/fentz26/ralph/internal/packet"
	"github.com/fentz26/ralph/internal/store"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show past runs, or the iterations, gates and decisions of one run",
	Long: `History lists recent loop runs. Given a run id (or a unique prefix of one)
it shows that run's iterations, the quality gates run while it was active and
its decision records. With --gates it lists recent gate results instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var (
	historyLimit int
	historyGates bool
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of rows to list")
	historyCmd.Flags().BoolVar(&historyGates, "gates", false, "List recent quality gate results")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ledger, _, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer ledger.Close()

	out := cmd.OutOrStdout()
	switch {
	case len(args) == 1:
		return showRun(out, ledger, args[0])
	case historyGates:
		return listGates(out, ledger)
	}

	runs, err := ledger.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		outcome := string(r.Outcome)
		if outcome == "" {
			outcome = "running"
		}
		progress := models.Progress{Completed: r.Completed, Remaining: r.Remaining}
		rows = append(rows, []string{
			truncateID(r.ID),
			r.StartedAt.Local().Format(time.DateTime),
			outcome,
			strconv.Itoa(r.Iterations),
			fmt.Sprintf("%d/%d", progress.Completed, progress.Total()),
			r.BackupBranch,
		})
	}
	fmt.Fprintln(out, renderTable([]column{
		{Title: "RUN"},
		{Title: "STARTED"},
		{Title: "OUTCOME"},
		{Title: "ITER", Numeric: true},
		{Title: "DONE", Numeric: true},
		{Title: "BACKUP"},
	}, rows))
	return nil
}

func showRun(out io.Writer, ledger *store.Store, id string) error {
	full, err := ledger.ResolveRunID(id)
	if err != nil {
		return fmt.Errorf("run %s: %w", id, err)
	}
	run, err := ledger.GetRun(full)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Run:        %s\n", run.ID)
	fmt.Fprintf(out, "Started:    %s\n", run.StartedAt.Local().Format(time.DateTime))
	if !run.EndedAt.IsZero() {
		fmt.Fprintf(out, "Ended:      %s\n", run.EndedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintf(out, "Outcome:    %s\n", run.Outcome)
	fmt.Fprintf(out, "Backup:     %s\n", run.BackupBranch)
	fmt.Fprintf(out, "Progress:   %d completed, %d remaining\n", run.Completed, run.Remaining)

	its, err := ledger.ListIterations(run.ID)
	if err != nil {
		return err
	}
	if len(its) > 0 {
		rows := make([][]string, 0, len(its))
		for _, it := range its {
			rows = append(rows, []string{strconv.Itoa(it.Number), string(it.Signal), truncate(it.Task, 60)})
		}
		fmt.Fprintln(out, renderTable([]column{{Title: "#", Numeric: true}, {Title: "SIGNAL"}, {Title: "TASK"}}, rows))
	}

	results, err := ledger.ListGateResults(run.ID, 0)
	if err != nil {
		return err
	}
	if len(results) > 0 {
		fmt.Fprintln(out, "Quality gates:")
		printGateHistory(out, results)
	}

	decisions, err := ledger.ListPDR(run.ID, 0)
	if err != nil {
		return err
	}
	if len(decisions) > 0 {
		rows := make([][]string, 0, len(decisions))
		for _, d := range decisions {
			rows = append(rows, []string{
				d.Timestamp.Local().Format(time.TimeOnly),
				d.Action,
				d.Outcome,
				truncate(d.Details, 50),
			})
		}
		fmt.Fprintln(out, "Decisions:")
		fmt.Fprintln(out, renderTable([]column{{Title: "TIME"}, {Title: "ACTION"}, {Title: "OUTCOME"}, {Title: "DETAILS"}}, rows))
	}
	return nil
}

func listGates(out io.Writer, ledger *store.Store) error {
	results, err := ledger.ListGateResults("", historyLimit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "No gate results recorded")
		return nil
	}
	printGateHistory(out, results)
	return nil
}

func printGateHistory(out io.Writer, results []models.GateResult) {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		run := "-"
		if r.RunID != "" {
			run = truncateID(r.RunID)
		}
		rows = append(rows, []string{
			r.CreatedAt.Local().Format(time.DateTime),
			run,
			r.Name,
			packet.GateCommand(r.Command, r.Args),
			gateState(r),
		})
	}
	fmt.Fprintln(out, renderTable([]column{
		{Title: "WHEN"},
		{Title: "RUN"},
		{Title: "GATE"},
		{Title: "COMMAND"},
		{Title: "RESULT"},
	}, rows))
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
