package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fentz26/ralph/internal/audit"
	"github.com/fentz26/ralph/internal/gates"
	"github.com/fentz26/ralph/internal/models"
	"github.com/spf13/cobra"
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Print the next incomplete task",
	Args:  cobra.NoArgs,
	RunE:  runNext,
}

var doneCmd = &cobra.Command{
	Use:   "done [description]",
	Short: "Mark a task complete",
	Long: `Done marks the first incomplete task whose text matches description.
Without a description it marks the next incomplete task.`,
	RunE: runDone,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show checklist progress",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var packetCmd = &cobra.Command{
	Use:   "packet [description]",
	Short: "Render the work packet for a task",
	Long:  `Packet renders the work packet for description, or for the next incomplete task.`,
	RunE:  runPacket,
}

var (
	doneWithGates bool
	statusAll     bool
	packetWrite   bool
)

func init() {
	doneCmd.Flags().BoolVar(&doneWithGates, "gates", false, "Run quality gates first and only mark the task when they pass")
	statusCmd.Flags().BoolVar(&statusAll, "all", false, "List completed tasks too")
	packetCmd.Flags().BoolVar(&packetWrite, "write", false, "Also write the packet to the scratch file")
}

func runNext(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	task, ok, err := openChecklist(cfg).NextIncomplete()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "All tasks completed")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), task)
	return nil
}

func runDone(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := consoleLogger(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	tasks := openChecklist(cfg)

	description := strings.Join(args, " ")
	if description == "" {
		next, ok, err := tasks.NextIncomplete()
		if err != nil {
			return err
		}
		if !ok {
			log.Success("All tasks completed")
			return nil
		}
		description = next
	}

	ledger, auditor, ledgerErr := openLedger(cfg)
	if ledgerErr != nil {
		log.WithError(ledgerErr).Warn("Completion not recorded in history")
	} else {
		defer ledger.Close()
	}

	if doneWithGates {
		results, err := newGateRunner(cfg).Run(cmd.Context(), false, func(r models.GateResult) {
			reportGate(log, r)
		})
		if err != nil {
			return err
		}
		if ledgerErr == nil {
			recordGates(log, ledger, auditor, results)
		}
		if !gates.Passed(results) {
			return fmt.Errorf("quality gates failed; %q not marked complete", description)
		}
	}

	changed, err := tasks.MarkComplete(description)
	if err != nil {
		return err
	}
	outcome := audit.OutcomeSuccess
	if changed {
		log.Success("Marked complete: %s", description)
	} else {
		outcome = audit.OutcomeNoop
		log.WithField("task", description).Warn("No incomplete task matches; nothing recorded")
	}
	if ledgerErr == nil {
		runID, err := ledger.ActiveRunID()
		if err != nil {
			log.WithError(err).Warn("Could not look up the active run")
		}
		if _, err := auditor.Record(audit.ActionTaskComplete, map[string]string{"task": description}, outcome, runID, description); err != nil {
			log.WithError(err).Warn("Failed to write audit record")
		}
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tasks := openChecklist(cfg)
	entries, err := tasks.Entries()
	if err != nil {
		return err
	}
	progress, err := tasks.Counts()
	if err != nil {
		return err
	}

	var rows [][]string
	next := true
	for _, e := range entries {
		state := "todo"
		if e.Done {
			state = "done"
			if !statusAll {
				continue
			}
		} else if next {
			state = "next"
			next = false
		}
		rows = append(rows, []string{strconv.Itoa(e.Line), state, truncate(e.Description, 70)})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Checklist: %s\n", tasks.Path())
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]column{{Title: "LINE", Numeric: true}, {Title: "STATE"}, {Title: "TASK"}}, rows))
	}
	fmt.Fprintf(out, "Progress: %d/%d completed, %d remaining\n", progress.Completed, progress.Total(), progress.Remaining)
	return nil
}

func runPacket(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	description := strings.Join(args, " ")
	if description == "" {
		next, ok, err := openChecklist(cfg).NextIncomplete()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no incomplete task to render")
		}
		description = next
	}

	builder, err := newPacketBuilder(cfg)
	if err != nil {
		return err
	}
	text, err := builder.Build(description)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, text)
	if packetWrite {
		path, err := builder.Persist(text)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nWritten to %s\n", path)
	}
	return nil
}
