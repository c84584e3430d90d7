package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fentz26/ralph/internal/gates"
	"github.com/fentz26/ralph/internal/logging"
	"github.com/fentz26/ralph/internal/models"
	"github.com/fentz26/ralph/internal/packet"
	"github.com/spf13/cobra"
)

var gatesCmd = &cobra.Command{
	Use:   "gates",
	Short: "Run the quality gates",
	Args:  cobra.NoArgs,
	RunE:  runGates,
}

var gatesKeepGoing bool

func init() {
	gatesCmd.Flags().BoolVar(&gatesKeepGoing, "keep-going", false, "Run every gate even after a failure")
}

func runGates(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	log, err := consoleLogger(cfg, out)
	if err != nil {
		return err
	}
	runner := newGateRunner(cfg)
	if len(runner.Checks()) == 0 {
		log.Highlight("No quality gates configured")
		return nil
	}
	log.Heading("Running gates: %s", strings.Join(cfg.GateNames(), ", "))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := runner.Run(ctx, gatesKeepGoing, func(r models.GateResult) {
		reportGate(log, r)
	})
	if err != nil {
		return err
	}
	printGateResults(out, results)

	if ledger, auditor, err := openLedger(cfg); err == nil {
		defer ledger.Close()
		recordGates(log, ledger, auditor, results)
	} else {
		log.WithError(err).Warn("Gate results not recorded")
	}

	if !gates.Passed(results) {
		return fmt.Errorf("quality gates failed")
	}
	log.Success("All quality gates passed")
	return nil
}

func printGateResults(out io.Writer, results []models.GateResult) {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{r.Name, packet.GateCommand(r.Command, r.Args), strconv.Itoa(r.ExitCode), gateState(r)})
	}
	fmt.Fprintln(out, renderTable([]column{
		{Title: "GATE"},
		{Title: "COMMAND"},
		{Title: "EXIT", Numeric: true},
		{Title: "RESULT"},
	}, rows))
}

func gateState(r models.GateResult) string {
	if r.Passed {
		return "pass"
	}
	return "FAIL"
}

func reportGate(log *logging.Logger, r models.GateResult) {
	if r.Passed {
		log.Success("%s passed", r.Name)
		return
	}
	log.WithField("exit_code", r.ExitCode).Errorf("%s failed", r.Name)
	if r.Output != "" {
		log.Raw(r.Output)
	}
}
