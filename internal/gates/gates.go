// Package gates runs the configured quality checks (type-check, lint, build)
// through a connector and reports pass/fail with diagnostics. Results never
// touch the checklist.
package gates

import (
	"context"
	"fmt"
	"strings"

	"github.com/fentz26/ralph/internal/connectors"
	"github.com/fentz26/ralph/internal/models"
)

// Check is one named gate.
type Check struct {
	Name    string
	Command string
	Args    []string
}

// Runner executes gates in order.
type Runner struct {
	connector connectors.Connector
	checks    []Check
}

// NewRunner creates a gate runner.
func NewRunner(conn connectors.Connector, checks []Check) *Runner {
	return &Runner{connector: conn, checks: checks}
}

// Checks returns the configured gates.
func (r *Runner) Checks() []Check {
	return r.checks
}

// Run executes each gate in order, stopping at the first failure unless
// keepGoing is set. The returned slice holds one result per executed gate;
// err is only set when a gate could not be started at all.
func (r *Runner) Run(ctx context.Context, keepGoing bool, observe func(models.GateResult)) ([]models.GateResult, error) {
	var results []models.GateResult
	for _, check := range r.checks {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := r.connector.Execute(ctx, check.Command, check.Args)
		if err != nil {
			return results, fmt.Errorf("gate %s: %w", check.Name, err)
		}

		result := models.GateResult{
			Name:     check.Name,
			Command:  check.Command,
			Args:     check.Args,
			ExitCode: res.ExitCode,
			Passed:   res.ExitCode == 0,
			Output:   diagnostic(res),
		}
		results = append(results, result)
		if observe != nil {
			observe(result)
		}
		if !result.Passed && !keepGoing {
			break
		}
	}
	return results, nil
}

// Passed reports whether every result passed.
func Passed(results []models.GateResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// diagnostic prefers stderr and falls back to stdout for tools that report
// errors there.
func diagnostic(res *connectors.ExecResult) string {
	if s := strings.TrimSpace(res.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(res.Stdout)
}
