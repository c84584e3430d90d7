// Package localexec provides a local command executor with an allowlist.
package localexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/fentz26/ralph/internal/connectors"
)

// ErrNotAllowed is returned when a command is outside the allowlist.
var ErrNotAllowed = errors.New("command not allowed")

// Allowlist maps an executable to the first arguments it may be run with.
type Allowlist map[string][]string

// Allow permits cmd whenever it is invoked with args' subcommand.
func (a Allowlist) Allow(cmd string, args []string) {
	sub := subcommand(args)
	for _, existing := range a[cmd] {
		if existing == sub {
			return
		}
	}
	a[cmd] = append(a[cmd], sub)
}

// subcommand is the allowlist key for args: the first argument, or the first
// two when the first is "run" so "npm run lint" and "npm run build" are
// distinct entries.
func subcommand(args []string) string {
	if len(args) == 0 {
		return ""
	}
	if args[0] == "run" && len(args) > 1 {
		return "run " + args[1]
	}
	return args[0]
}

// LocalExec implements the Connector interface for local command execution.
type LocalExec struct {
	workDir string
	allowed Allowlist
}

// New creates a new LocalExec connector running commands in workDir.
func New(workDir string, allowed Allowlist) *LocalExec {
	if allowed == nil {
		allowed = Allowlist{}
	}
	return &LocalExec{workDir: workDir, allowed: allowed}
}

// Name returns the connector identifier.
func (l *LocalExec) Name() string {
	return "localexec"
}

// IsAllowed checks if a command is in the allowlist.
func (l *LocalExec) IsAllowed(cmd string, args []string) bool {
	allowedSubcmds, ok := l.allowed[cmd]
	if !ok {
		return false
	}

	subcmd := subcommand(args)
	for _, allowed := range allowedSubcmds {
		if subcmd == allowed {
			return true
		}
	}
	return false
}

// Execute runs a command if it's in the allowlist.
func (l *LocalExec) Execute(ctx context.Context, cmd string, args []string) (*connectors.ExecResult, error) {
	if !l.IsAllowed(cmd, args) {
		return nil, fmt.Errorf("%w: %s %s", ErrNotAllowed, cmd, strings.Join(args, " "))
	}

	execCmd := exec.CommandContext(ctx, cmd, args...)
	if l.workDir != "" {
		execCmd.Dir = l.workDir
	}

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	err := execCmd.Run()

	exitCode := 0
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			exitCode = exitError.ExitCode()
		} else {
			return nil, fmt.Errorf("exec error: %w", err)
		}
	}

	return &connectors.ExecResult{
		Command:  cmd,
		Args:     args,
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
