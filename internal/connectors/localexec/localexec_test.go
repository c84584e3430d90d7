package localexec

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func testAllowlist() Allowlist {
	a := Allowlist{}
	a.Allow("npm", []string{"run", "type-check"})
	a.Allow("npm", []string{"run", "lint"})
	a.Allow("git", []string{"branch", "backup/x"})
	a.Allow("go", []string{"test", "./..."})
	return a
}

func TestIsAllowed(t *testing.T) {
	exec := New("", testAllowlist())

	tests := []struct {
		cmd     string
		args    []string
		allowed bool
	}{
		{"npm", []string{"run", "lint"}, true},
		{"npm", []string{"run", "type-check"}, true},
		{"npm", []string{"run", "build"}, false}, // different script
		{"npm", []string{"install"}, false},
		{"git", []string{"branch", "anything"}, true},
		{"git", []string{"push"}, false},    // not in allowlist
		{"rm", []string{"-rf", "/"}, false}, // not in allowlist
		{"go", []string{"test", "./pkg"}, true},
		{"go", []string{}, false},           // no subcommand
		{"unknown", []string{"cmd"}, false}, // unknown command
	}

	for _, tt := range tests {
		t.Run(tt.cmd+" "+strings.Join(tt.args, " "), func(t *testing.T) {
			got := exec.IsAllowed(tt.cmd, tt.args)
			if got != tt.allowed {
				t.Errorf("IsAllowed(%s, %v) = %v, want %v", tt.cmd, tt.args, got, tt.allowed)
			}
		})
	}
}

func TestAllowWithoutArgs(t *testing.T) {
	a := Allowlist{}
	a.Allow("make", nil)
	a.Allow("make", nil)
	if len(a["make"]) != 1 {
		t.Errorf("Expected duplicate Allow to be ignored, got %v", a["make"])
	}

	l := New("", a)
	if !l.IsAllowed("make", nil) {
		t.Error("Expected bare make to be allowed")
	}
	if l.IsAllowed("make", []string{"clean"}) {
		t.Error("Expected make clean to be rejected")
	}
}

func TestExecute_NotAllowed(t *testing.T) {
	l := New("", testAllowlist())

	_, err := l.Execute(context.Background(), "rm", []string{"-rf", "/"})
	if !errors.Is(err, ErrNotAllowed) {
		t.Errorf("Expected ErrNotAllowed, got %v", err)
	}
}

func TestExecute_ExitCode(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	a := Allowlist{}
	a.Allow("sh", []string{"-c"})
	l := New(t.TempDir(), a)

	result, err := l.Execute(context.Background(), "sh", []string{"-c", "echo out; echo err >&2; exit 3"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("Expected exit code 3, got %d", result.ExitCode)
	}
	if strings.TrimSpace(result.Stdout) != "out" {
		t.Errorf("Unexpected stdout %q", result.Stdout)
	}
	if strings.TrimSpace(result.Stderr) != "err" {
		t.Errorf("Unexpected stderr %q", result.Stderr)
	}
}

func TestName(t *testing.T) {
	l := New("", nil)
	if l.Name() != "localexec" {
		t.Errorf("Expected name 'localexec', got %s", l.Name())
	}
}
