// Package packet renders the work packet handed to the external agent for a
// single checklist task and persists it to the scratch file.
package packet

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/task.md.tmpl
var taskTemplate string

// Context is the static, task-independent content of every packet.
type Context struct {
	Mission        string
	WebAppLocation string
	TaskFile       string
	PromptFile     string
	APIReference   string
	Requirements   string
	Gates          []string // rendered command lines, e.g. "npm run lint"
	Principles     []string
	Standards      []string
}

type view struct {
	Context
	Task string
}

// Builder renders packets from a fixed template and context.
type Builder struct {
	ctx  Context
	path string
	tmpl *template.Template
}

// NewBuilder parses the embedded template. path is the scratch file packets
// are persisted to.
func NewBuilder(ctx Context, path string) (*Builder, error) {
	tmpl, err := template.New("task").Option("missingkey=error").Parse(taskTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse packet template: %w", err)
	}
	return &Builder{ctx: ctx, path: path, tmpl: tmpl}, nil
}

// Path returns the scratch file location.
func (b *Builder) Path() string {
	return b.path
}

// Build renders the packet for description. The output depends only on
// description and the builder's context.
func (b *Builder) Build(description string) (string, error) {
	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, view{Context: b.ctx, Task: description}); err != nil {
		return "", fmt.Errorf("render packet: %w", err)
	}
	out := buf.String()
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out, nil
}

// Persist overwrites the scratch file with text and returns its path.
func (b *Builder) Persist(text string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return "", fmt.Errorf("create packet directory: %w", err)
	}
	if err := os.WriteFile(b.path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write packet: %w", err)
	}
	return b.path, nil
}

// GateCommand formats a gate invocation for display in a packet.
func GateCommand(command string, args []string) string {
	if len(args) == 0 {
		return command
	}
	return command + " " + strings.Join(args, " ")
}
