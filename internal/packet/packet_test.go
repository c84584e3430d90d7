package packet

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testContext() Context {
	return Context{
		Mission:        "Complete this specific task as part of building a native app.",
		WebAppLocation: "/src/web",
		TaskFile:       ".ralph/fix_plan.md",
		PromptFile:     ".ralph/PROMPT.md",
		APIReference:   ".ralph/specs/api-integration.md",
		Gates:          []string{"npm run type-check", "npm run lint"},
		Principles:     []string{"**Mobile-First**: Optimize for small screens"},
		Standards:      []string{"Build successfully"},
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	b, err := NewBuilder(testContext(), filepath.Join(t.TempDir(), "p.md"))
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}

	first, err := b.Build("Add login screen")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	second, err := b.Build("Add login screen")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if first != second {
		t.Error("Build produced different output for the same description")
	}

	other, _ := b.Build("Add signup screen")
	if other == first {
		t.Error("Different descriptions should produce different packets")
	}
}

func TestBuildContent(t *testing.T) {
	b, err := NewBuilder(testContext(), "")
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}
	text, err := b.Build("Add login screen")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	wants := []string{
		"# Implement Task: Add login screen\n",
		"- **Web App Location**: `/src/web`",
		"- **Task List**: `.ralph/fix_plan.md`",
		"- **API Reference**: `.ralph/specs/api-integration.md`",
		"   - Run: `npm run type-check` (must pass)",
		"   - Run: `npm run lint` (must pass)",
		`commit with message: "feat: Add login screen"`,
		"## Design Principles\n\n- **Mobile-First**",
		"- Build successfully",
		"mark this task: `- [x] Add login screen`",
	}
	for _, want := range wants {
		if !strings.Contains(text, want) {
			t.Errorf("Packet missing %q\n---\n%s", want, text)
		}
	}
	if strings.Contains(text, "**Requirements**") {
		t.Error("Empty requirements reference should be omitted")
	}
	if !strings.HasSuffix(text, "\n") {
		t.Error("Packet should end with a newline")
	}
}

func TestBuildWithoutGates(t *testing.T) {
	ctx := testContext()
	ctx.Gates = nil
	b, _ := NewBuilder(ctx, "")
	text, err := b.Build("x")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !strings.Contains(text, "none configured") {
		t.Error("Expected placeholder for missing gates")
	}
}

func TestPersistOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ".current_task.md")
	b, _ := NewBuilder(testContext(), path)

	if _, err := b.Persist("first packet\n"); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	got, err := b.Persist("second\n")
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if got != path {
		t.Errorf("Persist returned %s, want %s", got, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read packet: %v", err)
	}
	if string(data) != "second\n" {
		t.Errorf("Expected packet to be overwritten, got %q", data)
	}
}

func TestGateCommand(t *testing.T) {
	if got := GateCommand("npm", []string{"run", "lint"}); got != "npm run lint" {
		t.Errorf("GateCommand = %q", got)
	}
	if got := GateCommand("make", nil); got != "make" {
		t.Errorf("GateCommand = %q", got)
	}
}
