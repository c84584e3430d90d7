package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Loop.MaxIterations != 100 {
		t.Errorf("Expected default max iterations 100, got %d", cfg.Loop.MaxIterations)
	}
	if cfg.Loop.Pause != 5*time.Second {
		t.Errorf("Expected default pause 5s, got %v", cfg.Loop.Pause)
	}
	if got, want := cfg.TaskFile(), filepath.Join(dir, ".ralph", "fix_plan.md"); got != want {
		t.Errorf("TaskFile() = %s, want %s", got, want)
	}
	if got := strings.Join(cfg.GateNames(), ","); got != "Type Check,Lint,Build" {
		t.Errorf("Unexpected default gates: %s", got)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, Dir), 0o755); err != nil {
		t.Fatal(err)
	}
	yamlBody := `
loop:
  max_iterations: 3
  pause: 250ms
wait:
  mode: watch
  poll: 1s
paths:
  task_file: /abs/tasks.md
gates:
  - name: Test
    command: go
    args: [test, ./...]
`
	if err := os.WriteFile(filepath.Join(dir, Dir, FileName), []byte(yamlBody), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Loop.MaxIterations != 3 {
		t.Errorf("Expected 3 iterations, got %d", cfg.Loop.MaxIterations)
	}
	if cfg.Loop.Pause != 250*time.Millisecond {
		t.Errorf("Expected 250ms pause, got %v", cfg.Loop.Pause)
	}
	if cfg.Wait.Mode != WaitWatch {
		t.Errorf("Expected watch mode, got %s", cfg.Wait.Mode)
	}
	if cfg.TaskFile() != "/abs/tasks.md" {
		t.Errorf("Absolute task file should not be joined, got %s", cfg.TaskFile())
	}
	if len(cfg.Gates) != 1 || cfg.Gates[0].Command != "go" {
		t.Errorf("Gates not overridden: %+v", cfg.Gates)
	}
	// untouched sections keep defaults
	if !cfg.Backup.Enabled {
		t.Error("Expected backup to stay enabled")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero iterations", func(c *Config) { c.Loop.MaxIterations = 0 }, true},
		{"negative pause", func(c *Config) { c.Loop.Pause = -time.Second }, true},
		{"bad wait mode", func(c *Config) { c.Wait.Mode = "sleep" }, true},
		{"watch without poll", func(c *Config) { c.Wait.Mode = WaitWatch; c.Wait.Poll = 0 }, true},
		{"empty task file", func(c *Config) { c.Paths.TaskFile = " " }, true},
		{"backup without prefix", func(c *Config) { c.Backup.Prefix = "" }, true},
		{"backup disabled without prefix", func(c *Config) { c.Backup.Enabled = false; c.Backup.Prefix = "" }, false},
		{"gate without command", func(c *Config) { c.Gates = []Gate{{Name: "x"}} }, true},
		{"duplicate gate", func(c *Config) { c.Gates = append(c.Gates, c.Gates[0]) }, true},
		{"no gates", func(c *Config) { c.Gates = nil }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("loop: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(t.TempDir(), path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, Dir, FileName)

	cfg := DefaultConfig()
	cfg.Loop.MaxIterations = 7
	cfg.Loop.Pause = 2 * time.Second
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(dir, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Loop.MaxIterations != 7 || loaded.Loop.Pause != 2*time.Second {
		t.Errorf("Unexpected loop config after reload: %+v", loaded.Loop)
	}
}

func TestInitProjectDir(t *testing.T) {
	dir := t.TempDir()

	created, err := InitProjectDir(dir)
	if err != nil {
		t.Fatalf("InitProjectDir failed: %v", err)
	}
	if len(created) != 2 {
		t.Errorf("Expected config and checklist to be created, got %v", created)
	}
	for _, p := range []string{
		filepath.Join(dir, ".ralph", "specs"),
		filepath.Join(dir, ".ralph", "logs"),
		filepath.Join(dir, ".ralph", "fix_plan.md"),
		filepath.Join(dir, ".ralph", "config.yaml"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("Expected %s to exist: %v", p, err)
		}
	}

	skeleton, err := os.ReadFile(filepath.Join(dir, ".ralph", "fix_plan.md"))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(skeleton), "- [ ]"); n != 1 {
		t.Errorf("Skeleton should hold exactly one open task marker, got %d", n)
	}
	if strings.Contains(string(skeleton), "- [x]") {
		t.Error("Skeleton should hold no complete markers")
	}

	// second call leaves existing files alone
	created, err = InitProjectDir(dir)
	if err != nil {
		t.Fatalf("second InitProjectDir failed: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("Expected nothing created on second call, got %v", created)
	}
}
