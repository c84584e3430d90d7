// Package config holds ralph's runtime configuration and the .ralph
// project directory layout.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Dir is the per-project directory ralph works in.
	Dir = ".ralph"
	// FileName is the config file inside Dir.
	FileName = "config.yaml"
)

// Wait modes for the suspension point.
const (
	WaitAuto   = "auto"
	WaitPrompt = "prompt"
	WaitTUI    = "tui"
	WaitWatch  = "watch"
)

// Paths locates every file ralph reads or writes. Relative values are
// resolved against the project directory.
type Paths struct {
	TaskFile   string `yaml:"task_file"`
	PromptFile string `yaml:"prompt_file"`
	SpecsDir   string `yaml:"specs_dir"`
	LogDir     string `yaml:"log_dir"`
	PacketFile string `yaml:"packet_file"`
	HistoryDB  string `yaml:"history_db"`
}

// Loop bounds a single run.
type Loop struct {
	MaxIterations int           `yaml:"max_iterations"`
	Pause         time.Duration `yaml:"pause"`
}

// Wait selects how the loop suspends for the external agent.
type Wait struct {
	Mode string        `yaml:"mode"`
	Poll time.Duration `yaml:"poll"`
}

// Backup controls the pre-run safety branch.
type Backup struct {
	Enabled bool   `yaml:"enabled"`
	Prefix  string `yaml:"prefix"`
}

// Gate is one named quality check.
type Gate struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// Packet is the static context rendered into every work packet.
type Packet struct {
	Mission        string   `yaml:"mission"`
	WebAppLocation string   `yaml:"web_app_location"`
	APIReference   string   `yaml:"api_reference"`
	Requirements   string   `yaml:"requirements"`
	Principles     []string `yaml:"principles"`
	Standards      []string `yaml:"standards"`
}

// Logging configures the per-run log file.
type Logging struct {
	Level         string `yaml:"level"`
	RetentionDays int    `yaml:"retention_days"`
}

// Config holds the runtime configuration for ralph.
type Config struct {
	// ProjectDir is the directory ralph was started from. Not persisted.
	ProjectDir string `yaml:"-"`

	Paths   Paths   `yaml:"paths"`
	Loop    Loop    `yaml:"loop"`
	Wait    Wait    `yaml:"wait"`
	Backup  Backup  `yaml:"backup"`
	Gates   []Gate  `yaml:"gates"`
	Packet  Packet  `yaml:"packet"`
	Logging Logging `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Paths: Paths{
			TaskFile:   filepath.Join(Dir, "fix_plan.md"),
			PromptFile: filepath.Join(Dir, "PROMPT.md"),
			SpecsDir:   filepath.Join(Dir, "specs"),
			LogDir:     filepath.Join(Dir, "logs"),
			PacketFile: filepath.Join(Dir, ".current_task.md"),
			HistoryDB:  filepath.Join(Dir, "history.db"),
		},
		Loop: Loop{
			MaxIterations: 100,
			Pause:         5 * time.Second,
		},
		Wait: Wait{
			Mode: WaitAuto,
			Poll: 2 * time.Second,
		},
		Backup: Backup{
			Enabled: true,
			Prefix:  "backup/claude-loop-",
		},
		Gates: []Gate{
			{Name: "Type Check", Command: "npm", Args: []string{"run", "type-check"}},
			{Name: "Lint", Command: "npm", Args: []string{"run", "lint"}},
			{Name: "Build", Command: "npm", Args: []string{"run", "build"}},
		},
		Packet: Packet{
			Mission:      "Complete this specific task as part of building the application.",
			APIReference: filepath.Join(Dir, "specs", "api-integration.md"),
			Requirements: filepath.Join(Dir, "specs", "requirements.md"),
			Principles: []string{
				"**Port, Don't Rewrite**: Copy and adapt from existing code",
				"**Code Reuse**: Use existing components, stores, and services",
			},
			Standards: []string{
				"Pass type checking",
				"Pass lint checks",
				"Build successfully",
				"Follow patterns in existing codebase",
			},
		},
		Logging: Logging{
			Level:         "info",
			RetentionDays: 14,
		},
	}
}

// Load reads the config file for projectDir. A missing file yields the
// defaults. path may be empty, in which case .ralph/config.yaml is used.
func Load(projectDir, path string) (*Config, error) {
	if path == "" {
		path = filepath.Join(projectDir, Dir, FileName)
	}

	cfg := DefaultConfig()
	cfg.ProjectDir = projectDir

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories if needed.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Loop.MaxIterations < 1 {
		return fmt.Errorf("loop.max_iterations must be at least 1")
	}
	if c.Loop.Pause < 0 {
		return fmt.Errorf("loop.pause must not be negative")
	}
	switch c.Wait.Mode {
	case WaitAuto, WaitPrompt, WaitTUI, WaitWatch:
	default:
		return fmt.Errorf("invalid wait.mode %q, must be: auto, prompt, tui, or watch", c.Wait.Mode)
	}
	if c.Wait.Mode == WaitWatch && c.Wait.Poll <= 0 {
		return fmt.Errorf("wait.poll must be positive in watch mode")
	}
	if strings.TrimSpace(c.Paths.TaskFile) == "" {
		return fmt.Errorf("paths.task_file is required")
	}
	if strings.TrimSpace(c.Paths.PacketFile) == "" {
		return fmt.Errorf("paths.packet_file is required")
	}
	if c.Backup.Enabled && strings.TrimSpace(c.Backup.Prefix) == "" {
		return fmt.Errorf("backup.prefix is required when backups are enabled")
	}
	seen := make(map[string]bool, len(c.Gates))
	for i, g := range c.Gates {
		if strings.TrimSpace(g.Name) == "" || strings.TrimSpace(g.Command) == "" {
			return fmt.Errorf("gates[%d]: name and command are required", i)
		}
		if seen[g.Name] {
			return fmt.Errorf("gates[%d]: duplicate gate name %q", i, g.Name)
		}
		seen[g.Name] = true
	}
	if c.Logging.RetentionDays < 0 {
		return fmt.Errorf("logging.retention_days must not be negative")
	}
	return nil
}

// Resolve returns p joined to the project directory unless it is absolute.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.ProjectDir, p)
}

// TaskFile returns the absolute checklist path.
func (c *Config) TaskFile() string { return c.Resolve(c.Paths.TaskFile) }

// PacketFile returns the absolute work packet path.
func (c *Config) PacketFile() string { return c.Resolve(c.Paths.PacketFile) }

// LogDir returns the absolute log directory.
func (c *Config) LogDir() string { return c.Resolve(c.Paths.LogDir) }

// HistoryDB returns the absolute ledger path.
func (c *Config) HistoryDB() string { return c.Resolve(c.Paths.HistoryDB) }

// GateNames lists configured gate names in order.
func (c *Config) GateNames() []string {
	names := make([]string, 0, len(c.Gates))
	for _, g := range c.Gates {
		names = append(names, g.Name)
	}
	return names
}

const checklistSkeleton = `# Fix Plan

Tasks are worked top to bottom. Tick a task's box when it is done.

- [ ] Replace this line with the first task
`

// InitProjectDir creates the .ralph directory tree under projectDir and
// writes a default config and checklist skeleton when they are missing.
//
// Structure created:
// .ralph/
// ├── config.yaml
// ├── fix_plan.md
// ├── specs/
// └── logs/
func InitProjectDir(projectDir string) ([]string, error) {
	cfg := DefaultConfig()
	cfg.ProjectDir = projectDir

	dirs := []string{
		filepath.Join(projectDir, Dir),
		cfg.Resolve(cfg.Paths.SpecsDir),
		cfg.LogDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	var created []string
	cfgPath := filepath.Join(projectDir, Dir, FileName)
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		if err := Save(cfgPath, cfg); err != nil {
			return nil, err
		}
		created = append(created, cfgPath)
	}

	taskFile := cfg.TaskFile()
	if _, err := os.Stat(taskFile); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(taskFile, []byte(checklistSkeleton), 0o644); err != nil {
			return nil, fmt.Errorf("writing checklist skeleton: %w", err)
		}
		created = append(created, taskFile)
	}
	return created, nil
}
