// Package logging writes ralph's run log: one timestamp-named file per run
// under the log directory, mirrored to the console with colour.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// FilePrefix and FileSuffix frame every run log file name.
const (
	FilePrefix = "autonomous_"
	FileSuffix = ".log"
)

// Options describes logger construction parameters.
type Options struct {
	// Dir receives the run log file. Empty disables file output.
	Dir string
	// Level is a logrus level name; empty means info.
	Level string
	// Console mirrors every entry. Nil means os.Stdout.
	Console io.Writer
	// Now overrides the clock used to name the file.
	Now func() time.Time
}

// Logger is a logrus logger bound to a single run log file.
type Logger struct {
	*logrus.Logger
	file    *os.File
	path    string
	console io.Writer
}

// New creates the run log file (when Dir is set) and the console mirror.
func New(opts Options) (*Logger, error) {
	level := logrus.InfoLevel
	if strings.TrimSpace(opts.Level) != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		level = parsed
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	lr := logrus.New()
	lr.SetLevel(level)
	lr.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableColors:   true,
	})
	lr.SetOutput(io.Discard)

	l := &Logger{Logger: lr, console: console}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		l.path = filepath.Join(opts.Dir, FileName(now()))
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = f
		lr.SetOutput(f)
	}

	lr.AddHook(newConsoleHook(console))
	return l, nil
}

// FileName returns the run log file name for a run started at t.
func FileName(t time.Time) string {
	return FilePrefix + t.Format("20060102_150405") + FileSuffix
}

// Path returns the run log file, or "" when file output is disabled.
func (l *Logger) Path() string {
	return l.path
}

// Close releases the log file.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) toned(tone Tone, format string, args ...any) {
	l.WithField(ToneField, tone).Infof(format, args...)
}

// Heading logs a bold line.
func (l *Logger) Heading(format string, args ...any) { l.toned(ToneHeading, format, args...) }

// Success logs a green line.
func (l *Logger) Success(format string, args ...any) { l.toned(ToneSuccess, format, args...) }

// Highlight logs a yellow line.
func (l *Logger) Highlight(format string, args ...any) { l.toned(ToneHighlight, format, args...) }

// Accent logs a blue line.
func (l *Logger) Accent(format string, args ...any) { l.toned(ToneAccent, format, args...) }

// Rule logs a horizontal rule of width repetitions of ch.
func (l *Logger) Rule(ch string, width int) {
	l.toned(ToneHeading, "%s", strings.Repeat(ch, width))
}

// Blank logs an empty line.
func (l *Logger) Blank() {
	l.Info("")
}

// Raw writes text to the console only. Used for bulky content such as the
// packet body that is already persisted elsewhere.
func (l *Logger) Raw(text string) {
	fmt.Fprint(l.console, text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(l.console)
	}
}
