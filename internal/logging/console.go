package logging

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

// ToneField is the entry field selecting console colour.
const ToneField = "tone"

// Tone picks the console style for an entry.
type Tone string

const (
	ToneHeading   Tone = "heading"
	ToneSuccess   Tone = "success"
	ToneHighlight Tone = "highlight"
	ToneAccent    Tone = "accent"
)

var (
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	accentColor  = lipgloss.Color("#6366F1")
)

// consoleHook mirrors entries to a writer, styled with lipgloss.
type consoleHook struct {
	mu     sync.Mutex
	out    io.Writer
	styles map[Tone]lipgloss.Style
	warn   lipgloss.Style
	err    lipgloss.Style
	plain  lipgloss.Style
}

func newConsoleHook(out io.Writer) *consoleHook {
	r := lipgloss.NewRenderer(out)
	return &consoleHook{
		out: out,
		styles: map[Tone]lipgloss.Style{
			ToneHeading:   r.NewStyle().Bold(true),
			ToneSuccess:   r.NewStyle().Foreground(successColor),
			ToneHighlight: r.NewStyle().Foreground(warningColor),
			ToneAccent:    r.NewStyle().Foreground(accentColor),
		},
		warn:  r.NewStyle().Foreground(warningColor),
		err:   r.NewStyle().Foreground(errorColor),
		plain: r.NewStyle(),
	}
}

func (h *consoleHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *consoleHook) Fire(entry *logrus.Entry) error {
	style := h.plain
	switch {
	case entry.Level <= logrus.ErrorLevel:
		style = h.err
	case entry.Level == logrus.WarnLevel:
		style = h.warn
	default:
		if tone, ok := entry.Data[ToneField].(Tone); ok {
			if s, ok := h.styles[tone]; ok {
				style = s
			}
		}
	}

	msg := entry.Message
	if msg != "" {
		msg = style.Render(msg)
	}
	if errVal, ok := entry.Data[logrus.ErrorKey]; ok {
		msg += " " + h.err.Render(fmt.Sprint(errVal))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.out, msg)
	return err
}
