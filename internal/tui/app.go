// Package tui provides the interactive terminal screen ralph shows while it
// waits for the external agent to finish a task.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fentz26/ralph/internal/models"
)

// chrome is the number of rows used around the packet viewport.
const chrome = 9

type interruptMsg struct{}

// App is the await screen model. It resolves to exactly one signal.
type App struct {
	handoff  models.Handoff
	viewport viewport.Model
	keys     keyMap
	help     help.Model
	width    int
	height   int
	signal   models.Signal
}

// New creates the await screen for one hand-off.
func New(h models.Handoff) *App {
	vp := viewport.New(80, 20)
	vp.SetContent(h.Packet)
	return &App{
		handoff:  h,
		viewport: vp,
		keys:     defaultKeyMap(),
		help:     help.New(),
		width:    80,
	}
}

// Signal returns the decision taken, or "" while undecided.
func (a *App) Signal() models.Signal {
	return a.signal
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, a.keys.Continue):
			a.signal = models.SignalContinue
			return a, tea.Quit
		case key.Matches(msg, a.keys.Complete):
			a.signal = models.SignalComplete
			return a, tea.Quit
		case key.Matches(msg, a.keys.Quit):
			a.signal = models.SignalInterrupt
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.viewport.Width = msg.Width
		a.viewport.Height = max(msg.Height-chrome, 3)
		a.help.Width = msg.Width

	case interruptMsg:
		a.signal = models.SignalInterrupt
		return a, tea.Quit
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder
	h := a.handoff

	header := titleStyle.Render("RALPH")
	header += "  " + progressStyle.Render(fmt.Sprintf("iteration %d/%d", h.Iteration, h.Budget))
	header += "  " + progressStyle.Render(fmt.Sprintf("%d done, %d remaining", h.Progress.Completed, h.Progress.Remaining))
	b.WriteString(header + "\n")
	b.WriteString(taskStyle.Render("▶ "+h.Task) + "\n")

	b.WriteString(panelStyle.Width(max(a.width-2, 10)).Render(a.viewport.View()) + "\n")

	for _, hint := range h.Hints {
		b.WriteString(hintStyle.Render("$ "+hint) + "\n")
	}

	status := fmt.Sprintf(" %s | %3.f%%", h.PacketPath, a.viewport.ScrollPercent()*100)
	b.WriteString(statusBarStyle.Width(a.width).Render(status) + "\n")
	b.WriteString(helpStyle.Render(a.help.View(a.keys)))

	return b.String()
}

// Run shows the await screen until a key decides. Cancelling ctx resolves
// to an interrupt.
func Run(ctx context.Context, h models.Handoff, opts ...tea.ProgramOption) (models.Signal, error) {
	a := New(h)
	p := tea.NewProgram(a, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			p.Send(interruptMsg{})
		case <-done:
		}
	}()

	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("await screen: %w", err)
	}
	if ctx.Err() != nil {
		return models.SignalInterrupt, nil
	}
	if m, ok := final.(*App); ok && m.signal != "" {
		return m.signal, nil
	}
	return models.SignalInterrupt, nil
}
