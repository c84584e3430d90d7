// Package agents detects the AI coding CLIs installed on this machine and
// builds the hand-off commands that feed them the current packet file.
package agents

import (
	"os/exec"
	"strings"
)

// Agent represents an AI tool the packet can be handed to.
type Agent struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Binary string `json:"binary"`
	Path   string `json:"path,omitempty"`
	// HandOff is the argument template; {file} is replaced by the packet path.
	HandOff []string `json:"hand_off"`
}

// Command returns the shell line that hands packetPath to the agent.
func (a Agent) Command(packetPath string) string {
	parts := []string{a.Binary}
	for _, arg := range a.HandOff {
		parts = append(parts, strings.ReplaceAll(arg, "{file}", packetPath))
	}
	return strings.Join(parts, " ")
}

// Known lists the agents ralph knows how to hand a packet to, in preference
// order. The first entry is the fallback hint when nothing is installed.
var Known = []Agent{
	{ID: "claude-cli", Name: "Claude CLI", Binary: "claude", HandOff: []string{"ask", "--file", "{file}"}},
	{ID: "aider", Name: "Aider", Binary: "aider", HandOff: []string{"--message-file", "{file}"}},
	{ID: "codex", Name: "Codex CLI", Binary: "codex", HandOff: []string{`"$(cat {file})"`}},
	{ID: "gemini", Name: "Gemini CLI", Binary: "gemini", HandOff: []string{"-p", `"$(cat {file})"`}},
}

// Detector scans for installed AI tools
type Detector struct {
	lookPath func(string) (string, error)
	agents   []Agent
}

// NewDetector creates a new agent detector
func NewDetector() *Detector {
	return &Detector{lookPath: exec.LookPath}
}

// Scan detects installed AI tools
func (d *Detector) Scan() []Agent {
	d.agents = []Agent{}
	for _, known := range Known {
		path, err := d.lookPath(known.Binary)
		if err != nil {
			continue
		}
		agent := known
		agent.Path = path
		d.agents = append(d.agents, agent)
	}
	return d.agents
}

// Hints returns one hand-off command per detected agent, or the Claude CLI
// command when none were found.
func (d *Detector) Hints(packetPath string) []string {
	agents := d.agents
	if len(agents) == 0 {
		agents = Known[:1]
	}
	hints := make([]string, 0, len(agents))
	for _, a := range agents {
		hints = append(hints, a.Command(packetPath))
	}
	return hints
}
