package agents

import (
	"errors"
	"testing"
)

func fakeLookPath(installed ...string) func(string) (string, error) {
	set := map[string]bool{}
	for _, b := range installed {
		set[b] = true
	}
	return func(name string) (string, error) {
		if set[name] {
			return "/usr/local/bin/" + name, nil
		}
		return "", errors.New("not found")
	}
}

func TestScan(t *testing.T) {
	d := &Detector{lookPath: fakeLookPath("aider", "claude")}
	agents := d.Scan()

	if len(agents) != 2 {
		t.Fatalf("Expected 2 agents, got %d", len(agents))
	}
	if agents[0].ID != "claude-cli" {
		t.Errorf("Expected preference order to put claude first, got %s", agents[0].ID)
	}
	if agents[1].Path != "/usr/local/bin/aider" {
		t.Errorf("Unexpected path %s", agents[1].Path)
	}
}

func TestHints(t *testing.T) {
	tests := []struct {
		name      string
		installed []string
		want      []string
	}{
		{"none installed", nil, []string{"claude ask --file .ralph/.current_task.md"}},
		{"aider only", []string{"aider"}, []string{"aider --message-file .ralph/.current_task.md"}},
		{"gemini only", []string{"gemini"}, []string{`gemini -p "$(cat .ralph/.current_task.md)"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Detector{lookPath: fakeLookPath(tt.installed...)}
			d.Scan()
			got := d.Hints(".ralph/.current_task.md")
			if len(got) != len(tt.want) {
				t.Fatalf("Hints() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Hints()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
