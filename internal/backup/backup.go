// Package backup creates the safety branch taken before a run starts.
package backup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fentz26/ralph/internal/connectors"
)

// ErrBranchFailed is returned when git refuses to create the branch.
var ErrBranchFailed = errors.New("backup branch creation failed")

// Brancher snapshots the repository into a uniquely named branch.
type Brancher struct {
	connector connectors.Connector
	prefix    string
	now       func() time.Time
}

// Option customizes a Brancher during construction.
type Option func(*Brancher)

// WithClock overrides the clock used to name branches.
func WithClock(clock func() time.Time) Option {
	return func(b *Brancher) {
		b.now = clock
	}
}

// New creates a Brancher that names branches <prefix><YYYYMMDD_HHMMSS>.
func New(conn connectors.Connector, prefix string, opts ...Option) *Brancher {
	b := &Brancher{connector: conn, prefix: prefix, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BranchName returns the name a branch created at t would get.
func (b *Brancher) BranchName(t time.Time) string {
	return b.prefix + t.Format("20060102_150405")
}

// Create runs `git branch <name>` and returns the branch name.
func (b *Brancher) Create(ctx context.Context) (string, error) {
	name := b.BranchName(b.now())
	res, err := b.connector.Execute(ctx, "git", []string{"branch", name})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBranchFailed, err)
	}
	if res.ExitCode != 0 {
		detail := strings.TrimSpace(res.Stderr)
		if detail == "" {
			detail = fmt.Sprintf("git exited with code %d", res.ExitCode)
		}
		return "", fmt.Errorf("%w: %s", ErrBranchFailed, detail)
	}
	return name, nil
}
