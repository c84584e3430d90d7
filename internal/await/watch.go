package await

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fentz26/ralph/internal/checklist"
	"github.com/fentz26/ralph/internal/models"
	"github.com/fsnotify/fsnotify"
)

// Selector reports the next incomplete task. *checklist.Store satisfies it.
type Selector interface {
	Path() string
	NextIncomplete() (string, bool, error)
}

// Watch resolves once the awaited task is no longer the next incomplete
// entry, which happens when the agent ticks it off in the checklist. It
// watches the checklist directory with fsnotify and re-checks on every poll
// tick as a fallback for filesystems without change events.
type Watch struct {
	selector Selector
	poll     time.Duration
	out      io.Writer
}

// NewWatch creates a checklist-watching awaiter.
func NewWatch(s Selector, poll time.Duration, out io.Writer) *Watch {
	if poll <= 0 {
		poll = 2 * time.Second
	}
	return &Watch{selector: s, poll: poll, out: out}
}

// Await implements Awaiter.
func (w *Watch) Await(ctx context.Context, h models.Handoff) (models.Signal, error) {
	fmt.Fprintf(w.out, "\nWatching %s until %q is checked off (Ctrl+C to stop)...\n", w.selector.Path(), h.Task)

	var events <-chan fsnotify.Event
	var errs <-chan error
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(w.selector.Path())); err == nil {
			events = watcher.Events
			errs = watcher.Errors
		}
	}

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return models.SignalInterrupt, nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.selector.Path()) {
				continue
			}
		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
			continue
		case <-ticker.C:
		}

		moved, err := w.advanced(h.Task)
		if err != nil {
			return "", err
		}
		if moved {
			return models.SignalContinue, nil
		}
	}
}

func (w *Watch) advanced(task string) (bool, error) {
	next, ok, err := w.selector.NextIncomplete()
	if errors.Is(err, checklist.ErrNotFound) {
		// Editors that save by rename leave a short gap.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("watch checklist: %w", err)
	}
	return !ok || next != task, nil
}
