// Package await implements the suspension point of the loop: it shows the
// operator the hand-off and blocks until the external agent is done.
package await

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fentz26/ralph/internal/config"
	"github.com/fentz26/ralph/internal/models"
	"github.com/mattn/go-isatty"
)

// ErrUnknownMode is returned by Select for an unrecognised wait mode.
var ErrUnknownMode = errors.New("unknown wait mode")

// Awaiter blocks until the operator or agent signals how to proceed.
// Implementations return SignalInterrupt when ctx is cancelled.
type Awaiter interface {
	Await(ctx context.Context, h models.Handoff) (models.Signal, error)
}

// Options carries everything the concrete awaiters may need.
type Options struct {
	In       io.Reader
	Out      io.Writer
	Selector Selector
	Poll     time.Duration
}

// Select returns the awaiter for mode. Auto picks the TUI when both stdin and
// stdout are terminals and the line prompt otherwise.
func Select(mode string, opts Options) (Awaiter, error) {
	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	switch mode {
	case config.WaitPrompt:
		return NewPrompt(in, out), nil
	case config.WaitTUI:
		return TUI{}, nil
	case config.WaitWatch:
		if opts.Selector == nil {
			return nil, fmt.Errorf("watch mode: no checklist selector")
		}
		return NewWatch(opts.Selector, opts.Poll, out), nil
	case config.WaitAuto, "":
		if interactive(in, out) {
			return TUI{}, nil
		}
		return NewPrompt(in, out), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

func interactive(in io.Reader, out io.Writer) bool {
	return isTerminal(in) && isTerminal(out)
}

func isTerminal(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
