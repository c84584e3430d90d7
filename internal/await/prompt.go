package await

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fentz26/ralph/internal/models"
)

// Prompt waits for a line on its reader. An empty line continues, "d" marks
// the task done, "q" or end of input stops the loop.
type Prompt struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	lines chan string
}

// NewPrompt creates a line prompt awaiter.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: in, out: out}
}

// start launches the single reader goroutine shared by every Await call, so
// an abandoned read is picked up by the next prompt instead of leaking.
func (p *Prompt) start() {
	p.once.Do(func() {
		p.lines = make(chan string)
		go func() {
			defer close(p.lines)
			scanner := bufio.NewScanner(p.in)
			for scanner.Scan() {
				p.lines <- scanner.Text()
			}
		}()
	})
}

// Await implements Awaiter.
func (p *Prompt) Await(ctx context.Context, h models.Handoff) (models.Signal, error) {
	p.start()
	fmt.Fprintf(p.out, "\nWhen the task is done press Enter to continue, 'd' to mark %q done, or 'q' to stop: ", h.Task)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(p.out)
			return models.SignalInterrupt, nil
		case line, ok := <-p.lines:
			if !ok {
				fmt.Fprintln(p.out)
				return models.SignalInterrupt, nil
			}
			if sig, ok := parseAnswer(line); ok {
				return sig, nil
			}
			fmt.Fprint(p.out, "Enter, 'd' or 'q': ")
		}
	}
}

func parseAnswer(line string) (models.Signal, bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "c", "continue":
		return models.SignalContinue, true
	case "d", "done":
		return models.SignalComplete, true
	case "q", "quit", "stop":
		return models.SignalInterrupt, true
	}
	return "", false
}
