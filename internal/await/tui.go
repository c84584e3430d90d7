package await

import (
	"context"

	"github.com/fentz26/ralph/internal/models"
	"github.com/fentz26/ralph/internal/tui"
)

// TUI shows the hand-off in a full-screen terminal view.
type TUI struct{}

// Await implements Awaiter.
func (TUI) Await(ctx context.Context, h models.Handoff) (models.Signal, error) {
	return tui.Run(ctx, h)
}
