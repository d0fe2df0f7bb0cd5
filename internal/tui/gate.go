package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/simonyos/wfgen/internal/pipeline"
)

// Gate is a pipeline.OperatorGate that runs a full-screen review for every
// failed candidate.
type Gate struct {
	opts []tea.ProgramOption
}

// NewGate creates a review gate. Extra options are passed to each program.
func NewGate(opts ...tea.ProgramOption) *Gate {
	return &Gate{opts: opts}
}

// Ask implements pipeline.OperatorGate
func (g *Gate) Ask(ctx context.Context, candidate, reason string) (bool, error) {
	opts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, g.opts...)
	p := tea.NewProgram(newReviewModel(candidate, reason), opts...)

	final, err := p.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if err != nil {
		return false, fmt.Errorf("review screen: %w", err)
	}

	m, ok := final.(reviewModel)
	if !ok || m.aborted || !m.decided {
		return false, pipeline.ErrOperatorAborted
	}
	return m.approved, nil
}
