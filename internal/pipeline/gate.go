package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/simonyos/wfgen/internal/tui/theme"
)

// OperatorGate asks a human whether to accept a candidate that failed the
// automated check. approved=true accepts it, false asks for another attempt.
type OperatorGate interface {
	Ask(ctx context.Context, candidate, reason string) (approved bool, err error)
}

const (
	// RegenerateToken asks for another generation
	RegenerateToken = "y"
	// AcceptToken accepts the current candidate
	AcceptToken = "n"

	decisionPrompt = "Regenerate this workflow? (y/n): "
)

// ParseDecision maps operator input to a decision. ok is false for anything
// other than the two tokens.
func ParseDecision(input string) (approved bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case RegenerateToken:
		return false, true
	case AcceptToken:
		return true, true
	default:
		return false, false
	}
}

// ConsoleGate reviews candidates over a line-oriented reader and writer
type ConsoleGate struct {
	in     *bufio.Reader
	out    io.Writer
	styles theme.Styles
}

// NewConsoleGate creates a gate reading decisions from in and writing to out
func NewConsoleGate(in io.Reader, out io.Writer) *ConsoleGate {
	return &ConsoleGate{
		in:     bufio.NewReader(in),
		out:    out,
		styles: theme.Current.Styles(),
	}
}

// Ask implements OperatorGate
func (g *ConsoleGate) Ask(ctx context.Context, candidate, reason string) (bool, error) {
	fmt.Fprintln(g.out, g.styles.Title.Render("Automated check failed:"))
	fmt.Fprintln(g.out, g.styles.Reason.Render(reason))
	fmt.Fprintln(g.out)
	fmt.Fprintln(g.out, g.styles.Title.Render("Candidate:"))
	fmt.Fprintln(g.out, candidate)
	fmt.Fprintln(g.out)

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		fmt.Fprint(g.out, g.styles.Prompt.Render(decisionPrompt))

		line, err := g.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("reading operator input: %w", err)
		}
		if errors.Is(err, io.EOF) && line == "" {
			fmt.Fprintln(g.out)
			return false, ErrOperatorInputClosed
		}

		if approved, ok := ParseDecision(line); ok {
			return approved, nil
		}
		fmt.Fprintln(g.out, g.styles.Error.Render(
			fmt.Sprintf("Invalid input %q. Enter %s to regenerate or %s to accept.",
				strings.TrimSpace(line), RegenerateToken, AcceptToken)))
	}
}
