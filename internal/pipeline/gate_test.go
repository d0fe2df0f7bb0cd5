package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		input    string
		approved bool
		ok       bool
	}{
		{"y", false, true},
		{"Y", false, true},
		{"  y \n", false, true},
		{"n", true, true},
		{"N\n", true, true},
		{"yes", false, false},
		{"", false, false},
		{"q", false, false},
	}
	for _, tt := range tests {
		approved, ok := ParseDecision(tt.input)
		if approved != tt.approved || ok != tt.ok {
			t.Errorf("ParseDecision(%q) = %v, %v; want %v, %v", tt.input, approved, ok, tt.approved, tt.ok)
		}
	}
}

func TestConsoleGate_Ask(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		approved bool
		wantErr  error
		invalid  int
	}{
		{name: "regenerate", input: "y\n", approved: false},
		{name: "accept", input: "n\n", approved: true},
		{name: "uppercase with spaces", input: "  N  \n", approved: true},
		{name: "no trailing newline", input: "n", approved: true},
		{name: "invalid then accept", input: "maybe\n\nn\n", approved: true, invalid: 2},
		{name: "closed input", input: "", wantErr: ErrOperatorInputClosed},
		{name: "invalid then closed", input: "what\n", wantErr: ErrOperatorInputClosed, invalid: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			g := NewConsoleGate(strings.NewReader(tt.input), &out)

			approved, err := g.Ask(context.Background(), "```yaml\napp: {}\n```", "missing step 2")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Ask() error = %v, want %v", err, tt.wantErr)
			}
			if approved != tt.approved {
				t.Errorf("Ask() = %v, want %v", approved, tt.approved)
			}

			text := out.String()
			if !strings.Contains(text, "missing step 2") || !strings.Contains(text, "app: {}") {
				t.Errorf("output should show reason and candidate:\n%s", text)
			}
			if got := strings.Count(text, "Invalid input"); got != tt.invalid {
				t.Errorf("invalid notices = %d, want %d", got, tt.invalid)
			}
		})
	}
}

func TestConsoleGate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewConsoleGate(strings.NewReader("n\n"), &strings.Builder{})
	if _, err := g.Ask(ctx, "c", "r"); !errors.Is(err, context.Canceled) {
		t.Errorf("Ask() error = %v, want context.Canceled", err)
	}
}
