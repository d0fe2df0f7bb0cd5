package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/simonyos/wfgen/internal/llm"
)

// mockResponse is one scripted Generate outcome
type mockResponse struct {
	text string
	err  error
}

// mockProvider replays scripted responses and records every request
type mockProvider struct {
	responses  []mockResponse
	structured []string
	structErr  error

	requests           []llm.Request
	structuredRequests []llm.Request
	schemas            []llm.Schema
}

func (p *mockProvider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	p.requests = append(p.requests, req)
	if len(p.responses) == 0 {
		return nil, errors.New("mock: unexpected Generate call")
	}
	r := p.responses[0]
	p.responses = p.responses[1:]
	if r.err != nil {
		return nil, r.err
	}
	return &llm.Response{Text: r.text, StopReason: "end_turn"}, nil
}

func (p *mockProvider) GenerateStructured(ctx context.Context, req llm.Request, schema llm.Schema, out any) error {
	p.structuredRequests = append(p.structuredRequests, req)
	p.schemas = append(p.schemas, schema)
	if p.structErr != nil {
		return p.structErr
	}
	if len(p.structured) == 0 {
		return errors.New("mock: unexpected GenerateStructured call")
	}
	body := p.structured[0]
	p.structured = p.structured[1:]
	return json.Unmarshal([]byte(body), out)
}

func (p *mockProvider) ModelName() string { return "mock" }

// userPrompt returns the user message of a recorded request
func userPrompt(req llm.Request) string {
	for _, m := range req.Messages {
		if m.Role == "user" {
			return m.Content
		}
	}
	return ""
}

// scriptedGenerator returns numbered candidates and records the feedback it saw
type scriptedGenerator struct {
	calls    int
	feedback []string
	text     func(n int) string
	err      error
}

func (g *scriptedGenerator) Generate(ctx context.Context, query, feedback string) (string, error) {
	g.calls++
	g.feedback = append(g.feedback, feedback)
	if g.err != nil {
		return "", g.err
	}
	if g.text != nil {
		return g.text(g.calls), nil
	}
	return fmt.Sprintf("attempt %d\n```yaml\napp:\n  name: recipe-%d\n```\n", g.calls, g.calls), nil
}

// scriptedValidator returns verdicts in order, repeating the last one
type scriptedValidator struct {
	calls      int
	candidates []string
	verdicts   []Judgement
	err        error
}

func (v *scriptedValidator) Check(ctx context.Context, query, candidate string) (Judgement, error) {
	v.calls++
	v.candidates = append(v.candidates, candidate)
	if v.err != nil {
		return Judgement{}, v.err
	}
	i := v.calls - 1
	if i >= len(v.verdicts) {
		i = len(v.verdicts) - 1
	}
	return v.verdicts[i], nil
}

// countingGate wraps a gate and counts Ask calls
type countingGate struct {
	inner   OperatorGate
	calls   int
	reasons []string
}

func (g *countingGate) Ask(ctx context.Context, candidate, reason string) (bool, error) {
	g.calls++
	g.reasons = append(g.reasons, reason)
	return g.inner.Ask(ctx, candidate, reason)
}

// fixedGate always answers the same way
type fixedGate struct {
	decisions []bool
	calls     int
}

func (g *fixedGate) Ask(ctx context.Context, candidate, reason string) (bool, error) {
	d := g.decisions[min(g.calls, len(g.decisions)-1)]
	g.calls++
	return d, nil
}

// recordingObserver keeps every transition
type recordingObserver struct {
	transitions []Transition
}

func (o *recordingObserver) Observe(ctx context.Context, t Transition) {
	o.transitions = append(o.transitions, t)
}

func (o *recordingObserver) path() string {
	if len(o.transitions) == 0 {
		return ""
	}
	parts := []string{o.transitions[0].From.String()}
	for _, t := range o.transitions {
		parts = append(parts, t.To.String())
	}
	return strings.Join(parts, ">")
}
