package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/simonyos/wfgen/internal/llm"
	"github.com/simonyos/wfgen/internal/prompts"
)

func TestLLMGenerator_Resume(t *testing.T) {
	tests := []struct {
		name     string
		partials []string
		final    string
	}{
		{name: "no truncation", final: "complete"},
		{name: "one truncation", partials: []string{"first half "}, final: "second half"},
		{name: "three truncations", partials: []string{"a", "b", "c"}, final: "d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockProvider{}
			for _, part := range tt.partials {
				p.responses = append(p.responses, mockResponse{err: &llm.TruncatedError{Partial: part, MaxTokens: 8192}})
			}
			p.responses = append(p.responses, mockResponse{text: tt.final})

			g := NewLLMGenerator(p, prompts.EmbeddedStore{}, StepConfig{MaxTokens: 8192})
			got, err := g.Generate(context.Background(), "recipe article workflow", "")
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}

			want := strings.Join(tt.partials, "") + tt.final
			if got != want {
				t.Errorf("Generate() = %q, want %q", got, want)
			}
			if len(p.requests) != len(tt.partials)+1 {
				t.Errorf("provider called %d times, want %d", len(p.requests), len(tt.partials)+1)
			}

			// Each resumed call carries the text produced so far
			soFar := ""
			for i, req := range p.requests {
				prompt := userPrompt(req)
				if soFar == "" && strings.Contains(prompt, "Existing answer so far:") {
					t.Errorf("call %d should not carry an existing answer", i+1)
				}
				if soFar != "" && !strings.Contains(prompt, "Existing answer so far:\n"+soFar) {
					t.Errorf("call %d missing accumulated text %q", i+1, soFar)
				}
				if i < len(tt.partials) {
					soFar += tt.partials[i]
				}
			}
		})
	}
}

func TestLLMGenerator_Request(t *testing.T) {
	p := &mockProvider{responses: []mockResponse{{text: "ok"}}}
	g := NewLLMGenerator(p, prompts.EmbeddedStore{}, StepConfig{MaxTokens: 8192})

	if _, err := g.Generate(context.Background(), "recipe article workflow", ""); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	req := p.requests[0]
	if req.MaxTokens != 8192 {
		t.Errorf("MaxTokens = %d, want 8192", req.MaxTokens)
	}
	if req.MaxTokens <= llm.DefaultMaxTokens {
		t.Error("generation limit should exceed the client default")
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[0].Content != prompts.GeneratorRole {
		t.Errorf("unexpected messages: %+v", req.Messages)
	}
	if !strings.Contains(userPrompt(req), "recipe article workflow") {
		t.Error("user prompt should contain the request")
	}
}

func TestLLMGenerator_Feedback(t *testing.T) {
	p := &mockProvider{responses: []mockResponse{{text: "one"}, {text: "two"}}}
	g := NewLLMGenerator(p, prompts.EmbeddedStore{}, StepConfig{})

	reason := "missing step 2: no http-request node"
	if _, err := g.Generate(context.Background(), "q", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Generate(context.Background(), "q", reason); err != nil {
		t.Fatal(err)
	}

	first, retry := userPrompt(p.requests[0]), userPrompt(p.requests[1])
	if strings.Contains(first, "previous generation was rejected") {
		t.Error("first attempt must not render a feedback block")
	}
	if !strings.Contains(retry, "previous generation was rejected") || !strings.Contains(retry, reason) {
		t.Errorf("retry prompt should quote the feedback:\n%s", retry)
	}
}

func TestLLMGenerator_Errors(t *testing.T) {
	boom := errors.New("connection reset")

	t.Run("client failure propagates", func(t *testing.T) {
		p := &mockProvider{responses: []mockResponse{
			{err: &llm.TruncatedError{Partial: "part"}},
			{err: boom},
		}}
		g := NewLLMGenerator(p, prompts.EmbeddedStore{}, StepConfig{})
		_, err := g.Generate(context.Background(), "q", "")
		if !errors.Is(err, boom) {
			t.Errorf("Generate() error = %v, want %v", err, boom)
		}
		if len(p.requests) != 2 {
			t.Errorf("provider called %d times, want 2", len(p.requests))
		}
	})

	t.Run("empty truncation stalls", func(t *testing.T) {
		p := &mockProvider{responses: []mockResponse{{err: &llm.TruncatedError{}}}}
		g := NewLLMGenerator(p, prompts.EmbeddedStore{}, StepConfig{})
		if _, err := g.Generate(context.Background(), "q", ""); !errors.Is(err, ErrResumeStalled) {
			t.Errorf("Generate() error = %v, want ErrResumeStalled", err)
		}
	})

	t.Run("template failure before any call", func(t *testing.T) {
		p := &mockProvider{responses: []mockResponse{{text: "never"}}}
		g := NewLLMGenerator(p, prompts.EmbeddedStore{}, StepConfig{Template: "missing"})
		if _, err := g.Generate(context.Background(), "q", ""); !errors.Is(err, prompts.ErrTemplateNotFound) {
			t.Errorf("Generate() error = %v, want ErrTemplateNotFound", err)
		}
		if len(p.requests) != 0 {
			t.Errorf("provider called %d times, want 0", len(p.requests))
		}
	})
}

func TestLLMValidator_VerdictFidelity(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Judgement
	}{
		{
			name: "pass despite failure words",
			body: `{"reason": "problems found: none, fails nothing", "judge": true}`,
			want: Judgement{Reason: "problems found: none, fails nothing", Passed: true},
		},
		{
			name: "fail despite success words",
			body: `{"reason": "looks fine and passes", "judge": false}`,
			want: Judgement{Reason: "looks fine and passes", Passed: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockProvider{structured: []string{tt.body}}
			v := NewLLMValidator(p, prompts.EmbeddedStore{}, StepConfig{})

			got, err := v.Check(context.Background(), "q", "```yaml\napp: {}\n```")
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Check() = %+v, want %+v", got, tt.want)
			}
			if p.schemas[0].Name != JudgementSchema.Name {
				t.Errorf("schema = %q", p.schemas[0].Name)
			}
		})
	}
}

func TestLLMValidator_Prompt(t *testing.T) {
	p := &mockProvider{structured: []string{`{"reason":"ok","judge":true}`}}
	v := NewLLMValidator(p, prompts.EmbeddedStore{}, StepConfig{})

	candidate := "```yaml\napp:\n  name: recipes\n```"
	if _, err := v.Check(context.Background(), "q", candidate); err != nil {
		t.Fatal(err)
	}
	req := p.structuredRequests[0]
	if req.Messages[0].Content != prompts.CheckerRole {
		t.Errorf("system prompt = %q", req.Messages[0].Content)
	}
	if !strings.Contains(userPrompt(req), candidate) {
		t.Error("check prompt should contain the candidate verbatim")
	}
}

func TestLLMValidator_Errors(t *testing.T) {
	boom := &llm.APIError{Provider: "mock", StatusCode: 500, Message: "down"}
	p := &mockProvider{structErr: boom}
	v := NewLLMValidator(p, prompts.EmbeddedStore{}, StepConfig{})

	_, err := v.Check(context.Background(), "q", "c")
	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("Check() error = %v, want *llm.APIError", err)
	}

	v = NewLLMValidator(&mockProvider{}, prompts.EmbeddedStore{}, StepConfig{Template: "missing"})
	if _, err := v.Check(context.Background(), "q", "c"); !errors.Is(err, prompts.ErrTemplateNotFound) {
		t.Errorf("Check() error = %v, want ErrTemplateNotFound", err)
	}
}
