package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/simonyos/wfgen/internal/llm"
	"github.com/simonyos/wfgen/internal/logging"
	"github.com/simonyos/wfgen/internal/prompts"
)

// Generator produces one complete candidate document per call
type Generator interface {
	Generate(ctx context.Context, query, feedback string) (string, error)
}

// Validator judges a candidate document
type Validator interface {
	Check(ctx context.Context, query, candidate string) (Judgement, error)
}

// StepConfig is shared by the model-backed generator and validator
type StepConfig struct {
	// Template is the prompt template name; empty means prompts.DefaultTemplate
	Template string

	// MaxTokens is the output limit per model call; zero leaves the
	// provider default in place
	MaxTokens int

	Logger *slog.Logger
}

func (c StepConfig) template() string {
	if c.Template == "" {
		return prompts.DefaultTemplate
	}
	return c.Template
}

// LLMGenerator generates candidates with a language model and resumes
// generations that stop at the output limit.
type LLMGenerator struct {
	provider llm.Provider
	store    prompts.Store
	cfg      StepConfig
	log      *slog.Logger
}

// NewLLMGenerator creates a generator backed by provider and store
func NewLLMGenerator(provider llm.Provider, store prompts.Store, cfg StepConfig) *LLMGenerator {
	return &LLMGenerator{
		provider: provider,
		store:    store,
		cfg:      cfg,
		log:      logging.OrNop(cfg.Logger),
	}
}

// Generate implements Generator. A *llm.TruncatedError is never returned:
// its partial text is kept and the call is repeated with that text as
// context until a response completes.
func (g *LLMGenerator) Generate(ctx context.Context, query, feedback string) (string, error) {
	tmpl, err := g.store.Load(ctx, g.cfg.template())
	if err != nil {
		return "", err
	}

	var answer strings.Builder
	for call := 1; ; call++ {
		req := llm.Request{
			Messages: []llm.Message{
				llm.System(prompts.GeneratorRole),
				llm.User(prompts.GenerationPrompt(tmpl, prompts.ContinuationQuery(query, answer.String()), feedback)),
			},
			MaxTokens: g.cfg.MaxTokens,
		}

		resp, err := g.provider.Generate(ctx, req)
		var truncated *llm.TruncatedError
		if errors.As(err, &truncated) {
			if truncated.Partial == "" {
				return "", ErrResumeStalled
			}
			answer.WriteString(truncated.Partial)
			g.log.Debug("generate: output truncated, resuming",
				"call", call,
				"max_tokens", truncated.MaxTokens,
				"chars_so_far", answer.Len())
			if err := ctx.Err(); err != nil {
				return "", err
			}
			continue
		}
		if err != nil {
			return "", err
		}

		answer.WriteString(resp.Text)
		if call > 1 {
			g.log.Debug("generate: resumed output complete", "calls", call)
		}
		return answer.String(), nil
	}
}

// JudgementSchema constrains the checking model's answer to a Judgement
var JudgementSchema = llm.Schema{
	Name:        "judgement",
	Description: "Verdict on whether the generated workflow follows every rule.",
	Parameters: llm.Object(map[string]*llm.JSONSchema{
		"reason": {
			Type:        "string",
			Description: "Why the workflow passes, or the problems found.",
		},
		"judge": {
			Type:        "boolean",
			Description: "false if any problem was found, true otherwise.",
		},
	}, "reason", "judge"),
}

// LLMValidator checks candidates with a language model in structured-output mode
type LLMValidator struct {
	provider llm.Provider
	store    prompts.Store
	cfg      StepConfig
}

// NewLLMValidator creates a validator backed by provider and store
func NewLLMValidator(provider llm.Provider, store prompts.Store, cfg StepConfig) *LLMValidator {
	return &LLMValidator{provider: provider, store: store, cfg: cfg}
}

// Check implements Validator. The verdict comes only from the decoded
// judge field.
func (v *LLMValidator) Check(ctx context.Context, _ string, candidate string) (Judgement, error) {
	tmpl, err := v.store.Load(ctx, v.cfg.template())
	if err != nil {
		return Judgement{}, err
	}

	req := llm.Request{
		Messages: []llm.Message{
			llm.System(prompts.CheckerRole),
			llm.User(prompts.CheckPrompt(tmpl, candidate)),
		},
		MaxTokens: v.cfg.MaxTokens,
	}

	var j Judgement
	if err := v.provider.GenerateStructured(ctx, req, JudgementSchema, &j); err != nil {
		return Judgement{}, err
	}
	return j, nil
}
