package llm

import "context"

// DefaultMaxTokens is the output limit used when a request does not set one.
const DefaultMaxTokens = 4096

// Message represents a chat message
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Request is a single model call
type Request struct {
	Messages []Message

	// MaxTokens caps the output length; zero means DefaultMaxTokens
	MaxTokens int
}

// Response is a completed model call
type Response struct {
	Text       string
	StopReason string
	Usage      Usage
}

// Usage reports token counts as returned by the provider
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Provider is the interface for LLM backends
type Provider interface {
	// Generate produces a text response. When the output hits the length
	// limit it returns a *TruncatedError carrying the partial text.
	Generate(ctx context.Context, req Request) (*Response, error)

	// GenerateStructured asks the model for a JSON object matching schema
	// and decodes it into out.
	GenerateStructured(ctx context.Context, req Request, schema Schema, out any) error

	// ModelName returns the model being used
	ModelName() string
}

func maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return DefaultMaxTokens
}

// System builds a system message
func System(content string) Message {
	return Message{Role: "system", Content: content}
}

// User builds a user message
func User(content string) Message {
	return Message{Role: "user", Content: content}
}
