// Package llm - Anthropic provider for wfgen
// Native Claude API support with forced-tool structured output
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/simonyos/wfgen/internal/config"
)

// Default timeout for Anthropic API requests (long workflow documents take a while)
const defaultAnthropicTimeout = 5 * time.Minute

const (
	defaultAnthropicModel = "claude-sonnet-4-20250514"
	anthropicVersion      = "2023-06-01"
	stopMaxTokens         = "max_tokens"
)

// Anthropic implements Provider using Claude API
type Anthropic struct {
	APIKey  string
	Model   string
	BaseURL string
	client  *http.Client
}

// Anthropic API types
type anthropicRequest struct {
	Model       string              `json:"model"`
	MaxTokens   int                 `json:"max_tokens"`
	System      string              `json:"system,omitempty"`
	Messages    []anthropicMessage  `json:"messages"`
	Temperature float64             `json:"temperature"`
	Tools       []anthropicTool     `json:"tools,omitempty"`
	ToolChoice  *anthropicToolUsage `json:"tool_choice,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicContentBlock struct {
	Type  string          `json:"type"`            // "text", "tool_use"
	Text  string          `json:"text,omitempty"`  // for text blocks
	ID    string          `json:"id,omitempty"`    // for tool_use blocks
	Name  string          `json:"name,omitempty"`  // for tool_use blocks
	Input json.RawMessage `json:"input,omitempty"` // for tool_use blocks
}

type anthropicTool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema *JSONSchema `json:"input_schema"`
}

type anthropicToolUsage struct {
	Type string `json:"type"` // "tool"
	Name string `json:"name"`
}

type anthropicResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Content    []anthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *anthropicError `json:"error,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewAnthropic creates a new Anthropic provider
func NewAnthropic(model string) *Anthropic {
	return NewAnthropicWithKey(config.GetAnthropicKey(), model)
}

// NewAnthropicWithKey creates a new Anthropic provider with explicit API key
func NewAnthropicWithKey(apiKey, model string) *Anthropic {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &Anthropic{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: "https://api.anthropic.com/v1",
		client:  &http.Client{Timeout: defaultAnthropicTimeout},
	}
}

// convertToAnthropicMessages splits out the system prompt and keeps the rest in order
func (a *Anthropic) convertToAnthropicMessages(messages []Message) (string, []anthropicMessage) {
	var systemParts []string
	var anthropicMsgs []anthropicMessage

	for _, msg := range messages {
		if msg.Role == "system" {
			systemParts = append(systemParts, msg.Content)
			continue
		}
		anthropicMsgs = append(anthropicMsgs, anthropicMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	return strings.Join(systemParts, "\n\n"), anthropicMsgs
}

// Generate calls Anthropic API and returns the response
func (a *Anthropic) Generate(ctx context.Context, req Request) (*Response, error) {
	systemPrompt, msgs := a.convertToAnthropicMessages(req.Messages)
	limit := maxTokens(req)

	resp, err := a.send(ctx, anthropicRequest{
		Model:     a.Model,
		MaxTokens: limit,
		System:    systemPrompt,
		Messages:  msgs,
	})
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if resp.StopReason == stopMaxTokens {
		return nil, &TruncatedError{Partial: text.String(), MaxTokens: limit}
	}

	return &Response{
		Text:       text.String(),
		StopReason: resp.StopReason,
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}

// GenerateStructured forces a single tool call whose input is the structured object
func (a *Anthropic) GenerateStructured(ctx context.Context, req Request, schema Schema, out any) error {
	systemPrompt, msgs := a.convertToAnthropicMessages(req.Messages)
	limit := maxTokens(req)

	resp, err := a.send(ctx, anthropicRequest{
		Model:     a.Model,
		MaxTokens: limit,
		System:    systemPrompt,
		Messages:  msgs,
		Tools: []anthropicTool{{
			Name:        schema.Name,
			Description: schema.Description,
			InputSchema: schema.Parameters,
		}},
		ToolChoice: &anthropicToolUsage{Type: "tool", Name: schema.Name},
	})
	if err != nil {
		return err
	}

	if resp.StopReason == stopMaxTokens {
		return &TruncatedError{MaxTokens: limit}
	}

	for _, block := range resp.Content {
		if block.Type != "tool_use" || block.Name != schema.Name {
			continue
		}
		if err := json.Unmarshal(block.Input, out); err != nil {
			return fmt.Errorf("failed to decode %s input: %w", schema.Name, err)
		}
		return nil
	}

	return ErrNoStructuredOutput
}

func (a *Anthropic) send(ctx context.Context, reqBody anthropicRequest) (*anthropicResponse, error) {
	if a.APIKey == "" {
		return nil, missingKey("Anthropic", "anthropic", "ANTHROPIC_API_KEY")
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Provider: "Anthropic", StatusCode: resp.StatusCode, Message: string(body)}
	}

	var anthropicResp anthropicResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if anthropicResp.Error != nil {
		return nil, &APIError{Provider: "Anthropic", Message: anthropicResp.Error.Message}
	}

	return &anthropicResp, nil
}

// ModelName returns the model being used
func (a *Anthropic) ModelName() string {
	return a.Model
}

// Ensure Anthropic implements Provider
var _ Provider = (*Anthropic)(nil)
