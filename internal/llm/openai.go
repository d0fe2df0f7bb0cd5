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

const finishLength = "length"

// OpenAI implements Provider using the OpenAI chat completions API.
// OpenRouter and LiteLLM speak the same protocol and reuse it with their own
// base URL and credentials.
type OpenAI struct {
	Name    string // provider label used in errors
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	client  *http.Client

	keyName string // config key hinted when APIKey is empty
	keyEnv  string
}

// OpenAI API request/response types
type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string          `json:"type"` // "json_schema"
	JSONSchema *jsonSchemaSpec `json:"json_schema,omitempty"`
}

type jsonSchemaSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Schema      *JSONSchema `json:"schema"`
	Strict      bool        `json:"strict"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *openAIError `json:"error,omitempty"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

func newOpenAICompatible(name, apiKey, model, baseURL, keyName, keyEnv string) *OpenAI {
	return &OpenAI{
		Name:    name,
		APIKey:  apiKey,
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: 2 * time.Minute,
		client:  &http.Client{Timeout: 2 * time.Minute},
		keyName: keyName,
		keyEnv:  keyEnv,
	}
}

// NewOpenAI creates a new OpenAI provider
func NewOpenAI(model string) *OpenAI {
	return NewOpenAIWithKey(config.GetOpenAIKey(), model)
}

// NewOpenAIWithKey creates a new OpenAI provider with explicit API key
func NewOpenAIWithKey(apiKey, model string) *OpenAI {
	if model == "" {
		model = "gpt-4o"
	}
	return newOpenAICompatible("OpenAI", apiKey, model, "https://api.openai.com/v1", "openai", "OPENAI_API_KEY")
}

// NewOpenRouter creates a provider talking to OpenRouter
func NewOpenRouter(model string) *OpenAI {
	if model == "" {
		model = "anthropic/claude-sonnet-4"
	}
	return newOpenAICompatible("OpenRouter", config.GetOpenRouterKey(), model, "https://openrouter.ai/api/v1", "openrouter", "OPENROUTER_API_KEY")
}

// NewLiteLLM creates a provider talking to a LiteLLM proxy
// LiteLLM provides a unified interface to 100+ LLM providers using OpenAI-compatible format
func NewLiteLLM(model string) *OpenAI {
	return NewLiteLLMWithConfig(config.GetLiteLLMKey(), model, config.GetLiteLLMBaseURL())
}

// NewLiteLLMWithConfig creates a new LiteLLM provider with explicit configuration
func NewLiteLLMWithConfig(apiKey, model, baseURL string) *OpenAI {
	if baseURL == "" {
		baseURL = config.DefaultLiteLLMURL
	}
	p := newOpenAICompatible("LiteLLM", apiKey, model, baseURL, "litellm", "LITELLM_API_KEY")
	// LiteLLM proxies commonly run without a master key
	if p.APIKey == "" {
		p.APIKey = "sk-litellm"
	}
	return p
}

// convertMessages converts internal messages to OpenAI format
func (o *OpenAI) convertMessages(messages []Message) []openAIMessage {
	result := make([]openAIMessage, 0, len(messages))
	for _, msg := range messages {
		result = append(result, openAIMessage(msg))
	}
	return result
}

// Generate calls the chat completions endpoint and returns the response
func (o *OpenAI) Generate(ctx context.Context, req Request) (*Response, error) {
	limit := maxTokens(req)
	resp, err := o.send(ctx, openAIRequest{
		Model:     o.Model,
		Messages:  o.convertMessages(req.Messages),
		MaxTokens: limit,
	})
	if err != nil {
		return nil, err
	}

	choice := resp.Choices[0]
	if choice.FinishReason == finishLength {
		return nil, &TruncatedError{Partial: choice.Message.Content, MaxTokens: limit}
	}

	return &Response{
		Text:       choice.Message.Content,
		StopReason: choice.FinishReason,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// GenerateStructured requests a strict json_schema response and decodes it into out
func (o *OpenAI) GenerateStructured(ctx context.Context, req Request, schema Schema, out any) error {
	limit := maxTokens(req)
	resp, err := o.send(ctx, openAIRequest{
		Model:     o.Model,
		Messages:  o.convertMessages(req.Messages),
		MaxTokens: limit,
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaSpec{
				Name:        schema.Name,
				Description: schema.Description,
				Schema:      schema.Parameters,
				Strict:      true,
			},
		},
	})
	if err != nil {
		return err
	}

	choice := resp.Choices[0]
	if choice.FinishReason == finishLength {
		return &TruncatedError{Partial: choice.Message.Content, MaxTokens: limit}
	}
	if choice.Message.Refusal != "" {
		return &APIError{Provider: o.Name, Message: "refused: " + choice.Message.Refusal}
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return ErrNoStructuredOutput
	}
	if err := json.Unmarshal([]byte(choice.Message.Content), out); err != nil {
		return fmt.Errorf("failed to decode %s output: %w", schema.Name, err)
	}
	return nil
}

func (o *OpenAI) send(ctx context.Context, reqBody openAIRequest) (*openAIResponse, error) {
	if o.APIKey == "" {
		return nil, missingKey(o.Name, o.keyName, o.keyEnv)
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Provider: o.Name, StatusCode: resp.StatusCode, Message: string(body)}
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(body, &openAIResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if openAIResp.Error != nil {
		return nil, &APIError{Provider: o.Name, Message: openAIResp.Error.Message}
	}

	if len(openAIResp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	return &openAIResp, nil
}

// ModelName returns the model being used
func (o *OpenAI) ModelName() string {
	return o.Model
}

var _ Provider = (*OpenAI)(nil)
