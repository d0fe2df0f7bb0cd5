package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned when a provider has no credentials configured
	ErrMissingAPIKey = errors.New("API key not configured")

	// ErrOutputTruncated is the sentinel behind *TruncatedError
	ErrOutputTruncated = errors.New("output truncated at length limit")

	// ErrNoChoices is returned when the provider answers without any content
	ErrNoChoices = errors.New("no response choices returned")

	// ErrNoStructuredOutput is returned when a structured call yields no object
	ErrNoStructuredOutput = errors.New("model returned no structured output")
)

// TruncatedError reports that the model stopped because of the output limit.
// Partial holds the text produced before the cut.
type TruncatedError struct {
	Partial   string
	MaxTokens int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("output truncated at %d tokens (%d chars received)", e.MaxTokens, len(e.Partial))
}

func (e *TruncatedError) Unwrap() error {
	return ErrOutputTruncated
}

// APIError is a non-200 answer from a provider endpoint
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s API error: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s API request failed with status %d: %s", e.Provider, e.StatusCode, e.Message)
}

func missingKey(provider, configKey, env string) error {
	return fmt.Errorf("%s %w. Use 'wfgen config set %s <key>' or set %s", provider, ErrMissingAPIKey, configKey, env)
}
