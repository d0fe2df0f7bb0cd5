package llm

import (
	"fmt"
	"strings"
)

// ProviderNames lists the accepted values for --provider
var ProviderNames = []string{"anthropic", "openai", "openrouter", "litellm"}

// New creates a provider by name. An empty model selects the provider default.
func New(name, model string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "anthropic", "claude":
		return NewAnthropic(model), nil
	case "openai":
		return NewOpenAI(model), nil
	case "openrouter":
		return NewOpenRouter(model), nil
	case "litellm":
		if model == "" {
			return nil, fmt.Errorf("litellm requires --model")
		}
		return NewLiteLLM(model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: %s)", name, strings.Join(ProviderNames, ", "))
	}
}
