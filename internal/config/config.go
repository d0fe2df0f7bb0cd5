package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Default values used when neither the config file nor flags set them.
const (
	DefaultProvider         = "anthropic"
	DefaultLiteLLMURL       = "http://localhost:4000"
	DefaultGenerationTokens = 8192
)

// Config holds all application configuration
type Config struct {
	// API Keys
	OpenAIKey     string `json:"openai_api_key,omitempty"`
	AnthropicKey  string `json:"anthropic_api_key,omitempty"`
	OpenRouterKey string `json:"openrouter_api_key,omitempty"`
	LiteLLMKey    string `json:"litellm_api_key,omitempty"`
	LiteLLMURL    string `json:"litellm_url,omitempty"`

	// Defaults
	DefaultProvider string `json:"default_provider,omitempty"`
	DefaultModel    string `json:"default_model,omitempty"`

	// Generation loop
	PromptsDir    string `json:"prompts_dir,omitempty"`
	MaxTokens     int    `json:"max_tokens,omitempty"`
	MaxIterations int    `json:"max_iterations,omitempty"`

	// Run events
	NATSURL string `json:"nats_url,omitempty"`
}

var (
	configDir  string
	configFile string
	current    *Config
)

func init() {
	// Use ~/.config/wfgen for config
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	configDir = filepath.Join(home, ".config", "wfgen")
	configFile = filepath.Join(configDir, "config.json")
}

// Load reads the config from disk
func Load() (*Config, error) {
	if current != nil {
		return current, nil
	}

	cfg := &Config{
		DefaultProvider: DefaultProvider,
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			current = cfg
			return current, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	current = cfg
	return current, nil
}

// Save writes the config to disk
func Save(cfg *Config) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	current = cfg
	return nil
}

// Get returns the current config, loading if necessary. A broken config file
// yields the defaults so read-only commands keep working.
func Get() *Config {
	if current == nil {
		if _, err := Load(); err != nil {
			return &Config{DefaultProvider: DefaultProvider}
		}
	}
	return current
}

// Set updates a config value by key
func Set(key, value string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	switch key {
	case "openai_api_key", "openai":
		cfg.OpenAIKey = value
	case "anthropic_api_key", "anthropic":
		cfg.AnthropicKey = value
	case "openrouter_api_key", "openrouter":
		cfg.OpenRouterKey = value
	case "litellm_api_key", "litellm":
		cfg.LiteLLMKey = value
	case "litellm_url":
		cfg.LiteLLMURL = value
	case "default_provider", "provider":
		cfg.DefaultProvider = value
	case "default_model", "model":
		cfg.DefaultModel = value
	case "prompts_dir", "prompts":
		cfg.PromptsDir = value
	case "max_tokens":
		n, err := parseCount(key, value)
		if err != nil {
			return err
		}
		cfg.MaxTokens = n
	case "max_iterations":
		n, err := parseCount(key, value)
		if err != nil {
			return err
		}
		cfg.MaxIterations = n
	case "nats_url", "nats":
		cfg.NATSURL = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	return Save(cfg)
}

func parseCount(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, value)
	}
	return n, nil
}

// Delete removes a config value
func Delete(key string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	switch key {
	case "openai_api_key", "openai":
		cfg.OpenAIKey = ""
	case "anthropic_api_key", "anthropic":
		cfg.AnthropicKey = ""
	case "openrouter_api_key", "openrouter":
		cfg.OpenRouterKey = ""
	case "litellm_api_key", "litellm":
		cfg.LiteLLMKey = ""
	case "litellm_url":
		cfg.LiteLLMURL = ""
	case "default_provider", "provider":
		cfg.DefaultProvider = ""
	case "default_model", "model":
		cfg.DefaultModel = ""
	case "prompts_dir", "prompts":
		cfg.PromptsDir = ""
	case "max_tokens":
		cfg.MaxTokens = 0
	case "max_iterations":
		cfg.MaxIterations = 0
	case "nats_url", "nats":
		cfg.NATSURL = ""
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	return Save(cfg)
}

func keyOrEnv(value, env string) string {
	if value != "" {
		return value
	}
	return os.Getenv(env)
}

// GetOpenAIKey returns the OpenAI API key (config or env)
func GetOpenAIKey() string {
	return keyOrEnv(Get().OpenAIKey, "OPENAI_API_KEY")
}

// GetAnthropicKey returns the Anthropic API key (config or env)
func GetAnthropicKey() string {
	return keyOrEnv(Get().AnthropicKey, "ANTHROPIC_API_KEY")
}

// GetOpenRouterKey returns the OpenRouter API key (config or env)
func GetOpenRouterKey() string {
	return keyOrEnv(Get().OpenRouterKey, "OPENROUTER_API_KEY")
}

// GetLiteLLMKey returns the LiteLLM API key (config or env)
func GetLiteLLMKey() string {
	return keyOrEnv(Get().LiteLLMKey, "LITELLM_API_KEY")
}

// GetLiteLLMBaseURL returns the LiteLLM proxy URL, falling back to the local default
func GetLiteLLMBaseURL() string {
	if url := keyOrEnv(Get().LiteLLMURL, "LITELLM_BASE_URL"); url != "" {
		return url
	}
	return DefaultLiteLLMURL
}

// GetNATSURL returns the NATS URL for run events (config or env). Empty disables publishing.
func GetNATSURL() string {
	return keyOrEnv(Get().NATSURL, "NATS_URL")
}

// GetMaxTokens returns the generation output limit
func GetMaxTokens() int {
	if n := Get().MaxTokens; n > 0 {
		return n
	}
	return DefaultGenerationTokens
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return configFile
}

// ConfigDir returns the directory holding the config file
func ConfigDir() string {
	return configDir
}

// ListKeys returns configured keys (masked for display)
func ListKeys() map[string]string {
	cfg := Get()
	result := make(map[string]string)

	secrets := []struct {
		name, value, env string
	}{
		{"openai_api_key", cfg.OpenAIKey, "OPENAI_API_KEY"},
		{"anthropic_api_key", cfg.AnthropicKey, "ANTHROPIC_API_KEY"},
		{"openrouter_api_key", cfg.OpenRouterKey, "OPENROUTER_API_KEY"},
		{"litellm_api_key", cfg.LiteLLMKey, "LITELLM_API_KEY"},
	}
	for _, s := range secrets {
		if s.value != "" {
			result[s.name] = maskKey(s.value)
		} else if env := os.Getenv(s.env); env != "" {
			result[s.name] = maskKey(env) + " (env)"
		}
	}

	plain := map[string]string{
		"litellm_url":      cfg.LiteLLMURL,
		"default_provider": cfg.DefaultProvider,
		"default_model":    cfg.DefaultModel,
		"prompts_dir":      cfg.PromptsDir,
		"nats_url":         cfg.NATSURL,
	}
	for k, v := range plain {
		if v != "" {
			result[k] = v
		}
	}
	if cfg.MaxTokens > 0 {
		result["max_tokens"] = strconv.Itoa(cfg.MaxTokens)
	}
	if cfg.MaxIterations > 0 {
		result["max_iterations"] = strconv.Itoa(cfg.MaxIterations)
	}

	return result
}

// maskKey shows only first 4 and last 4 characters
func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// GetPromptPaths returns directories searched for prompt templates.
// Returns both project-local (.wfgen/prompts/) and global (~/.config/wfgen/prompts/) paths,
// preceded by the configured prompts_dir when set.
func GetPromptPaths() []string {
	paths := []string{}

	if dir := Get().PromptsDir; dir != "" {
		paths = append(paths, dir)
	}

	cwd, err := os.Getwd()
	if err == nil {
		paths = append(paths, filepath.Join(cwd, ".wfgen", "prompts"))
	}

	paths = append(paths, filepath.Join(configDir, "prompts"))

	return paths
}
