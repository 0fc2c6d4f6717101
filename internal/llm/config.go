package llm

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Provider names accepted by Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
	ProviderNone       = "none"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects the backend. "none" disables content generation.
	Provider string `mapstructure:"provider"`

	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Retry      RetryConfig      `mapstructure:"retry"`

	// Timeout bounds a single request including retries.
	Timeout time.Duration `mapstructure:"timeout"`

	// RequestsPerMinute caps outbound requests; zero disables the limit.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenRouterConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	InitialWait time.Duration `mapstructure:"initial_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait"`
	Multiplier  float64       `mapstructure:"multiplier"`
}

// DefaultConfig returns a Config with Gemini as the default backend.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderGemini,
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.0-flash-001"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout:           30 * time.Second,
		RequestsPerMinute: 30,
	}
}

// DiscoverKeys fills empty API keys from the vendors' standard environment
// variables and, when no provider key is set for the selected provider,
// switches to the first provider with a key (Gemini, OpenAI, Anthropic,
// OpenRouter). Returns false if no key was found anywhere.
func (c *Config) DiscoverKeys() bool {
	fill := func(dst *string, env string) {
		if *dst == "" {
			*dst = os.Getenv(env)
		}
	}
	fill(&c.Gemini.APIKey, "GEMINI_API_KEY")
	fill(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	fill(&c.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	fill(&c.OpenRouter.APIKey, "OPENROUTER_API_KEY")

	if c.Provider == ProviderMock || c.Provider == ProviderNone || c.keyFor(c.Provider) != "" {
		return true
	}
	for _, p := range []string{ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderOpenRouter} {
		if c.keyFor(p) != "" {
			c.Provider = p
			return true
		}
	}
	return false
}

func (c Config) keyFor(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return c.Anthropic.APIKey
	case ProviderOpenAI:
		return c.OpenAI.APIKey
	case ProviderGemini:
		return c.Gemini.APIKey
	case ProviderOpenRouter:
		return c.OpenRouter.APIKey
	}
	return ""
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderOpenRouter:
		if c.keyFor(c.Provider) == "" {
			return fmt.Errorf("llm.%s.api_key (COGNIFY_LLM_%s_API_KEY) is required for the %s provider",
				c.Provider, strings.ToUpper(c.Provider), c.Provider)
		}
	case ProviderMock, ProviderNone:
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
