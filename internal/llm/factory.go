package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// NewProvider builds the configured provider wrapped as
// caller -> timeout -> retry -> rate limit -> audit -> base.
// Returns (nil, nil) when the provider is "none".
func NewProvider(ctx context.Context, cfg Config, rec RequestRecorder, log *zap.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error
	switch cfg.Provider {
	case ProviderNone:
		return nil, nil
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderOpenRouter:
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderMock:
		base = NewMockProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	p := base
	if rec != nil {
		p = WithAudit(p, cfg.Provider, rec, log)
	}
	p = WithRateLimit(p, cfg.RequestsPerMinute)
	p = WithRetry(p, cfg.Retry)
	p = WithTimeout(p, cfg.Timeout)
	return p, nil
}
