package lessons

// SummaryThreshold is the note length, in characters, above which learner
// notes are compressed into a summary instead of passed through verbatim.
const SummaryThreshold = 800

// Config holds lesson generation settings.
type Config struct {
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`

	// GuidedItems is the number of practice items requested per lesson.
	GuidedItems int `mapstructure:"guided_items"`
}

func DefaultConfig() Config {
	return Config{
		MaxTokens:   1024,
		Temperature: 0.5,
		GuidedItems: 2,
	}
}

// SummarizerConfig holds learner-note compression settings.
type SummarizerConfig struct {
	MaxTokens   int
	Temperature float64
}

func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{MaxTokens: 256, Temperature: 0.3}
}
