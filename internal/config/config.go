// Package config loads cognify settings from an optional YAML file and
// COGNIFY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/abhisek/cognify/internal/engine"
	"github.com/abhisek/cognify/internal/lessons"
	"github.com/abhisek/cognify/internal/llm"
	"github.com/abhisek/cognify/internal/logging"
	"github.com/abhisek/cognify/internal/mastery"
	"github.com/abhisek/cognify/internal/remediation"
	"github.com/abhisek/cognify/internal/tracing"
)

const envPrefix = "COGNIFY"

type Config struct {
	Store       StoreConfig        `mapstructure:"store"`
	Curriculum  string             `mapstructure:"curriculum"`
	Engine      engine.Config      `mapstructure:"engine"`
	Remediation remediation.Config `mapstructure:"remediation"`
	Lessons     lessons.Config     `mapstructure:"lessons"`
	LLM         llm.Config         `mapstructure:"llm"`
	Log         logging.Config     `mapstructure:"log"`
	Server      ServerConfig       `mapstructure:"server"`
	Tracing     tracing.Config     `mapstructure:"tracing"`
}

type StoreConfig struct {
	// Path is the sqlite database file. Empty means the default data dir.
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"`
	Metrics         bool          `mapstructure:"metrics"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Engine:      engine.DefaultConfig(),
		Remediation: remediation.DefaultConfig(),
		Lessons:     lessons.DefaultConfig(),
		LLM:         llm.DefaultConfig(),
		Log:         logging.DefaultConfig(),
		Server: ServerConfig{
			Addr:            ":8080",
			Mode:            "release",
			Metrics:         true,
			ShutdownTimeout: 10 * time.Second,
		},
		Tracing: tracing.Config{ServiceName: "cognify", SampleRatio: 1},
	}
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("curriculum", d.Curriculum)

	v.SetDefault("engine.struggle_threshold", d.Engine.StruggleThreshold)
	v.SetDefault("engine.max_incorrect_streak", d.Engine.MaxIncorrectStreak)
	v.SetDefault("engine.weak_threshold", d.Engine.WeakThreshold)
	v.SetDefault("engine.reference_tier", d.Engine.ReferenceTier)
	v.SetDefault("engine.max_depth", d.Engine.MaxDepth)
	v.SetDefault("engine.strong_rating", d.Engine.StrongRating)
	v.SetDefault("engine.default_avg_time_secs", d.Engine.DefaultAvgTimeSecs)
	v.SetDefault("engine.recent_attempts", d.Engine.RecentAttempts)
	v.SetDefault("engine.session_idle", d.Engine.SessionIdle)

	v.SetDefault("remediation.content_timeout", d.Remediation.ContentTimeout)
	v.SetDefault("remediation.max_guided_attempts", d.Remediation.MaxGuidedAttempts)

	v.SetDefault("lessons.max_tokens", d.Lessons.MaxTokens)
	v.SetDefault("lessons.temperature", d.Lessons.Temperature)
	v.SetDefault("lessons.guided_items", d.Lessons.GuidedItems)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.anthropic.model", d.LLM.Anthropic.Model)
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.model", d.LLM.OpenAI.Model)
	v.SetDefault("llm.openai.base_url", d.LLM.OpenAI.BaseURL)
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.model", d.LLM.Gemini.Model)
	v.SetDefault("llm.openrouter.api_key", "")
	v.SetDefault("llm.openrouter.model", d.LLM.OpenRouter.Model)
	v.SetDefault("llm.openrouter.base_url", d.LLM.OpenRouter.BaseURL)
	v.SetDefault("llm.retry.max_attempts", d.LLM.Retry.MaxAttempts)
	v.SetDefault("llm.retry.initial_wait", d.LLM.Retry.InitialWait)
	v.SetDefault("llm.retry.max_wait", d.LLM.Retry.MaxWait)
	v.SetDefault("llm.retry.multiplier", d.LLM.Retry.Multiplier)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.requests_per_minute", d.LLM.RequestsPerMinute)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.compress", d.Log.Compress)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.metrics", d.Server.Metrics)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.sample_ratio", d.Tracing.SampleRatio)
}

// Load reads settings. An explicit path must exist; otherwise cognify.yaml
// is looked up in the working directory and the user config dir, and its
// absence is not an error. Environment variables override the file, e.g.
// COGNIFY_ENGINE_MAX_DEPTH or COGNIFY_LLM_GEMINI_API_KEY. COGNIFY_DB is
// accepted for the database path.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("store.path", "COGNIFY_STORE_PATH", "COGNIFY_DB"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("cognify")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "cognify"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if !cfg.LLM.DiscoverKeys() {
		switch cfg.LLM.Provider {
		case llm.ProviderAnthropic, llm.ProviderOpenAI, llm.ProviderGemini, llm.ProviderOpenRouter:
			cfg.LLM.Provider = llm.ProviderNone
		}
	}
	cfg.Remediation.WeakCutoff = cfg.Engine.WeakCutoff()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects thresholds the engine cannot work with.
func (c *Config) Validate() error {
	e := c.Engine
	switch {
	case e.StruggleThreshold <= 0 || e.StruggleThreshold >= 1:
		return fmt.Errorf("engine.struggle_threshold must be in (0, 1), got %v", e.StruggleThreshold)
	case e.WeakThreshold <= 0 || e.WeakThreshold >= 1:
		return fmt.Errorf("engine.weak_threshold must be in (0, 1), got %v", e.WeakThreshold)
	case e.ReferenceTier < mastery.MinTier || e.ReferenceTier > mastery.MaxTier:
		return fmt.Errorf("engine.reference_tier must be between %d and %d, got %d", mastery.MinTier, mastery.MaxTier, e.ReferenceTier)
	case e.MaxDepth < 1:
		return fmt.Errorf("engine.max_depth must be at least 1, got %d", e.MaxDepth)
	case e.MaxIncorrectStreak < 0:
		return fmt.Errorf("engine.max_incorrect_streak must not be negative, got %d", e.MaxIncorrectStreak)
	case c.Remediation.ContentTimeout <= 0:
		return fmt.Errorf("remediation.content_timeout must be positive, got %v", c.Remediation.ContentTimeout)
	case c.Remediation.MaxGuidedAttempts < 1:
		return fmt.Errorf("remediation.max_guided_attempts must be at least 1, got %d", c.Remediation.MaxGuidedAttempts)
	case c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1:
		return fmt.Errorf("tracing.sample_ratio must be in [0, 1], got %v", c.Tracing.SampleRatio)
	}
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	return nil
}
