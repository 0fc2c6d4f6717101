package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/cognify/internal/llm"
)

// isolate clears the environment Load reads and points the user config dir
// at an empty directory.
func isolate(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY",
		"COGNIFY_DB", "COGNIFY_STORE_PATH", "COGNIFY_LLM_PROVIDER",
	} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cognify.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	d := Default()
	assert.Equal(t, d.Engine, cfg.Engine)
	assert.Equal(t, d.Server, cfg.Server)
	assert.Equal(t, d.Lessons, cfg.Lessons)
	assert.Equal(t, 1000.0, cfg.Remediation.WeakCutoff)
	assert.Equal(t, 45*time.Second, cfg.Remediation.ContentTimeout)
	assert.Equal(t, "info", cfg.Log.Level)

	// No API key anywhere disables content generation.
	assert.Equal(t, llm.ProviderNone, cfg.LLM.Provider)
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
store:
  path: /var/lib/cognify/test.db
engine:
  struggle_threshold: 0.4
  max_depth: 2
  session_idle: 10m
remediation:
  content_timeout: 20s
  max_guided_attempts: 3
llm:
  provider: mock
  retry:
    max_attempts: 5
log:
  level: debug
  format: json
server:
  addr: 127.0.0.1:9000
tracing:
  enabled: true
  sample_ratio: 0.25
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/cognify/test.db", cfg.Store.Path)
	assert.Equal(t, 0.4, cfg.Engine.StruggleThreshold)
	assert.Equal(t, 2, cfg.Engine.MaxDepth)
	assert.Equal(t, 10*time.Minute, cfg.Engine.SessionIdle)
	assert.Equal(t, 0.5, cfg.Engine.WeakThreshold)
	assert.Equal(t, 20*time.Second, cfg.Remediation.ContentTimeout)
	assert.Equal(t, 3, cfg.Remediation.MaxGuidedAttempts)
	assert.Equal(t, llm.ProviderMock, cfg.LLM.Provider)
	assert.Equal(t, 5, cfg.LLM.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.LLM.Retry.InitialWait)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "cognify", cfg.Tracing.ServiceName)
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "engine:\n  max_depth: 2\n")

	t.Setenv("COGNIFY_ENGINE_MAX_DEPTH", "4")
	t.Setenv("COGNIFY_REMEDIATION_CONTENT_TIMEOUT", "5s")
	t.Setenv("COGNIFY_DB", "/tmp/cognify-env.db")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Engine.MaxDepth)
	assert.Equal(t, 5*time.Second, cfg.Remediation.ContentTimeout)
	assert.Equal(t, "/tmp/cognify-env.db", cfg.Store.Path)
	assert.Equal(t, llm.ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "test-key", cfg.LLM.Gemini.APIKey)
}

func TestLoadWeakCutoffFollowsThresholds(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "engine:\n  reference_tier: 2\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 1200.0, cfg.Remediation.WeakCutoff, 1e-6)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"struggle threshold", "engine:\n  struggle_threshold: 1.5\n"},
		{"weak threshold", "engine:\n  weak_threshold: 0\n"},
		{"reference tier", "engine:\n  reference_tier: 9\n"},
		{"depth", "engine:\n  max_depth: 0\n"},
		{"guided attempts", "remediation:\n  max_guided_attempts: 0\n"},
		{"sample ratio", "tracing:\n  sample_ratio: 2\n"},
		{"provider", "llm:\n  provider: carrier_pigeon\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
