package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, "llama3.1", cfg.LLM.Model)
	assert.InDelta(t, 0.81, cfg.Grounding.Threshold, 1e-9)
	assert.Equal(t, 600, cfg.Grounding.DescriptionWindow)
	assert.Equal(t, 10, cfg.Grounding.DescriptionOverlap)
	assert.Equal(t, 80, cfg.Grounding.AnswerWindow)
	assert.Equal(t, 8, cfg.Grounding.AnswerOverlap)
	assert.Equal(t, 3, cfg.Grounding.MaxAttempts)
	assert.Equal(t, time.Hour, cfg.Interview.InputTimeout)
	assert.Equal(t, 3*time.Minute, cfg.Interview.OutputTimeout)
	assert.Equal(t, 6*time.Hour, cfg.Interview.ProcessTimeout)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  addr: ":9090"
grounding:
  threshold: 0.9
interview:
  input_timeout: 30m
store:
  driver: redis
  redis:
    addr: "cache:6379"
    prefix: "test:"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.InDelta(t, 0.9, cfg.Grounding.Threshold, 1e-9)
	assert.Equal(t, 30*time.Minute, cfg.Interview.InputTimeout)
	assert.Equal(t, StoreRedis, cfg.Store.Driver)
	assert.Equal(t, "cache:6379", cfg.Store.Redis.Addr)
	// untouched nested defaults survive
	assert.Equal(t, 600, cfg.Grounding.DescriptionWindow)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BIZPLAN_LLM_PROVIDER", ProviderOpenAI)
	t.Setenv("BIZPLAN_LLM_MODEL", "gpt-4o-mini")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grounding:\n  threshold: 1.5\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
