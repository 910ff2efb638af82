package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 2, cfg.NGram.Min)
	assert.Equal(t, 3, cfg.NGram.Max)
	assert.Equal(t, 10000.0, cfg.Thresholds.Ads.MinImpressions)
	assert.Equal(t, 0.04, cfg.Thresholds.Ads.MaxCTR)
	assert.Equal(t, 5.0, cfg.Thresholds.GoldNuggets.MinConversions)
	assert.Equal(t, 50.0, cfg.Thresholds.GoldNuggets.MaxCPA)
	assert.Equal(t, 5000.0, cfg.Thresholds.Mismatches.MinImpressions)
	assert.Equal(t, 0.05, cfg.Thresholds.Mismatches.MaxCTR)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
environment: production
server:
  port: "9090"
  suggest_timeout: 30s
ngram:
  min: 1
  max: 4
tokenizer:
  stem: true
thresholds:
  gold_nuggets:
    max_cpa: 25
llm:
  model: copywriter
  mock: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.SuggestTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 1, cfg.NGram.Min)
	assert.Equal(t, 4, cfg.NGram.Max)
	assert.True(t, cfg.Tokenizer.Stem)
	assert.Equal(t, 25.0, cfg.Thresholds.GoldNuggets.MaxCPA)
	assert.Equal(t, 5.0, cfg.Thresholds.GoldNuggets.MinConversions)
	assert.Equal(t, "copywriter", cfg.LLM.Model)
	assert.True(t, cfg.LLM.Mock)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("ngram: [1, 2"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)

	invalid := filepath.Join(t.TempDir(), "range.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("ngram:\n  min: 3\n  max: 2\n"), 0o600))
	_, err = Load(invalid)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("PORT", "7070")
	t.Setenv("LLM_API_KEY", "secret")
	t.Setenv("LLM_GATEWAY_URL", "http://gateway.local/v1/chat")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("NGRAM_MIN", "1")
	t.Setenv("NGRAM_MAX", "2")
	t.Setenv("USE_MOCK_LLM", "true")
	t.Setenv("STEM_TOKENS", "1")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "secret", cfg.LLM.APIKey)
	assert.Equal(t, "http://gateway.local/v1/chat", cfg.LLM.GatewayURL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 1, cfg.NGram.Min)
	assert.Equal(t, 2, cfg.NGram.Max)
	assert.True(t, cfg.LLM.Mock)
	assert.True(t, cfg.Tokenizer.Stem)
}

func TestLoadFromEnvBadValues(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("NGRAM_MIN", "two")
	_, err := LoadFromEnv()
	assert.Error(t, err)

	t.Setenv("NGRAM_MIN", "")
	t.Setenv("USE_MOCK_LLM", "maybe")
	_, err = LoadFromEnv()
	assert.Error(t, err)
}

func TestLoadFromEnvDotenv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("LLM_MODEL", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LLM_MODEL=from-dotenv\n"), 0o600))

	// godotenv does not override variables that are already set, so clear it
	os.Unsetenv("LLM_MODEL")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.LLM.Model)
}

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (Go 1.24+) on older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
