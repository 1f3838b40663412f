package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"OPENROUTER_API_KEY",
	"STRIDECOACH_API_KEY",
	"STRIDECOACH_HOST",
	"STRIDECOACH_PORT",
	"STRIDECOACH_ACCESS_TOKEN",
	"STRIDECOACH_UPSTREAM_URL",
	"STRIDECOACH_REFERER",
	"STRIDECOACH_TITLE",
	"STRIDECOACH_DEFAULT_MODEL",
	"STRIDECOACH_IMAGE_MODEL",
	"STRIDECOACH_REASONING_EFFORT",
	"STRIDECOACH_DB",
	"STRIDECOACH_CHUNK_TIMEOUT",
	"STRIDECOACH_REQUEST_TIMEOUT",
	"STRIDECOACH_DEBUG",
	"STRIDECOACH_VERBOSE",
}

// clearEnv blanks every config variable for the duration of a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestDefaultFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg := DefaultFromEnv()

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 3000, cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Empty(t, cfg.AccessToken)
	assert.Empty(t, cfg.APIKey)
	assert.Equal(t, UpstreamURLDefault, cfg.UpstreamURL)
	assert.Equal(t, DefaultModel, cfg.DefaultModel)
	assert.Equal(t, ImageModelDefault, cfg.ImageModel)
	assert.Equal(t, "medium", cfg.ReasoningEffort)
	assert.Equal(t, ChunkTimeoutDefault, cfg.ChunkTimeout)
	assert.Equal(t, RequestTimeoutDefault, cfg.RequestTimeout)
}

func TestDefaultFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "sk-or-Mixed-Case")
	t.Setenv("STRIDECOACH_PORT", "9090")
	t.Setenv("STRIDECOACH_REASONING_EFFORT", " HIGH ")
	t.Setenv("STRIDECOACH_CHUNK_TIMEOUT", "15s")
	t.Setenv("STRIDECOACH_DEBUG", "yes")
	t.Setenv("STRIDECOACH_IMAGE_MODEL", "openai/gpt-image-1")

	cfg := DefaultFromEnv()

	assert.Equal(t, "sk-or-Mixed-Case", cfg.APIKey, "secrets must keep their case")
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "high", cfg.ReasoningEffort)
	assert.Equal(t, 15*time.Second, cfg.ChunkTimeout)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "openai/gpt-image-1", cfg.ImageModel)
}

func TestDefaultFromEnvIgnoresInvalidNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("STRIDECOACH_PORT", "not-a-port")
	t.Setenv("STRIDECOACH_REQUEST_TIMEOUT", "-5s")

	cfg := DefaultFromEnv()

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, RequestTimeoutDefault, cfg.RequestTimeout)
}

func TestLoadTOMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "stridecoach.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = 4000
api_key = "from-file"
default_model = "anthropic/claude-sonnet-4"
chunk_timeout = "30s"
`), 0o600))
	t.Setenv("OPENROUTER_API_KEY", "from-env")

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, "from-env", cfg.APIKey)
	assert.Equal(t, "anthropic/claude-sonnet-4", cfg.DefaultModel)
	assert.Equal(t, 30*time.Second, cfg.ChunkTimeout)
	assert.Equal(t, "127.0.0.1", cfg.Host)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	missing := filepath.Join(t.TempDir(), "nope.toml")

	cfg, err := Load(missing, false)
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Port)

	_, err = Load(missing, true)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	require.Error(t, cfg.Validate())

	cfg.APIKey = "k"
	require.NoError(t, cfg.Validate())

	cfg.Port = 70000
	require.Error(t, cfg.Validate())

	cfg.Port = 3000
	cfg.ReasoningEffort = "extreme"
	require.Error(t, cfg.Validate())
}
