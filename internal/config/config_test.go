package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.MaxDuration)
	assert.Equal(t, 5, cfg.Chat.MaxSteps)
	assert.Equal(t, 10*time.Millisecond, cfg.Chat.SmoothDelay)
	assert.Equal(t, 60*time.Second, cfg.Joke.CacheTTL)
	assert.Equal(t, 20, cfg.RateLimit.Global.Limit)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Global.Window)
	assert.Equal(t, 10, cfg.RateLimit.Joke.Limit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Joke.Window)
	assert.Equal(t, time.Hour, cfg.Cache.DefaultTTL)
	assert.False(t, cfg.Server.IsProduction())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: "9000"
  mode: release
llm:
  models:
    chat-model:
      name: gpt-4o-mini
    chat-model-reasoning:
      name: deepseek-r1
      reasoning_tag: think
chat:
  smooth_delay: 0s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("CHATBOT_DATABASE_DSN", "file::memory:")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.True(t, cfg.Server.IsProduction())
	assert.Equal(t, "file::memory:", cfg.Database.DSN)
	assert.Equal(t, time.Duration(0), cfg.Chat.SmoothDelay)
	require.Contains(t, cfg.LLM.Models, "chat-model-reasoning")
	assert.Equal(t, "deepseek-r1", cfg.LLM.Models["chat-model-reasoning"].Name)
	assert.Equal(t, "think", cfg.LLM.Models["chat-model-reasoning"].ReasoningTag)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}
