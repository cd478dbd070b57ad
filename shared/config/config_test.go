package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "LLM_PROVIDER", "OPENAI_API_KEY", "GEMINI_API_KEY",
		"YOUTUBE_API_KEY", "GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET",
		"GOOGLE_CREDENTIALS_FILE", "EMAIL_USERNAME", "EMAIL_PASSWORD",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "data/personas.db", cfg.Database.DSN)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 60*time.Second, cfg.LLM.ClassifyTimeout)
	assert.Equal(t, 120*time.Second, cfg.LLM.GenerateTimeout)
	assert.Equal(t, 500, cfg.LLM.ClassifyMaxTokens)
	assert.Equal(t, 3000, cfg.LLM.GenerateMaxTokens)
	assert.Equal(t, float32(0.8), cfg.LLM.AngleTemperature)
	assert.Equal(t, 4000, cfg.LLM.AngleMaxTokens)
	assert.Equal(t, 500*time.Millisecond, cfg.Pipeline.ClassifyDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.Pipeline.PageDelay)
	assert.Equal(t, 100, cfg.Pipeline.PageSize)
	assert.Equal(t, 80, cfg.Pipeline.SampleCap)
	assert.Equal(t, 20, cfg.Pipeline.MinTextLength)
	assert.Equal(t, 4, cfg.Pipeline.DefaultPersonas)
	assert.Equal(t, 8080, cfg.Monitoring.HealthPort)
	assert.Equal(t, "0 0 6 * * *", cfg.Schedule)
}

func TestLoadFileYAML(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
database:
  driver: postgres
  dsn: postgres://localhost/personas?sslmode=disable
llm:
  provider: gemini
  api_key: g-key
  classify_timeout: 30s
pipeline:
  classify_delay: 1s
  page_size: 500
  sample_cap: 40
logging:
  level: debug
  format: console
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, 30*time.Second, cfg.LLM.ClassifyTimeout)
	assert.Equal(t, time.Second, cfg.Pipeline.ClassifyDelay)
	assert.Equal(t, 100, cfg.Pipeline.PageSize, "page size is capped at the API maximum")
	assert.Equal(t, 40, cfg.Pipeline.SampleCap)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadFileEnvFallbacks(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "gem")
	t.Setenv("YOUTUBE_API_KEY", "yt")
	t.Setenv("DATABASE_URL", "file.db")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gem", cfg.LLM.APIKey)
	assert.Equal(t, "yt", cfg.YouTube.APIKey)
	assert.Equal(t, "yt", cfg.Sheets.APIKey, "sheets falls back to the YouTube API key")
	assert.Equal(t, "file.db", cfg.Database.DSN)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"Valid", func(c *Config) { c.LLM.APIKey = "k" }, false},
		{"Local endpoint without key", func(c *Config) { c.LLM.BaseURL = "http://localhost:11434/v1" }, false},
		{"Missing OpenAI key", func(c *Config) {}, true},
		{"Unknown provider", func(c *Config) { c.LLM.Provider = "anthropic"; c.LLM.APIKey = "k" }, true},
		{"Unknown driver", func(c *Config) { c.Database.Driver = "mysql"; c.LLM.APIKey = "k" }, true},
		{"Gemini without key", func(c *Config) { c.LLM.Provider = "gemini" }, true},
		{"Email enabled without credentials", func(c *Config) {
			c.LLM.APIKey = "k"
			c.Email.Enabled = true
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFileInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "llm: [unterminated")

	_, err := LoadFile(path)
	assert.Error(t, err)
}
