package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxtriage/internal/storage"
)

var envKeys = []string{
	"INBOXTRIAGE_STORAGE_TYPE", "INBOXTRIAGE_DATA_DIR",
	"INBOXTRIAGE_REDIS_ADDR", "REDIS_ADDR",
	"INBOXTRIAGE_REDIS_PASSWORD", "REDIS_PASSWORD",
	"INBOXTRIAGE_REDIS_DB", "REDIS_DB",
	"INBOXTRIAGE_LLM_API_KEY", "GEMINI_API_KEY", "API_KEY", "INBOXTRIAGE_LLM_MODEL",
	"INBOXTRIAGE_LOOKBACK", "INBOXTRIAGE_MAX_EMAILS",
	"INBOXTRIAGE_CREDENTIALS_FILE", "INBOXTRIAGE_TOKEN_FILE",
	"INBOXTRIAGE_LOG_LEVEL", "INBOXTRIAGE_LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_DATA_HOME", "/data")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), false)
	require.NoError(t, err)

	assert.Equal(t, storage.TypeFile, cfg.Storage.Type)
	assert.Equal(t, "/data/inboxtriage", cfg.Storage.Dir)
	assert.Equal(t, "/data/inboxtriage/token.json", cfg.Google.TokenFile)
	assert.Equal(t, DefaultLookback, cfg.Gmail.Lookback)
	assert.Equal(t, DefaultMaxEmails, cfg.Gmail.MaxEmails)
	assert.Equal(t, "@default", cfg.Tasks.TaskListID)
	assert.Equal(t, "primary", cfg.Calendar.CalendarID)
	assert.True(t, cfg.Router.SynthesizeReplyTasks)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingRequiredFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), true)
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
storage:
  type: redis
  redis:
    addr: localhost:6379
    db: 2
llm:
  api_key: from-file
  timeout: 30s
gmail:
  lookback: 72h
router:
  synthesize_reply_tasks: false
`)

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, storage.TypeRedis, cfg.Storage.Type)
	assert.Equal(t, "localhost:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, 2, cfg.Storage.Redis.DB)
	assert.Equal(t, "from-file", cfg.LLM.APIKey)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 72*time.Hour, cfg.Gmail.Lookback)
	assert.False(t, cfg.Router.SynthesizeReplyTasks)
	// Untouched sections keep their defaults.
	assert.Equal(t, DefaultMaxEmails, cfg.Gmail.MaxEmails)
	assert.Equal(t, DefaultCalendarID, cfg.Calendar.CalendarID)

	backend := cfg.StorageBackend()
	assert.Equal(t, storage.TypeRedis, backend.Type)
	assert.Equal(t, "localhost:6379", backend.Redis.Addr)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "storage: [unclosed")
	_, err := Load(path, false)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "llm:\n  api_key: from-file\n")

	t.Setenv("API_KEY", "generic")
	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, "generic", cfg.LLM.APIKey)

	t.Setenv("GEMINI_API_KEY", "gemini")
	cfg, err = Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.APIKey)
}

func TestOverrideFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("INBOXTRIAGE_LOOKBACK", "24h")
	t.Setenv("INBOXTRIAGE_MAX_EMAILS", "25")
	t.Setenv("INBOXTRIAGE_LOG_LEVEL", "debug")

	cfg, err := Load("", false)
	require.NoError(t, err)
	assert.Equal(t, "redis:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, 3, cfg.Storage.Redis.DB)
	assert.Equal(t, 24*time.Hour, cfg.Gmail.Lookback)
	assert.Equal(t, 25, cfg.Gmail.MaxEmails)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestOverrideFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "redis_db", key: "REDIS_DB", val: "two"},
		{name: "lookback", key: "INBOXTRIAGE_LOOKBACK", val: "2 days"},
		{name: "max_emails", key: "INBOXTRIAGE_MAX_EMAILS", val: "ten"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load("", false)
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}, wantErr: false},
		{name: "unknown_storage", mutate: func(c *Config) { c.Storage.Type = "s3" }, wantErr: true},
		{name: "file_without_dir", mutate: func(c *Config) { c.Storage.Dir = "" }, wantErr: true},
		{name: "redis_without_addr", mutate: func(c *Config) { c.Storage.Type = "redis" }, wantErr: true},
		{name: "redis_with_addr", mutate: func(c *Config) {
			c.Storage.Type = "redis"
			c.Storage.Redis.Addr = "localhost:6379"
		}, wantErr: false},
		{name: "zero_lookback", mutate: func(c *Config) { c.Gmail.Lookback = 0 }, wantErr: true},
		{name: "zero_max_emails", mutate: func(c *Config) { c.Gmail.MaxEmails = 0 }, wantErr: true},
		{name: "too_many_emails", mutate: func(c *Config) { c.Gmail.MaxEmails = MaxEmailsLimit + 1 }, wantErr: true},
		{name: "negative_rpm", mutate: func(c *Config) { c.LLM.RequestsPerMinute = -1 }, wantErr: true},
		{name: "bad_log_format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
