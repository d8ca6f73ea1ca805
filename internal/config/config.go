package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teemow/inboxtriage/internal/storage"
)

// Defaults applied before the config file and the environment are read.
const (
	DefaultLookback          = 48 * time.Hour
	DefaultMaxEmails         = 10
	DefaultTaskListID        = "@default"
	DefaultCalendarID        = "primary"
	DefaultRequestsPerMinute = 15
	DefaultLLMTimeout        = 60 * time.Second
	DefaultHTTPAddr          = ":8080"
	DefaultMetricsAddr       = ":9090"

	// MaxEmailsLimit is the Gmail API page size ceiling.
	MaxEmailsLimit = 500
)

// Config is the complete inboxtriage configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	LLM      LLMConfig      `yaml:"llm"`
	Gmail    GmailConfig    `yaml:"gmail"`
	Google   GoogleConfig   `yaml:"google"`
	Tasks    TasksConfig    `yaml:"tasks"`
	Calendar CalendarConfig `yaml:"calendar"`
	Router   RouterConfig   `yaml:"router"`
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
}

type StorageConfig struct {
	Type  string      `yaml:"type"`
	Dir   string      `yaml:"dir"`
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type LLMConfig struct {
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
}

type GmailConfig struct {
	// Lookback bounds how far back unread mail is fetched.
	Lookback  time.Duration `yaml:"lookback"`
	MaxEmails int           `yaml:"max_emails"`
}

type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
}

type TasksConfig struct {
	TaskListID string `yaml:"task_list_id"`
}

type CalendarConfig struct {
	CalendarID string `yaml:"calendar_id"`
}

type RouterConfig struct {
	// SynthesizeReplyTasks adds the missing reply task for calendar
	// actions that need a reply.
	SynthesizeReplyTasks bool `yaml:"synthesize_reply_tasks"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	dataDir := filepath.Join(userDataDir(), "inboxtriage")
	return &Config{
		Storage: StorageConfig{
			Type: storage.TypeFile,
			Dir:  dataDir,
		},
		LLM: LLMConfig{
			RequestsPerMinute: DefaultRequestsPerMinute,
			Timeout:           DefaultLLMTimeout,
		},
		Gmail: GmailConfig{
			Lookback:  DefaultLookback,
			MaxEmails: DefaultMaxEmails,
		},
		Google: GoogleConfig{
			CredentialsFile: filepath.Join(dataDir, "credentials.json"),
			TokenFile:       filepath.Join(dataDir, "token.json"),
		},
		Tasks:    TasksConfig{TaskListID: DefaultTaskListID},
		Calendar: CalendarConfig{CalendarID: DefaultCalendarID},
		Router:   RouterConfig{SynthesizeReplyTasks: true},
		Log:      LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{
			Addr:        DefaultHTTPAddr,
			MetricsAddr: DefaultMetricsAddr,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/inboxtriage/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "inboxtriage", "config.yaml")
}

// Load reads the YAML file at path on top of the defaults, then applies
// environment overrides. A missing file is not an error unless required
// is set.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !required:
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	// Environment variables take precedence over the file.
	if err := OverrideStorageFromEnv(&cfg.Storage); err != nil {
		return nil, err
	}
	OverrideLLMFromEnv(&cfg.LLM)
	if err := OverrideGmailFromEnv(&cfg.Gmail); err != nil {
		return nil, err
	}
	OverrideGoogleFromEnv(&cfg.Google)
	OverrideLogFromEnv(&cfg.Log)

	return cfg, nil
}

// OverrideStorageFromEnv applies INBOXTRIAGE_STORAGE_* and REDIS_* variables.
func OverrideStorageFromEnv(cfg *StorageConfig) error {
	if v := os.Getenv("INBOXTRIAGE_STORAGE_TYPE"); v != "" {
		cfg.Type = v
	}
	if v := os.Getenv("INBOXTRIAGE_DATA_DIR"); v != "" {
		cfg.Dir = v
	}
	if v := firstEnv("INBOXTRIAGE_REDIS_ADDR", "REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := firstEnv("INBOXTRIAGE_REDIS_PASSWORD", "REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := firstEnv("INBOXTRIAGE_REDIS_DB", "REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		cfg.Redis.DB = db
	}
	return nil
}

// OverrideLLMFromEnv applies the model API key and name. GEMINI_API_KEY wins
// over the generic API_KEY.
func OverrideLLMFromEnv(cfg *LLMConfig) {
	if v := firstEnv("INBOXTRIAGE_LLM_API_KEY", "GEMINI_API_KEY", "API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("INBOXTRIAGE_LLM_MODEL"); v != "" {
		cfg.Model = v
	}
}

// OverrideGmailFromEnv applies INBOXTRIAGE_LOOKBACK and INBOXTRIAGE_MAX_EMAILS.
func OverrideGmailFromEnv(cfg *GmailConfig) error {
	if v := os.Getenv("INBOXTRIAGE_LOOKBACK"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid INBOXTRIAGE_LOOKBACK %q: %w", v, err)
		}
		cfg.Lookback = d
	}
	if v := os.Getenv("INBOXTRIAGE_MAX_EMAILS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid INBOXTRIAGE_MAX_EMAILS %q: %w", v, err)
		}
		cfg.MaxEmails = n
	}
	return nil
}

func OverrideGoogleFromEnv(cfg *GoogleConfig) {
	if v := os.Getenv("INBOXTRIAGE_CREDENTIALS_FILE"); v != "" {
		cfg.CredentialsFile = v
	}
	if v := os.Getenv("INBOXTRIAGE_TOKEN_FILE"); v != "" {
		cfg.TokenFile = v
	}
}

func OverrideLogFromEnv(cfg *LogConfig) {
	if v := os.Getenv("INBOXTRIAGE_LOG_LEVEL"); v != "" {
		cfg.Level = v
	}
	if v := os.Getenv("INBOXTRIAGE_LOG_FORMAT"); v != "" {
		cfg.Format = v
	}
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Type) {
	case storage.TypeFile:
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir is required for the file backend")
		}
	case storage.TypeRedis:
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unsupported storage.type %q (supported: file, redis)", c.Storage.Type)
	}

	if c.Gmail.Lookback <= 0 {
		return fmt.Errorf("gmail.lookback must be positive, got %s", c.Gmail.Lookback)
	}
	if c.Gmail.MaxEmails < 1 || c.Gmail.MaxEmails > MaxEmailsLimit {
		return fmt.Errorf("gmail.max_emails must be between 1 and %d, got %d", MaxEmailsLimit, c.Gmail.MaxEmails)
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("llm.requests_per_minute cannot be negative")
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("llm.timeout cannot be negative")
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unsupported log.format %q (supported: text, json)", c.Log.Format)
	}
	return nil
}

// StorageBackend converts the storage section into a storage.Config.
func (c *Config) StorageBackend() storage.Config {
	return storage.Config{
		Type: c.Storage.Type,
		Dir:  c.Storage.Dir,
		Redis: storage.RedisConfig{
			Addr:      c.Storage.Redis.Addr,
			Password:  c.Storage.Redis.Password,
			DB:        c.Storage.Redis.DB,
			KeyPrefix: c.Storage.Redis.KeyPrefix,
		},
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func userDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return xdg
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share")
	}
	return "."
}
