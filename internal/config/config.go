package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/wiresync/internal/privacy"
)

const (
	DefaultConfigFile   = "config.yaml"
	DefaultTokenEnv     = "WIRESYNC_TOKEN"
	DefaultTimeout      = 13 * time.Second
	DefaultProvider     = "reuters"
	DefaultWindow       = 12 * time.Hour
	DefaultMaxStaleness = 7 * 24 * time.Hour
	DefaultDateFormat   = "2006.01.02.15.04"
	DefaultLeaseTTL     = 30 * time.Minute
	DefaultEvery        = 15 * time.Minute
	DefaultStoragePath  = ".wiresync/wiresync.db"
	DefaultRetainDays   = 30
	DefaultLogLevel     = "info"
	DefaultDigestSince  = 24 * time.Hour
	DefaultDigestLimit  = 50
)

// Duration wraps time.Duration for YAML unmarshaling from strings like "12h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	API      APIConfig      `yaml:"api"`
	Provider ProviderConfig `yaml:"provider"`
	Sync     SyncConfig     `yaml:"sync"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Storage  StorageConfig  `yaml:"storage"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
	Digest   DigestConfig   `yaml:"digest"`
}

type APIConfig struct {
	BaseURL  string   `yaml:"base_url"`
	TokenEnv string   `yaml:"token_env"`
	Token    string   `yaml:"token"`
	Timeout  Duration `yaml:"timeout"`
}

type ProviderConfig struct {
	Name string `yaml:"name"`
}

type SyncConfig struct {
	Window       Duration `yaml:"window"`
	MaxStaleness Duration `yaml:"max_staleness"`
	DateFormat   string   `yaml:"date_format"`
	LeaseTTL     Duration `yaml:"lease_ttl"`
}

type ScheduleConfig struct {
	Every Duration `yaml:"every"`
}

type StorageConfig struct {
	Path       string `yaml:"path"`
	RetainDays int    `yaml:"retain_days"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

type LogConfig struct {
	Level  string   `yaml:"level"`
	Redact []string `yaml:"redact"` // extra regexps scrubbed from logs and errors
}

type DigestConfig struct {
	Since Duration `yaml:"since"`
	Limit int      `yaml:"limit"`
}

// Load reads config.yaml from dir, applies defaults, resolves env vars, and validates.
func Load(dir string) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("config dir is required")
	}

	path := filepath.Join(dir, DefaultConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// retain_days: 0 disables pruning, so its default is set before decoding.
	cfg := Config{Storage: StorageConfig{RetainDays: DefaultRetainDays}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	resolveEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.API.TokenEnv == "" {
		cfg.API.TokenEnv = DefaultTokenEnv
	}
	if cfg.API.Timeout.Duration == 0 {
		cfg.API.Timeout.Duration = DefaultTimeout
	}
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = DefaultProvider
	}
	if cfg.Sync.Window.Duration == 0 {
		cfg.Sync.Window.Duration = DefaultWindow
	}
	if cfg.Sync.MaxStaleness.Duration == 0 {
		cfg.Sync.MaxStaleness.Duration = DefaultMaxStaleness
	}
	if cfg.Sync.DateFormat == "" {
		cfg.Sync.DateFormat = DefaultDateFormat
	}
	if cfg.Sync.LeaseTTL.Duration == 0 {
		cfg.Sync.LeaseTTL.Duration = DefaultLeaseTTL
	}
	if cfg.Schedule.Every.Duration == 0 {
		cfg.Schedule.Every.Duration = DefaultEvery
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Digest.Since.Duration == 0 {
		cfg.Digest.Since.Duration = DefaultDigestSince
	}
	if cfg.Digest.Limit == 0 {
		cfg.Digest.Limit = DefaultDigestLimit
	}
}

// resolveEnv lets the token env var override a literal token.
func resolveEnv(cfg *Config) {
	if v := os.Getenv(cfg.API.TokenEnv); v != "" {
		cfg.API.Token = v
	}
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		return errors.New("api.base_url is required")
	}
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url: unsupported scheme %q (want http or https)", u.Scheme)
	}

	if cfg.API.Timeout.Duration < 0 {
		return errors.New("api.timeout must be positive")
	}
	if cfg.Sync.Window.Duration < 0 {
		return errors.New("sync.window must be positive")
	}
	if cfg.Sync.MaxStaleness.Duration < cfg.Sync.Window.Duration {
		return errors.New("sync.max_staleness must not be shorter than sync.window")
	}
	if cfg.Sync.LeaseTTL.Duration < 0 {
		return errors.New("sync.lease_ttl must be positive")
	}
	if cfg.Schedule.Every.Duration < 0 {
		return errors.New("schedule.every must be positive")
	}
	if cfg.Storage.RetainDays < 0 {
		return errors.New("storage.retain_days must not be negative")
	}

	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if _, err := privacy.Compile(cfg.Log.Redact); err != nil {
		return fmt.Errorf("log.redact: %w", err)
	}

	return nil
}

// ParseLevel maps a config level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown level %q (want debug, info, warn or error)", level)
	}
	return l, nil
}
