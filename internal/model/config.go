package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kahan44/airdine/internal/validator"
)

// Default configuration values.
const (
	DefaultBaseURL          = "http://127.0.0.1:8000/api"
	DefaultTimeoutSec       = 30
	DefaultMaxRetries       = 3
	DefaultPollIntervalSec  = 120
	DefaultSweepIntervalSec = 30
	DefaultActivationSlot   = "airdine_activated_offers"
)

// APIConfig holds settings for the remote AirDine backend.
type APIConfig struct {
	// BaseURL is the API root, including the /api prefix.
	BaseURL    string `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec" validate:"min=1"`
	MaxRetries int    `mapstructure:"max_retries" yaml:"max_retries" validate:"min=0,max=10"`
}

// Timeout returns the per-request timeout.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// SyncConfig controls background offer polling.
type SyncConfig struct {
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec" validate:"min=10"`
}

// PollInterval returns the feed poll interval as a duration.
func (c SyncConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// ActivationConfig controls the local activation store.
type ActivationConfig struct {
	// SweepIntervalSec is how often expired activations are pruned.
	SweepIntervalSec int `mapstructure:"sweep_interval_sec" yaml:"sweep_interval_sec" validate:"min=1"`

	// Slot names the durable storage slot holding activations.
	Slot string `mapstructure:"slot" yaml:"slot" validate:"required,notblank"`
}

// SweepInterval returns the prune interval as a duration.
func (c ActivationConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSec) * time.Second
}

// StorageConfig locates the local SQLite database.
type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path" validate:"required"`
}

// LogConfig controls the client log file.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	File   string `mapstructure:"file" yaml:"file"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=json console"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API        APIConfig        `mapstructure:"api" yaml:"api"`
	Sync       SyncConfig       `mapstructure:"sync" yaml:"sync"`
	Activation ActivationConfig `mapstructure:"activation" yaml:"activation"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Display    DisplayConfig    `mapstructure:"display" yaml:"display"`
}

// configDir returns ~/.config/airdine, or the working directory when the
// home directory cannot be resolved.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "airdine")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/airdine/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// setDefaults registers every key so missing keys and AIRDINE_* env
// overrides both resolve.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.timeout_sec", DefaultTimeoutSec)
	v.SetDefault("api.max_retries", DefaultMaxRetries)
	v.SetDefault("sync.poll_interval_sec", DefaultPollIntervalSec)
	v.SetDefault("activation.sweep_interval_sec", DefaultSweepIntervalSec)
	v.SetDefault("activation.slot", DefaultActivationSlot)
	v.SetDefault("storage.path", filepath.Join(configDir(), "airdine.db"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(configDir(), "airdine.log"))
	v.SetDefault("log.format", "json")
	v.SetDefault("display.theme", "default")
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A missing file yields the defaults; AIRDINE_* environment variables
// override both (e.g. AIRDINE_API_BASE_URL).
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("airdine")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	cfg.Log.File = expandHome(cfg.Log.File)

	if err := validator.Get().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("sync", cfg.Sync)
	v.Set("activation", cfg.Activation)
	v.Set("storage", cfg.Storage)
	v.Set("log", cfg.Log)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
