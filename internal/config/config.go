package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Offline OfflineConfig `mapstructure:"offline"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig holds backend connection configuration
type APIConfig struct {
	URL     string        `mapstructure:"url"`     // Backend base URL
	Token   string        `mapstructure:"token"`   // Bearer token (opaque to the client)
	Timeout time.Duration `mapstructure:"timeout"` // Per-attempt timeout
}

// CacheConfig holds response cache configuration
type CacheConfig struct {
	Dir        string        `mapstructure:"dir"`         // Durable store directory ("" = memory only)
	DefaultTTL time.Duration `mapstructure:"default_ttl"` // TTL for entries cached without one
}

// OfflineConfig holds offline queue and connectivity configuration
type OfflineConfig struct {
	MaxAttempts   int           `mapstructure:"max_attempts"`   // Replay cap before terminal failure
	ProbeInterval time.Duration `mapstructure:"probe_interval"` // Reachability check cadence
	ThrottleGap   time.Duration `mapstructure:"throttle_gap"`   // Pacing for bulk submissions
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			URL:     "",
			Token:   "",
			Timeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Dir:        defaultCachePath(),
			DefaultTTL: 5 * time.Minute,
		},
		Offline: OfflineConfig{
			MaxAttempts:   5,
			ProbeInterval: 15 * time.Second,
			ThrottleGap:   100 * time.Millisecond,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "mealmanager", "mealmanager.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "mealmanager", "mealmanager.log")
	}
}

// defaultConfigPath returns the default config file path for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "mealmanager")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "mealmanager")
	}
}

// defaultCachePath returns the default durable store directory for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "mealmanager", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "mealmanager", "cache")
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides (MEALMANAGER_API_URL -> api.url).
	// Defaults register every key so AutomaticEnv can see them.
	viper.SetEnvPrefix("MEALMANAGER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(cfg)

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	viper.SetDefault("api.url", cfg.API.URL)
	viper.SetDefault("api.token", cfg.API.Token)
	viper.SetDefault("api.timeout", cfg.API.Timeout.String())

	viper.SetDefault("cache.dir", cfg.Cache.Dir)
	viper.SetDefault("cache.default_ttl", cfg.Cache.DefaultTTL.String())

	viper.SetDefault("offline.max_attempts", cfg.Offline.MaxAttempts)
	viper.SetDefault("offline.probe_interval", cfg.Offline.ProbeInterval.String())
	viper.SetDefault("offline.throttle_gap", cfg.Offline.ThrottleGap.String())

	viper.SetDefault("logging.file", cfg.Logging.File)
	viper.SetDefault("logging.level", cfg.Logging.Level)
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	return saveConfigAt(defaultConfigPath(), cfg)
}

// saveConfigAt writes cfg to dir/config.yaml through a fresh viper
// instance, keys set individually to ensure snake_case names and
// durations written in their human-readable form.
func saveConfigAt(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.Set("api.url", cfg.API.URL)
	v.Set("api.token", cfg.API.Token)
	v.Set("api.timeout", cfg.API.Timeout.String())

	v.Set("cache.dir", cfg.Cache.Dir)
	v.Set("cache.default_ttl", cfg.Cache.DefaultTTL.String())

	v.Set("offline.max_attempts", cfg.Offline.MaxAttempts)
	v.Set("offline.probe_interval", cfg.Offline.ProbeInterval.String())
	v.Set("offline.throttle_gap", cfg.Offline.ThrottleGap.String())

	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveToken updates just the token, keeping the rest of the saved
// configuration intact.
func SaveToken(token string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	cfg.API.Token = token
	return SaveConfig(cfg)
}

// IsConfigured returns true if the backend URL and token are set
func (c *Config) IsConfigured() bool {
	return c.API.URL != "" && c.API.Token != ""
}
