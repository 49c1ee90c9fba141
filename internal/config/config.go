package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for ocrdesk
type Config struct {
	Backend Backend `mapstructure:"backend"`
	Upload  Upload  `mapstructure:"upload"`
	Polling Polling `mapstructure:"polling"`
	Storage Storage `mapstructure:"storage"`
	Watch   Watch   `mapstructure:"watch"`
	Server  Server  `mapstructure:"server"`
}

// Backend holds OCR backend connection settings
type Backend struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // seconds, per request

	// Client-side request pacing and breaker settings
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
	BreakerEnabled    bool    `mapstructure:"breaker_enabled"`
}

// Upload holds client-side upload constraints
type Upload struct {
	MaxFileSize  int64    `mapstructure:"max_file_size"` // bytes
	MaxBatchSize int      `mapstructure:"max_batch_size"`
	AllowedTypes []string `mapstructure:"allowed_types"` // file extensions
	Concurrency  int      `mapstructure:"concurrency"`

	// Defaults for OCR options when the user gives none
	Language string `mapstructure:"language"`
	Engine   string `mapstructure:"engine"`
	Quality  string `mapstructure:"quality"`
}

// Polling holds job status polling settings
type Polling struct {
	Interval         time.Duration `mapstructure:"interval"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	TransportRetries int           `mapstructure:"transport_retries"` // consecutive transport failures tolerated per run
}

// Storage holds local database settings
type Storage struct {
	DataDir    string `mapstructure:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
	BadgerPath string `mapstructure:"badger_path"`
	ExportDir  string `mapstructure:"export_dir"`
}

// Watch holds hot-folder settings
type Watch struct {
	Enabled      bool   `mapstructure:"enabled"`
	Dir          string `mapstructure:"dir"`
	SettleDelay  int    `mapstructure:"settle_delay"` // seconds to wait for a file to stop growing
	SweepCron    string `mapstructure:"sweep_cron"`
	CacheGCCron  string `mapstructure:"cache_gc_cron"`
}

// Server holds local status server settings
type Server struct {
	Address      string `mapstructure:"address"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.SetDefault("storage.sqlite_path", filepath.Join(dataDir, "ocrdesk.db"))
	v.SetDefault("storage.badger_path", filepath.Join(dataDir, "badger"))
	v.SetDefault("storage.export_dir", filepath.Join(dataDir, "exports"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "ocrdesk.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Environment variables (OCRDESK_BACKEND_BASE_URL, OCRDESK_BACKEND_API_KEY, etc.)
	v.SetEnvPrefix("OCRDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Backend defaults
	v.SetDefault("backend.base_url", "http://localhost:3000")
	v.SetDefault("backend.timeout", 60)
	v.SetDefault("backend.requests_per_second", 10.0)
	v.SetDefault("backend.burst", 20)
	v.SetDefault("backend.breaker_enabled", true)

	// Upload defaults
	v.SetDefault("upload.max_file_size", int64(100*1024*1024)) // 100 MiB
	v.SetDefault("upload.max_batch_size", 10)
	v.SetDefault("upload.allowed_types", []string{"pdf", "png", "jpg", "jpeg", "webp", "tiff"})
	v.SetDefault("upload.concurrency", 3)
	v.SetDefault("upload.language", "eng")
	v.SetDefault("upload.engine", "tesseract")
	v.SetDefault("upload.quality", "balanced")

	// Polling defaults: 2s interval, 150 attempts = 5 minute ceiling
	v.SetDefault("polling.interval", 2*time.Second)
	v.SetDefault("polling.max_attempts", 150)
	v.SetDefault("polling.transport_retries", 3)

	// Watch defaults
	v.SetDefault("watch.enabled", false)
	v.SetDefault("watch.settle_delay", 2)
	v.SetDefault("watch.sweep_cron", "@every 1m")
	v.SetDefault("watch.cache_gc_cron", "@every 10m")

	// Server defaults
	v.SetDefault("server.address", "127.0.0.1")
	v.SetDefault("server.port", 8750)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
}

func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "ocrdesk")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "ocrdesk")
}

// loadEnvOverrides loads specific env vars that Viper doesn't pick up
// reliably for nested keys
func loadEnvOverrides(cfg *Config) {
	getEnv := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	cfg.Backend.BaseURL = getEnv("OCRDESK_BACKEND_BASE_URL", cfg.Backend.BaseURL)
	cfg.Backend.APIKey = getEnv("OCRDESK_BACKEND_API_KEY", cfg.Backend.APIKey)
	cfg.Storage.DataDir = getEnv("OCRDESK_STORAGE_DATA_DIR", cfg.Storage.DataDir)
	cfg.Watch.Dir = getEnv("OCRDESK_WATCH_DIR", cfg.Watch.Dir)
}

func validate(cfg *Config) error {
	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	cfg.Backend.BaseURL = strings.TrimRight(cfg.Backend.BaseURL, "/")

	if cfg.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("upload.max_file_size must be positive")
	}
	if cfg.Upload.MaxBatchSize <= 0 {
		return fmt.Errorf("upload.max_batch_size must be positive")
	}
	if cfg.Upload.Concurrency <= 0 {
		cfg.Upload.Concurrency = 1
	}

	if cfg.Polling.Interval <= 0 {
		return fmt.Errorf("polling.interval must be positive")
	}
	if cfg.Polling.MaxAttempts <= 0 {
		return fmt.Errorf("polling.max_attempts must be positive")
	}

	if cfg.Watch.Enabled && cfg.Watch.Dir == "" {
		return fmt.Errorf("watch.dir is required when watch.enabled is set")
	}

	return nil
}

// DefaultConfig returns a config populated with defaults only, without
// touching the filesystem or environment.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	return &cfg
}

// AllowedType reports whether a file extension (without dot, any case) is
// accepted for upload.
func (c *Config) AllowedType(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "tif" {
		ext = "tiff"
	}
	for _, t := range c.Upload.AllowedTypes {
		if t == ext {
			return true
		}
	}
	return false
}
