package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
)

// FileEnv names the environment variable pointing at an optional YAML file.
const FileEnv = "DESKFS_CONFIG"

// Lower layer kinds
const (
	LowerNone = "none"
	LowerDir  = "dir"
	LowerHTTP = "http"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LogConfig       `yaml:"logging"`
	Storage   StorageConfig   `yaml:"storage"`
	VFS       VFSConfig       `yaml:"vfs"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" yaml:"port" validate:"required,numeric"`
	Host string `envconfig:"HOST" yaml:"host" validate:"required"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `envconfig:"LOG_DEV" yaml:"development"`
}

// StorageConfig selects the layers of the overlay base store.
type StorageConfig struct {
	// DataDir holds the badger upper layer; empty keeps it in memory
	DataDir     string        `envconfig:"DESKFS_DATA_DIR" yaml:"data_dir"`
	Lower       string        `envconfig:"DESKFS_LOWER" yaml:"lower" validate:"oneof=none dir http"`
	LowerSource string        `envconfig:"DESKFS_LOWER_SOURCE" yaml:"lower_source" validate:"required_unless=Lower none"`
	IndexPath   string        `envconfig:"DESKFS_INDEX_PATH" yaml:"index_path" validate:"startswith=/"`
	HTTPTimeout time.Duration `envconfig:"DESKFS_HTTP_TIMEOUT" yaml:"http_timeout" validate:"gt=0"`
	HTTPRetries int           `envconfig:"DESKFS_HTTP_RETRIES" yaml:"http_retries" validate:"gte=0"`
	// BreakerThreshold consecutive failed fetches pause the HTTP lower
	// layer for BreakerCooldown
	BreakerThreshold int           `envconfig:"DESKFS_BREAKER_THRESHOLD" yaml:"breaker_threshold" validate:"gte=1"`
	BreakerCooldown  time.Duration `envconfig:"DESKFS_BREAKER_COOLDOWN" yaml:"breaker_cooldown" validate:"gt=0"`
}

// VFSConfig tunes the file system manager.
type VFSConfig struct {
	TempPath      string   `envconfig:"DESKFS_TEMP_PATH" yaml:"temp_path" validate:"startswith=/"`
	MaxCollisions int      `envconfig:"DESKFS_MAX_COLLISIONS" yaml:"max_collisions" validate:"gte=1"`
	PinnedMounts  []string `envconfig:"DESKFS_PINNED_MOUNTS" yaml:"pinned_mounts" validate:"dive,startswith=/"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" yaml:"rps" validate:"gte=1"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" yaml:"burst" validate:"gte=1"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" yaml:"enabled"`
}

// CORSConfig holds cross-origin settings for the HTTP API.
type CORSConfig struct {
	AllowOrigins []string `envconfig:"CORS_ORIGINS" yaml:"allow_origins" validate:"min=1"`
}

var validate = validator.New()

// Load builds configuration from defaults, the optional YAML file and the
// environment, in that order.
func Load() (*Config, error) {
	cfg := Default()

	if file := os.Getenv(FileEnv); file != "" {
		if err := cfg.mergeFile(file); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) mergeFile(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", file, err)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			Lower:       LowerNone,
			IndexPath:   "/.index/fs.json",
			HTTPTimeout: 30 * time.Second,
			HTTPRetries: 2,

			BreakerThreshold: 5,
			BreakerCooldown:  30 * time.Second,
		},
		VFS: VFSConfig{
			TempPath:      paths.Temp,
			MaxCollisions: 10000,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"*"},
		},
	}
}
