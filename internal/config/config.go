package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends accepted by STORAGE_BACKEND.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Config struct {
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string     `env:"LOG_LEVEL"   envDefault:"info"`
	LogLevel    slog.Level `env:"-"`
	LogFile     string     `env:"LOG_FILE"`

	ContentDir string `env:"CONTENT_DIR" envDefault:"./data"`

	StorageBackend  string `env:"STORAGE_BACKEND"  envDefault:"file"`
	DataDir         string `env:"DATA_DIR"         envDefault:"./saves"`
	SQLitePath      string `env:"SQLITE_PATH"      envDefault:"./saves/novel.db"`
	RedisURL        string `env:"REDIS_URL"        envDefault:"redis://localhost:6379/0"`
	StorageCompress bool   `env:"STORAGE_COMPRESS" envDefault:"false"`
	KeyPrefix       string `env:"KEY_PREFIX"       envDefault:"novel"`

	SaveSlots        int           `env:"SAVE_SLOTS"        envDefault:"6"`
	AutoSaveInterval time.Duration `env:"AUTOSAVE_INTERVAL" envDefault:"60s"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	cfg.StorageBackend = strings.ToLower(cfg.StorageBackend)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that env parsing alone cannot.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory, BackendFile, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.SaveSlots <= 0 {
		return fmt.Errorf("SAVE_SLOTS must be positive, got %d", c.SaveSlots)
	}
	if c.AutoSaveInterval < 0 {
		return fmt.Errorf("AUTOSAVE_INTERVAL must not be negative, got %s", c.AutoSaveInterval)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
