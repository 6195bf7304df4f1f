package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	ServerPort    string `env:"SERVER_PORT,default=8080"`
	StorageDriver string `env:"STORAGE_DRIVER,default=postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	SQLitePath    string `env:"SQLITE_PATH,default=deltasync.db"`
	RedisURL      string `env:"REDIS_URL"`
	JWTSecret     string `env:"JWT_SECRET"`
	EntitiesFile  string `env:"ENTITIES_FILE"`

	TombstoneRetentionRaw string `env:"TOMBSTONE_RETENTION,default=720h"`
	CursorTTLRaw          string `env:"CURSOR_TTL,default=24h"`
	DefaultPageSize       int    `env:"SYNC_DEFAULT_PAGE_SIZE,default=100"`
	MaxPageSize           int    `env:"SYNC_MAX_PAGE_SIZE,default=1000"`

	CORSAllowedOriginsRaw string `env:"CORS_ALLOWED_ORIGINS,default=*"`
	LogLevel              string `env:"LOG_LEVEL,default=info"`
	LogFormat             string `env:"LOG_FORMAT,default=json"`

	TombstoneRetention time.Duration
	CursorTTL          time.Duration
	CORSAllowedOrigins []string
}

func LoadConfig() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	retention, err := time.ParseDuration(cfg.TombstoneRetentionRaw)
	if err != nil || retention <= 0 {
		return nil, errors.New("invalid TOMBSTONE_RETENTION format")
	}
	cfg.TombstoneRetention = retention

	cursorTTL, err := time.ParseDuration(cfg.CursorTTLRaw)
	if err != nil || cursorTTL <= 0 {
		return nil, errors.New("invalid CURSOR_TTL format")
	}
	cfg.CursorTTL = cursorTTL

	for _, origin := range strings.Split(cfg.CORSAllowedOriginsRaw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	// Validate required fields
	switch cfg.StorageDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required")
		}
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLITE_PATH is required")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.DefaultPageSize <= 0 || cfg.MaxPageSize < cfg.DefaultPageSize {
		return nil, errors.New("SYNC_DEFAULT_PAGE_SIZE must be positive and not exceed SYNC_MAX_PAGE_SIZE")
	}

	return &cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
