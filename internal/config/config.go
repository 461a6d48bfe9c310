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

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

const (
	maxReconnectAttempts = 10
	minSettleDelay       = 300 * time.Millisecond
	maxSettleDelay       = 500 * time.Millisecond
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	ServerURL         string
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	RoleRevealDelay   time.Duration
	ResumeSettleDelay time.Duration
	StoreBackend      string
	StorePath         string
	DatabaseURL       string
	HTTPAddr          string
	LogLevel          string
	LogFormat         string
}

// Load reads an optional .env file from the working directory and then the
// process environment. Variables already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables alone.
func FromEnv() (Config, error) {
	home, _ := os.UserHomeDir()
	c := Config{
		ServerURL:    str("IMPOSTOR_SERVER_URL", "ws://localhost:3001/ws"),
		StoreBackend: strings.ToLower(str("STORE_BACKEND", StoreFile)),
		StorePath:    str("STORE_PATH", filepath.Join(home, ".impostor")),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		HTTPAddr:     str("HTTP_ADDR", "127.0.0.1:8080"),
		LogLevel:     strings.ToLower(str("LOG_LEVEL", "info")),
		LogFormat:    strings.ToLower(str("LOG_FORMAT", "json")),
	}

	var errs, err error
	c.ReconnectAttempts, err = integer("RECONNECT_ATTEMPTS", maxReconnectAttempts)
	errs = multierr.Append(errs, err)
	c.ReconnectDelay, err = duration("RECONNECT_DELAY", time.Second)
	errs = multierr.Append(errs, err)
	c.RoleRevealDelay, err = duration("ROLE_REVEAL_DELAY", 5*time.Second)
	errs = multierr.Append(errs, err)
	c.ResumeSettleDelay, err = duration("RESUME_SETTLE_DELAY", maxSettleDelay)
	errs = multierr.Append(errs, err)
	if errs != nil {
		return Config{}, errs
	}

	c.ReconnectAttempts = min(max(c.ReconnectAttempts, 1), maxReconnectAttempts)
	c.ResumeSettleDelay = min(max(c.ResumeSettleDelay, minSettleDelay), maxSettleDelay)

	return c, c.validate()
}

func (c Config) validate() error {
	if !strings.HasPrefix(c.ServerURL, "ws://") && !strings.HasPrefix(c.ServerURL, "wss://") {
		return fmt.Errorf("%w: IMPOSTOR_SERVER_URL must be a ws:// or wss:// url, got %q", ErrInvalid, c.ServerURL)
	}
	switch c.StoreBackend {
	case StoreMemory, StoreFile:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for the postgres store", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown STORE_BACKEND %q", ErrInvalid, c.StoreBackend)
	}
	if c.RoleRevealDelay <= 0 {
		return fmt.Errorf("%w: ROLE_REVEAL_DELAY must be positive", ErrInvalid)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("%w: LOG_FORMAT must be json or console, got %q", ErrInvalid, c.LogFormat)
	}
	return nil
}

// Logger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: LOG_LEVEL: %v", ErrInvalid, err)
	}

	zc := zap.NewProductionConfig()
	if c.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func integer(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return n, nil
}

func duration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return d, nil
}
