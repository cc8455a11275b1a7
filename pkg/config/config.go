// Package config reads healctl settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/helmcode/healctl/pkg/detector/logs"
)

const envPrefix = "HEALCTL_"

// Config holds process-wide settings. CLI flags override these values.
type Config struct {
	LogLevel               string
	LogFormat              string
	Output                 string
	HighErrorRateThreshold int
	MaxLineBytes           int
}

// Load reads the given .env files, or ./.env when none are given, and then
// the HEALCTL_* environment. A missing ./.env is not an error; a missing
// explicitly named file is. Variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("loading env files: %w", err)
	}

	threshold, err := getEnvAsInt("HIGH_ERROR_RATE_THRESHOLD", logs.DefaultThreshold)
	if err != nil {
		return nil, err
	}
	maxLine, err := getEnvAsInt("MAX_LINE_BYTES", logs.DefaultMaxLineBytes)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:               strings.ToLower(getEnv("LOG_LEVEL", "warn")),
		LogFormat:              strings.ToLower(getEnv("LOG_FORMAT", "text")),
		Output:                 strings.ToLower(getEnv("OUTPUT", "human")),
		HighErrorRateThreshold: threshold,
		MaxLineBytes:           maxLine,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%sLOG_LEVEL must be one of debug, info, warn, error; got %q", envPrefix, c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%sLOG_FORMAT must be text or json; got %q", envPrefix, c.LogFormat)
	}
	switch c.Output {
	case "human", "json", "yaml":
	default:
		return fmt.Errorf("%sOUTPUT must be one of human, json, yaml; got %q", envPrefix, c.Output)
	}
	if c.HighErrorRateThreshold < 1 {
		return fmt.Errorf("%sHIGH_ERROR_RATE_THRESHOLD must be positive; got %d", envPrefix, c.HighErrorRateThreshold)
	}
	if c.MaxLineBytes < 1 {
		return fmt.Errorf("%sMAX_LINE_BYTES must be positive; got %d", envPrefix, c.MaxLineBytes)
	}
	return nil
}

// SlogLevel returns the configured slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// SetupLogging installs a text or JSON handler writing to w at the
// configured level as the default logger and returns it.
func (c *Config) SetupLogging(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	var handler slog.Handler
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// LogDetector returns the log family settings.
func (c *Config) LogDetector() logs.Config {
	return logs.Config{
		Threshold:    c.HighErrorRateThreshold,
		MaxLineBytes: c.MaxLineBytes,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(envPrefix + key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s%s must be an integer: %w", envPrefix, key, err)
	}
	return n, nil
}
