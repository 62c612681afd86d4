// Package config loads server and CLI configuration from flags, environment
// variables, a .env file, and defaults, in that order of precedence.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Storage   StorageConfig
	Server    ServerConfig
	RateLimit RateLimitConfig
	Sweep     SweepConfig
	Notify    NotifyConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig locates the on-disk state.
type StorageConfig struct {
	// DataPath holds the database, the search index and the notification outbox.
	DataPath string
}

// DatabasePath is the SQLite file inside DataPath.
func (s StorageConfig) DatabasePath() string { return filepath.Join(s.DataPath, "shelfwise.db") }

// SearchPath is the bleve index directory inside DataPath.
func (s StorageConfig) SearchPath() string { return filepath.Join(s.DataPath, "search") }

// OutboxPath is the badger outbox directory inside DataPath.
func (s StorageConfig) OutboxPath() string { return filepath.Join(s.DataPath, "outbox") }

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	CORSAllowedOrigins []string
}

// RateLimitConfig bounds per-client request rates on mutating routes.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// SweepConfig controls the background maintenance job.
type SweepConfig struct {
	// Interval between sweeps. Zero disables the background job.
	Interval time.Duration
}

// NotifyConfig selects and tunes notification delivery.
type NotifyConfig struct {
	// AMQPURL selects the AMQP transport when set; otherwise notices are logged.
	AMQPURL       string
	Queue         string
	RetryInterval time.Duration
}

// LoadConfig loads configuration for os.Args.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load parses args and resolves every value with precedence
// flag > environment > .env file > default.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("shelfwise", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Directory for the database, search index and outbox")
	port := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma separated list of allowed CORS origins")
	rps := fs.String("rate-limit-rps", "", "Requests per second per client on mutating routes (default: 20)")
	burst := fs.String("rate-limit-burst", "", "Burst size per client (default: 40)")
	sweepInterval := fs.String("sweep-interval", "", "Interval between maintenance sweeps, 0 disables (default: 1h)")
	amqpURL := fs.String("amqp-url", "", "AMQP broker URL for notifications")
	queue := fs.String("notify-queue", "", "AMQP queue name (default: shelfwise.notifications)")
	retryInterval := fs.String("notify-retry-interval", "", "Outbox retry interval (default: 30s)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App:    AppConfig{Environment: getConfigValue(*env, "ENV", "development")},
		Logger: LoggerConfig{Level: getConfigValue(*logLevel, "LOG_LEVEL", "info")},
		Storage: StorageConfig{
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:               getConfigValue(*port, "SERVER_PORT", "8080"),
			CORSAllowedOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ALLOWED_ORIGINS", "*")),
		},
		RateLimit: RateLimitConfig{
			RPS:   getFloatConfigValue(*rps, "RATE_LIMIT_RPS", 20),
			Burst: getIntConfigValue(*burst, "RATE_LIMIT_BURST", 40),
		},
		Notify: NotifyConfig{
			AMQPURL: getConfigValue(*amqpURL, "NOTIFY_AMQP_URL", ""),
			Queue:   getConfigValue(*queue, "NOTIFY_QUEUE", "shelfwise.notifications"),
		},
	}

	durations := []struct {
		flagValue, key, def string
		dst                 *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*sweepInterval, "SWEEP_INTERVAL", "1h", &cfg.Sweep.Interval},
		{*retryInterval, "NOTIFY_RETRY_INTERVAL", "30s", &cfg.Notify.RetryInterval},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.key, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.key, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	case "":
		return errors.New("ENV is required")
	default:
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("rate limit rps and burst must be positive")
	}
	if c.Sweep.Interval < 0 {
		return errors.New("sweep interval cannot be negative")
	}
	if c.Notify.RetryInterval <= 0 {
		return errors.New("notify retry interval must be positive")
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// An empty path resolves to defaultPath.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = abs
	}
	return filepath.Clean(path), nil
}

func (c *Config) expandDataPath() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	expanded, err := expandPath(c.Storage.DataPath, filepath.Join(home, ".shelfwise"))
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue
	}
	var v int
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil {
		return defaultValue
	}
	return v
}

func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue
	}
	var v float64
	if _, err := fmt.Sscanf(raw, "%g", &v); err != nil {
		return defaultValue
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadEnvFile loads KEY=value lines from path without overriding variables
// that are already set.
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- path comes from the operator
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}
