package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:       AppConfig{Environment: "development"},
		Logger:    LoggerConfig{Level: "info"},
		Storage:   StorageConfig{DataPath: "/var/lib/shelfwise"},
		RateLimit: RateLimitConfig{RPS: 10, Burst: 20},
		Sweep:     SweepConfig{Interval: time.Hour},
		Notify:    NotifyConfig{RetryInterval: time.Second},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Environments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"PRODUCTION", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env
			if tt.valid {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := map[string]func(*Config){
		"bad log level":      func(c *Config) { c.Logger.Level = "verbose" },
		"empty data path":    func(c *Config) { c.Storage.DataPath = "" },
		"zero rps":           func(c *Config) { c.RateLimit.RPS = 0 },
		"zero burst":         func(c *Config) { c.RateLimit.Burst = 0 },
		"negative sweep":     func(c *Config) { c.Sweep.Interval = -time.Second },
		"zero retry backoff": func(c *Config) { c.Notify.RetryInterval = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load([]string{"-data-path", dir, "-env-file", filepath.Join(dir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, time.Hour, cfg.Sweep.Interval)
	assert.Equal(t, "shelfwise.notifications", cfg.Notify.Queue)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, filepath.Join(dir, "shelfwise.db"), cfg.Storage.DatabasePath())
}

func TestLoad_FlagBeatsEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("SWEEP_INTERVAL", "5m")
	dir := t.TempDir()

	cfg, err := Load([]string{"-data-path", dir, "-port", "7000", "-env-file", ""})
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Sweep.Interval)
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := Load([]string{"-data-path", t.TempDir(), "-sweep-interval", "soon", "-env-file", ""})
	assert.ErrorContains(t, err, "SWEEP_INTERVAL")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/shelf", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "shelf"), got)

	got, err = expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	got, err = expandPath("relative/dir", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("SHELFWISE_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "SHELFWISE_TEST_KEY", "default"))
	assert.Equal(t, "from-env", getConfigValue("", "SHELFWISE_TEST_KEY", "default"))
	assert.Equal(t, "default", getConfigValue("", "SHELFWISE_TEST_UNSET", "default"))
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\n\nSHELFWISE_A=one\nSHELFWISE_B = \"two\"\nSHELFWISE_C=three\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("SHELFWISE_C", "kept")
	t.Setenv("SHELFWISE_A", "")
	t.Setenv("SHELFWISE_B", "")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "one", os.Getenv("SHELFWISE_A"))
	assert.Equal(t, "two", os.Getenv("SHELFWISE_B"))
	assert.Equal(t, "kept", os.Getenv("SHELFWISE_C"))
}

func TestLoadEnvFile_InvalidLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOT_A_PAIR\n"), 0o600))
	assert.ErrorContains(t, loadEnvFile(path), "line 1")
}
