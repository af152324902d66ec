package config

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://bookshare@localhost/bookshare")
	t.Setenv("JWT_SECRET", secret)
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 14*24*time.Hour, cfg.LoanPeriod)
	assert.Equal(t, "America/New_York", cfg.ReminderTimezone)
	assert.Equal(t, 9, cfg.ReminderHour)
	assert.Equal(t, 0, cfg.ReminderMinute)
	assert.True(t, cfg.SchedulerEnabled)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, "bookshare:changes:", cfg.ChangefeedPrefix)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOAN_PERIOD", "168h")
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 7*24*time.Hour, cfg.LoanPeriod)
	assert.False(t, cfg.SchedulerEnabled)
	assert.InDelta(t, 0.5, cfg.RateLimitRPS, 1e-9)
	assert.Equal(t, "redis://cache:6379/0", cfg.RedisURL)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing database url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		t.Setenv("JWT_SECRET", secret)
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "DATABASE_URL")
	})
	t.Run("bad duration", func(t *testing.T) {
		setRequired(t)
		t.Setenv("LOAN_PERIOD", "two weeks")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "LOAN_PERIOD")
	})
}

func TestValidate(t *testing.T) {
	setRequired(t)
	base, err := LoadConfig()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "JWT_SECRET"},
		{"bad port", func(c *Config) { c.HTTPPort = 70000 }, "HTTP_PORT"},
		{"bad level", func(c *Config) { c.LogLevel = "verbose" }, "LOG_LEVEL"},
		{"bad zone", func(c *Config) { c.ReminderTimezone = "Mars/Olympus" }, "REMINDER_TIMEZONE"},
		{"bad hour", func(c *Config) { c.ReminderHour = 24 }, "REMINDER_HOUR"},
		{"tls without cert", func(c *Config) { c.TLSEnabled = true; c.TLSCertPath = "" }, "TLS_CERT_PATH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	cfg := &Config{LogLevel: "warn", LogFormat: "json"}
	logger := cfg.NewLogger()
	ctx := context.Background()
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))
}
