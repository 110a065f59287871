package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 3, cfg.Loan.Limit)
	assert.Equal(t, "memory", cfg.EventBus.Driver)
	assert.Equal(t, "log", cfg.Notify.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.Jwt.Expiry)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5, cfg.Outbox.MaxAttempts)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("LOAN_LIMIT", "5")
	t.Setenv("LEDGER_MAX_RETRIES", "9")
	t.Setenv("EVENT_BUS_DRIVER", "redis")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("OUTBOX_POLL_INTERVAL", "2s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Loan.Limit)
	assert.Equal(t, 9, cfg.Ledger.MaxRetries)
	assert.Equal(t, "redis", cfg.EventBus.Driver)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Second, cfg.Outbox.PollInterval)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	_ = os.Unsetenv("AUTH_JWT_SECRET")
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unknown bus", "EVENT_BUS_DRIVER", "carrier-pigeon"},
		{"smtp without host", "NOTIFY_DRIVER", "smtp"},
		{"negative loan limit", "LOAN_LIMIT", "-1"},
		{"bad log format", "LOG_FORMAT", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AUTH_JWT_SECRET", "secret")
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.env")
	require.NoError(t, os.WriteFile(path, []byte("AUTH_JWT_SECRET=from-file\nLOAN_LIMIT=7\n"), 0o600))
	t.Setenv("AUTH_JWT_SECRET", "")
	_ = os.Unsetenv("AUTH_JWT_SECRET")
	t.Setenv("LOAN_LIMIT", "")
	_ = os.Unsetenv("LOAN_LIMIT")
	t.Cleanup(func() {
		_ = os.Unsetenv("AUTH_JWT_SECRET")
		_ = os.Unsetenv("LOAN_LIMIT")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Auth.Jwt.Secret)
	assert.Equal(t, 7, cfg.Loan.Limit)
}

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "****", maskValue("short"))
	assert.Equal(t, "po****able", maskValue("postgres://x?sslmode=disable"))
}
