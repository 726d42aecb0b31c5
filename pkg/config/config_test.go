package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp 切换到临时目录，避免读到仓库里的config.yaml
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := LoadConfig("friend-service")
	require.NoError(t, err)

	assert.Equal(t, "friend-service", cfg.App.Name)
	assert.Equal(t, 24*time.Hour, cfg.App.TokenTTL)
	assert.Equal(t, ":21003", cfg.Server.HTTP.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.HTTP.Timeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Database.MaxRetries)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "friend-events", cfg.Kafka.Topic)
	assert.Equal(t, 30, cfg.Invite.RateLimit)
	assert.Equal(t, time.Minute, cfg.Invite.RateWindow)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := chdirTemp(t)

	yaml := []byte(`
app:
  log_level: debug
database:
  driver: sqlite
  sqlite:
    dsn: "file::memory:"
invite:
  rate_limit: 5
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("APP_JWT_SECRET", "from-env")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadConfig("friend-service")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "from-env", cfg.App.JWTSecret)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file::memory:", cfg.Database.SQLite.DSN)
	assert.Equal(t, 5, cfg.Invite.RateLimit)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DATABASE_DRIVER", "mysql")

	_, err := LoadConfig("friend-service")
	assert.ErrorContains(t, err, "unsupported database driver")
}
