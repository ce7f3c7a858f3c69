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
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 3004, cfg.Port)
	assert.Equal(t, 50, cfg.SyncDefaultLimit)
	assert.Equal(t, 1000, cfg.SyncMaxLimit)
	assert.Equal(t, "products", cfg.SearchProductsIndex)
	assert.Equal(t, "medusa_id", cfg.CMSForeignKeyField)
	assert.Equal(t, 10*time.Second, cfg.SearchTimeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("SYNC_DEFAULT_LIMIT", "25")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 25, cfg.SyncDefaultLimit)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CMS_WEBHOOK_SECRET=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("CMS_WEBHOOK_SECRET") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.CMSWebhookSecret)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := Config{
		DatabaseHost:     "db",
		DatabasePort:     "5433",
		DatabaseUserName: "fern",
		DatabasePassword: "secret",
		DatabaseName:     "commerce",
		DatabaseSSLMode:  "require",
	}
	assert.Equal(t, "host=db port=5433 user=fern password=secret dbname=commerce sslmode=require", cfg.DatabaseDSN())
}

func TestLoad_DurationAndBoolOverrides(t *testing.T) {
	t.Setenv("SEARCH_TIMEOUT", "3s")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("HTTP_SERVER_ALLOW_METHODS", "GET,POST")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.SearchTimeout)
	assert.False(t, cfg.RedisEnabled)
	assert.Equal(t, []string{"GET", "POST"}, cfg.AllowMethods)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
