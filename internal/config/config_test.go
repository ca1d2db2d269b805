package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "static", cfg.Payment.Gateway)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
	assert.Equal(t, 5*time.Second, cfg.Outbox.PollInterval)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	yml := `
server:
  port: 9090
storage:
  driver: memory
scheduling:
  timezone: Europe/Berlin
outbox:
  batch_size: 7
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o600))
	t.Setenv("BOOKING_DB_HOST", "db.internal")
	t.Setenv("BOOKING_PORT", "7070")

	cfg, err := Load(viper.New(), dir)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 7, cfg.Outbox.ToWorkerConfig().BatchSize)

	loc, err := cfg.Scheduling.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestValidate(t *testing.T) {
	cfg, err := Load(viper.New(), t.TempDir())
	require.NoError(t, err)

	cfg.Storage.Driver = "sqlite"
	assert.Error(t, cfg.Validate())

	cfg.Storage.Driver = "memory"
	cfg.Payment.Gateway = "http"
	assert.Error(t, cfg.Validate())

	cfg.Payment.BaseURL = "https://pay.example.com"
	assert.NoError(t, cfg.Validate())

	cfg.Scheduling.Timezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())
}
