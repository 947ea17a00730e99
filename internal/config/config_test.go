package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.StorageType)
	assert.Equal(t, int64(100), cfg.StartingBalance)
	assert.Equal(t, 0.05, cfg.RTPTolerance)
	assert.Equal(t, 720*time.Hour, cfg.RetentionPeriod)
	assert.Equal(t, "0 3 * * *", cfg.SweepSchedule)
	assert.False(t, cfg.ESEnabled)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("STORAGE_TYPE", "memory")
	t.Setenv("STARTING_BALANCE", "500")
	t.Setenv("RETENTION_PERIOD", "168h")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.StorageType)
	assert.Equal(t, int64(500), cfg.StartingBalance)
	assert.Equal(t, 168*time.Hour, cfg.RetentionPeriod)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadValidation(t *testing.T) {
	t.Run("bad storage type", func(t *testing.T) {
		t.Setenv("DATA_DIR", t.TempDir())
		t.Setenv("STORAGE_TYPE", "postgres")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad rtp tolerance", func(t *testing.T) {
		t.Setenv("DATA_DIR", t.TempDir())
		t.Setenv("RTP_TOLERANCE", "1.5")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad retention period", func(t *testing.T) {
		t.Setenv("DATA_DIR", t.TempDir())
		t.Setenv("RETENTION_PERIOD", "-24h")

		_, err := Load()
		assert.Error(t, err)
	})
}
