package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, 5.0, cfg.Trade.ProximityUnits)
	assert.Equal(t, 2*time.Second, cfg.Trade.PollInterval)
	assert.True(t, cfg.Trade.CompareAndSwap)
	assert.Equal(t, "chebyshev", cfg.Scene.Measurement)
}

func TestLoad_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "trade:\n  proximity_units: 3\n  compare_and_swap: false\nscene:\n  room_id: crypt\n  transport: pubsub\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3.0, cfg.Trade.ProximityUnits)
	assert.False(t, cfg.Trade.CompareAndSwap)
	assert.Equal(t, "crypt", cfg.Scene.RoomID)
	assert.Equal(t, "pubsub", cfg.Scene.Transport)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 150.0, cfg.Scene.GridDPI)
	assert.Equal(t, 168*time.Hour, cfg.Cache.CharacterTTL)
	assert.Empty(t, cfg.Server.HostKey)
}
