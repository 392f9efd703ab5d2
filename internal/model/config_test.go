package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, DefaultTimeoutSec, cfg.API.TimeoutSec)
	assert.Equal(t, DefaultActivationSlot, cfg.Activation.Slot)
	assert.Equal(t, DefaultSweepIntervalSec, cfg.Activation.SweepIntervalSec)
	assert.Equal(t, DefaultPollIntervalSec, cfg.Sync.PollIntervalSec)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	cfg.API.BaseURL = "https://offers.example.com/api"
	cfg.Sync.PollIntervalSec = 60
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://offers.example.com/api", loaded.API.BaseURL)
	assert.Equal(t, time.Minute, loaded.Sync.PollInterval())
}

func TestLoadConfig_TrimsTrailingSlash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: http://localhost:8000/api/\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api", cfg.API.BaseURL)
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sync:\n  poll_interval_sec: 1\n"), 0o600))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "invalid config")
}
