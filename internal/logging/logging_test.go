package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kahan44/airdine/internal/model"
)

func TestNewWriter_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(NewWriter(&buf, model.LogConfig{Level: "debug", Format: "json"}), "activation")

	log.Debug().Int64("offer_id", 7).Msg("activated")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "activation", entry["component"])
	assert.Equal(t, "activated", entry["message"])
	assert.EqualValues(t, 7, entry["offer_id"])
}

func TestNewWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, model.LogConfig{Level: "warn", Format: "json"})

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWriter_BadLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, model.LogConfig{Level: "loud"})

	log.Debug().Msg("hidden")
	log.Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "airdine.log")

	log, closer, err := New(model.LogConfig{Level: "info", Format: "console", File: path})
	require.NoError(t, err)
	log.Info().Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestNew_EmptyFileIsNop(t *testing.T) {
	log, closer, err := New(model.LogConfig{})
	require.NoError(t, err)
	log.Info().Msg("dropped")
	assert.NoError(t, closer.Close())
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "***", Redact("short"))
	assert.Equal(t, "eyJh...Xy", Redact("eyJhbGciOiJIUzI1NiJ9.abc.Xy"))
}
