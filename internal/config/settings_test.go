package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	settings, err := Load(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	in := DefaultSettings()
	in.MaxConcurrent = 4
	in.OutputFormat = "avi"
	in.LabelFont = "/usr/share/fonts/some.ttf"
	require.NoError(t, Save(path, in))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadMergesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"maxConcurrent": 3}`), 0644))

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, settings.MaxConcurrent)
	defaults := DefaultSettings()
	assert.Equal(t, defaults.MaxRetries, settings.MaxRetries)
	assert.Equal(t, defaults.OutputFormat, settings.OutputFormat)
	assert.Equal(t, defaults.FrameDelay, settings.FrameDelay)
	assert.Equal(t, defaults.CachePath, settings.CachePath)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
