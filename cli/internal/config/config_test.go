package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope", "config.yaml"))
	require.NoError(t, err)

	profile, err := cfg.GetProfile("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8081", profile.IngestURL)
	assert.Equal(t, "http://localhost:8085", profile.ReconURL)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	cfg.Profiles["staging"] = &Profile{
		IngestURL: "https://ingest.staging.example.com",
		ReconURL:  "https://recon.staging.example.com",
	}
	cfg.CurrentProfile = "staging"
	require.NoError(t, cfg.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reloaded, err := Load(path)
	require.NoError(t, err)

	profile, err := reloaded.GetProfile("staging")
	require.NoError(t, err)
	assert.Equal(t, "https://ingest.staging.example.com", profile.IngestURL)
	// Unset endpoints fall back to local defaults.
	assert.Equal(t, "http://localhost:8084", profile.RemitURL)
}

func TestGetProfileUnknown(t *testing.T) {
	cfg := Default()

	_, err := cfg.GetProfile("production")
	assert.Error(t, err)
}
