package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/grocery/internal/remote"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GROCERY_API_URL", "API_URL", "PORT", "GROCERY_LISTEN", "GROCERY_SYNC_INTERVAL", "GROCERY_PROBE_INTERVAL", "GROCERY_REQUEST_TIMEOUT", "GROCERY_LOG_LEVEL", "GROCERY_LOG_FORMAT"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigWritesDefaults(t *testing.T) {
	clearConfigEnv(t)
	dir := filepath.Join(t.TempDir(), "nested")

	v, err := loadConfig(dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, configFileExt))

	s, err := settingsFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", s.Backend)
	assert.Equal(t, remote.DefaultBaseURL, s.APIURL)
	assert.Equal(t, defaultListen, s.Listen)
	assert.Equal(t, 5*time.Second, s.SyncInterval)
	assert.Equal(t, 5*time.Second, s.ProbeInterval)
	assert.Equal(t, defaultRequestTimeout, s.RequestTimeout)
	assert.Equal(t, "info", s.LogLevel)
}

func TestLoadConfigReadsFile(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	content := "backend: sqlite\napi_url: http://example.test:8080/api/items\nsync_interval: 30s\nlisten: 127.0.0.1:9000\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt), []byte(content), 0o644))

	v, err := loadConfig(dir)
	require.NoError(t, err)
	s, err := settingsFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "http://example.test:8080/api/items", s.APIURL)
	assert.Equal(t, 30*time.Second, s.SyncInterval)
	assert.Equal(t, "127.0.0.1:9000", s.Listen)
}

func TestEnvironmentOverrides(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()

	t.Run("API_URL and PORT", func(t *testing.T) {
		t.Setenv("API_URL", "http://backend:5000/api/items")
		t.Setenv("PORT", "8081")
		v, err := loadConfig(dir)
		require.NoError(t, err)
		s, err := settingsFrom(v)
		require.NoError(t, err)
		assert.Equal(t, "http://backend:5000/api/items", s.APIURL)
		assert.Equal(t, ":8081", s.Listen)
	})

	t.Run("prefixed variables win", func(t *testing.T) {
		t.Setenv("API_URL", "http://backend:5000/api/items")
		t.Setenv("GROCERY_API_URL", "http://other:5000/api/items")
		t.Setenv("GROCERY_LISTEN", ":7000")
		t.Setenv("PORT", "8081")
		t.Setenv("GROCERY_SYNC_INTERVAL", "1m")
		v, err := loadConfig(dir)
		require.NoError(t, err)
		s, err := settingsFrom(v)
		require.NoError(t, err)
		assert.Equal(t, "http://other:5000/api/items", s.APIURL)
		assert.Equal(t, ":7000", s.Listen)
		assert.Equal(t, time.Minute, s.SyncInterval)
	})
}

func TestSettingsValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backend", "backend: mongo\n"},
		{"relative api url", "api_url: /api/items\n"},
		{"zero interval", "sync_interval: 0s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt), []byte(tt.content), 0o644))
			v, err := loadConfig(dir)
			require.NoError(t, err)
			_, err = settingsFrom(v)
			assert.Error(t, err)
		})
	}
}

func TestWriteConfigIfMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileExt)

	wrote, err := writeConfigIfMissing(path, "/data")
	require.NoError(t, err)
	assert.True(t, wrote)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "data_dir: /data")

	wrote, err = writeConfigIfMissing(path, "/other")
	require.NoError(t, err)
	assert.False(t, wrote)
}
