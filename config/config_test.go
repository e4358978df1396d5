package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir keeps a developer's .env out of the test.
func inTempDir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)
	t.Setenv("HOME", "/home/tester")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api", cfg.APIBaseURL)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, StorageFile, cfg.Storage)
	assert.Equal(t, filepath.Join("/home/tester", ".storefront", "storage.json"), cfg.StoragePath)
	assert.Equal(t, 2*time.Second, cfg.RedirectDelay)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 4, cfg.EventWorker)
	assert.False(t, cfg.Development)
}

func TestLoadDotEnv(t *testing.T) {
	inTempDir(t)
	require.NoError(t, os.WriteFile(".env", []byte("STOREFRONT_API_URL=https://shop.example/api\nSTOREFRONT_REDIRECT_DELAY=500ms\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("STOREFRONT_API_URL")
		os.Unsetenv("STOREFRONT_REDIRECT_DELAY")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/api", cfg.APIBaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.RedirectDelay)
}

func TestLoadRejectsBadValues(t *testing.T) {
	inTempDir(t)

	t.Setenv("STOREFRONT_REQUEST_TIMEOUT", "soon")
	_, err := Load()
	assert.ErrorContains(t, err, "STOREFRONT_REQUEST_TIMEOUT")

	t.Setenv("STOREFRONT_REQUEST_TIMEOUT", "")
	t.Setenv("STOREFRONT_STORAGE", "redis")
	_, err = Load()
	assert.ErrorContains(t, err, "STOREFRONT_REDIS_ADDR")

	t.Setenv("STOREFRONT_STORAGE", "floppy")
	_, err = Load()
	assert.ErrorContains(t, err, "unknown storage backend")
}
