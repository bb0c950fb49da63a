package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REALESTATE_CONFIG", "")
	for _, key := range []string{
		"REALESTATE_ADDRESS", "REALESTATE_MAX_FILE_BYTES", "REALESTATE_IMPORT_WORKERS",
		"GEMINI_MODEL", "REALESTATE_COPY_VERSIONS", "REALESTATE_SIGNING_SECRET",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, defaultAddress, cfg.Address)
	assert.Equal(t, int64(10<<20), cfg.MaxFileSize)
	assert.Equal(t, 4, cfg.ImportWorkers)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.Equal(t, []string{"professional", "luxury", "concise"}, cfg.CopyVersions)
	assert.NotEmpty(t, cfg.SigningSecret)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
address: ":9090"
api_username: agency
signed_url_ttl: 2m
import_workers: 8
copy_versions: [funny, concise]
s3_use_ssl: true
`), 0o600))

	t.Setenv("REALESTATE_CONFIG", path)
	t.Setenv("API_USERNAME", "")
	t.Setenv("REALESTATE_IMPORT_WORKERS", "2")
	t.Setenv("REALESTATE_SIGNED_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Address)
	assert.Equal(t, "agency", cfg.APIUsername)
	assert.Equal(t, 2*time.Minute, cfg.SignedURLTTL)
	assert.Equal(t, 2, cfg.ImportWorkers, "env overrides the file")
	assert.Equal(t, []string{"funny", "concise"}, cfg.CopyVersions)
	assert.True(t, cfg.S3UseSSL)
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("address: [unterminated"), 0o600))
	t.Setenv("REALESTATE_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)
}
