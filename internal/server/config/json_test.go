package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr":           "www.example:9000",
		"public_base_url":         "https://files.example.com",
		"database_dsn":            "filedb",
		"secret_key":              "my_secret_key",
		"access_token_validity":   "30m",
		"download_grant_validity": "1h",
		"blob_backend":            "s3",
		"upload_dir":              "blobs",
		"max_upload_size":         1048576,
		"allowed_extensions":      []string{".docx"},
		"s3_root_user":            "user",
		"s3_root_password":        "password",
		"s3_bucket":               "bucket",
		"s3_region":               "region",
		"s3_base_endpoint":        "base_endpoint",
		"email_host":              "smtp.example.com",
		"email_port":              465,
		"email_from":              "noreply@example.com",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddr)
		assert.Equal(t, "https://files.example.com", cfg.PublicBaseURL)
		assert.Equal(t, "filedb", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 30*time.Minute, cfg.AccessTokenValidity)
		assert.Equal(t, 1*time.Hour, cfg.DownloadGrantValidity)
		assert.Equal(t, "s3", cfg.BlobBackend)
		assert.Equal(t, "blobs", cfg.UploadDir)
		assert.Equal(t, int64(1048576), cfg.MaxUploadSize)
		assert.Equal(t, []string{".docx"}, cfg.AllowedExtensions)
		assert.Equal(t, "user", cfg.S3RootUser)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "smtp.example.com", cfg.EmailHost)
		assert.Equal(t, 465, cfg.EmailPort)
		assert.Equal(t, "noreply@example.com", cfg.EmailFrom)
	})

	t.Run("no config flag leaves values untouched", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			EndpointAddr: "defaults:1234",
			DatabaseDSN:  "filedb",
			SecretKey:    "key",
		}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.EndpointAddr)
		assert.Equal(t, "filedb", cfg.DatabaseDSN)
		assert.Equal(t, "key", cfg.SecretKey)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
