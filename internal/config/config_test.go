package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"NOTECLEAN_PORT", "GEMINI_MODEL", "NOTECLEAN_REQUEST_TIMEOUT", "NOTECLEAN_MAX_CONCURRENT",
		"NOTECLEAN_ARCHIVE_METHOD", "NOTECLEAN_S3_BUCKET", "NOTECLEAN_S3_PREFIX", "AWS_REGION", "NOTECLEAN_EMF",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(64<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "gemini-2.5-flash-image", cfg.Gemini.Model)
	assert.Zero(t, cfg.Gemini.RequestTimeout)
	assert.Equal(t, 1536, cfg.Extract.MaxDimension)
	assert.Equal(t, 144.0, cfg.Extract.PDFDPI)
	assert.Equal(t, 95, cfg.Extract.JPEGQuality)
	assert.Zero(t, cfg.Batch.MaxConcurrent)
	assert.Equal(t, "deflate", cfg.Archive.Method)
	assert.Equal(t, "processed_images", cfg.Archive.Folder)
	assert.Equal(t, time.Hour, cfg.Storage.PresignTTL)
	assert.False(t, cfg.ExportEnabled())
	assert.False(t, cfg.Metrics.EMF)
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "noteclean.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
  write_timeout: 5m
gemini:
  model: gemini-3-pro-image-preview
  request_timeout: 90s
batch:
  max_concurrent: 4
archive:
  method: zstd
storage:
  s3_bucket: my-exports
  presign_ttl: 15m
metrics:
  emf: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout, "unset keys keep defaults")
	assert.Equal(t, "gemini-3-pro-image-preview", cfg.Gemini.Model)
	assert.Equal(t, 90*time.Second, cfg.Gemini.RequestTimeout)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrent)
	assert.Equal(t, "zstd", cfg.Archive.Method)
	assert.True(t, cfg.ExportEnabled())
	assert.Equal(t, 15*time.Minute, cfg.Storage.PresignTTL)
	assert.True(t, cfg.Metrics.EMF)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOTECLEAN_PORT", "7000")
	t.Setenv("GEMINI_MODEL", "custom-model")
	t.Setenv("NOTECLEAN_MAX_CONCURRENT", "2")
	t.Setenv("NOTECLEAN_REQUEST_TIMEOUT", "45s")
	t.Setenv("NOTECLEAN_S3_BUCKET", "env-bucket")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("NOTECLEAN_EMF", "true")

	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "custom-model", cfg.Gemini.Model)
	assert.Equal(t, 2, cfg.Batch.MaxConcurrent)
	assert.Equal(t, 45*time.Second, cfg.Gemini.RequestTimeout)
	assert.Equal(t, "env-bucket", cfg.Storage.S3Bucket)
	assert.Equal(t, "eu-west-1", cfg.Storage.Region)
	assert.True(t, cfg.Metrics.EMF)
}

func TestLoad_InvalidEnvValuesAreIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOTECLEAN_PORT", "eighty")
	t.Setenv("NOTECLEAN_REQUEST_TIMEOUT", "soon")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Zero(t, cfg.Gemini.RequestTimeout)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [unclosed"), 0o644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"upload limit", func(c *Config) { c.Server.MaxUploadBytes = 0 }, "max_upload_bytes"},
		{"model", func(c *Config) { c.Gemini.Model = "" }, "model"},
		{"timeout", func(c *Config) { c.Gemini.RequestTimeout = -time.Second }, "request_timeout"},
		{"dimension", func(c *Config) { c.Extract.MaxDimension = -1 }, "max_dimension"},
		{"dpi", func(c *Config) { c.Extract.PDFDPI = 0 }, "pdf_dpi"},
		{"quality", func(c *Config) { c.Extract.JPEGQuality = 101 }, "jpeg_quality"},
		{"concurrency", func(c *Config) { c.Batch.MaxConcurrent = -1 }, "max_concurrent"},
		{"archive method", func(c *Config) { c.Archive.Method = "rar" }, "unknown archive method"},
		{"presign ttl", func(c *Config) { c.Storage.PresignTTL = 0 }, "presign_ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}
