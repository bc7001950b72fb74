package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "social-go", cfg.AppName)
	assert.Equal(t, "5000", cfg.APIServer.Port)
	assert.Equal(t, "auth-token", cfg.Auth.TokenHeader)
	assert.Equal(t, 24*time.Hour, cfg.Auth.JWTExpiry)
	assert.Equal(t, 24*time.Hour, cfg.Story.TTL)
	assert.Equal(t, 20, cfg.Feed.DefaultLimit)
	assert.Equal(t, 100, cfg.Feed.MaxLimit)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxFileSizeBytes())
	assert.False(t, cfg.Kafka.Active())
	assert.Equal(t, 10*time.Second, cfg.Kafka.MessageTimeout)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AUTH_JWT_EXPIRY", "2h")
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("APP_ENV", "production")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.Auth.JWTExpiry)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.True(t, cfg.Kafka.Active())
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	content := []byte("FEED:\n  DEFAULT_LIMIT: 5\nSTORAGE:\n  TYPE: s3\n  S3:\n    BUCKET_NAME: media\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Feed.DefaultLimit)
	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "media", cfg.Storage.S3.BucketName)
	assert.Equal(t, 100, cfg.Feed.MaxLimit)
}
