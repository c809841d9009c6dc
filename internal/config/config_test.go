package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret-key-with-32-chars!!"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TASKBOARD_JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.ChunkSize)
	assert.Equal(t, int64(2*1024*1024*1024), cfg.Upload.MaxFileSize)
	assert.Equal(t, 24*time.Hour, cfg.Upload.SessionTTL)
	assert.Equal(t, 15*time.Minute, cfg.Upload.PresignTTL)
	assert.Equal(t, "ffmpeg", cfg.Upload.FFmpegPath)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "", cfg.Database.Type, "memory storage by default")
	assert.Equal(t, 12*time.Hour, cfg.JWT.AccessExpiry)
	assert.Equal(t, float64(50), cfg.RateLimit.UploadRPS)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TASKBOARD_JWT_SECRET", testSecret)
	t.Setenv("TASKBOARD_SERVER_PORT", "9090")
	t.Setenv("TASKBOARD_UPLOAD_CHUNK_SIZE", "1048576")
	t.Setenv("TASKBOARD_UPLOAD_SESSION_TTL", "2h")
	t.Setenv("TASKBOARD_CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv("TASKBOARD_DATABASE_TYPE", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, int64(1048576), cfg.Upload.ChunkSize)
	assert.Equal(t, 2*time.Hour, cfg.Upload.SessionTTL)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "postgres", cfg.Database.Type)
}

func TestLoadRejectsDefaultJWTSecret(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret")
}

func TestLoadRejectsShortJWTSecret(t *testing.T) {
	t.Setenv("TASKBOARD_JWT_SECRET", "too-short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 characters")
}

func TestLoadRejectsInvalidUploadSizes(t *testing.T) {
	t.Setenv("TASKBOARD_JWT_SECRET", testSecret)
	t.Setenv("TASKBOARD_UPLOAD_CHUNK_SIZE", "0")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("TASKBOARD_UPLOAD_CHUNK_SIZE", "1048576")
	t.Setenv("TASKBOARD_UPLOAD_MAX_FILE_SIZE", "1024")

	_, err = Load()
	assert.Error(t, err)
}
