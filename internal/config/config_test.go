package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("IMAGE_BACKEND", "")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("OTP_TTL", "")
	t.Setenv("CACHE_TTL", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:3000", cfg.HTTPAddr)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 60*time.Second, cfg.OTPTTL)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, "localhost:6379", cfg.RedisURL)
	assert.Equal(t, ImageBackendGateway, cfg.ImageBackend)
	assert.Equal(t, 256, cfg.ActivityQueue)
}

func TestFromEnv_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := FromEnv()
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_URL", "")
	t.Setenv("API_GATEWAY_URL", "https://gw.example.com/prod/")
	t.Setenv("CACHE_TTL", "5s")
	t.Setenv("ACTIVITY_WORKERS", "4")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", cfg.RedisURL)
	assert.Equal(t, "https://gw.example.com/prod", cfg.GatewayURL)
	assert.Equal(t, 5*time.Second, cfg.CacheTTL)
	assert.Equal(t, 4, cfg.ActivityWorker)
}

func TestFromEnv_BadValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")

	t.Setenv("OTP_TTL", "sixty")
	_, err := FromEnv()
	assert.Error(t, err)
	t.Setenv("OTP_TTL", "")

	t.Setenv("ACTIVITY_QUEUE_SIZE", "-1")
	_, err = FromEnv()
	assert.Error(t, err)
	t.Setenv("ACTIVITY_QUEUE_SIZE", "")

	t.Setenv("IMAGE_BACKEND", "ftp")
	_, err = FromEnv()
	assert.Error(t, err)

	t.Setenv("IMAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "")
	_, err = FromEnv()
	assert.Error(t, err)

	t.Setenv("S3_BUCKET", "tickets")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ImageBackendS3, cfg.ImageBackend)
}
