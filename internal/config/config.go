// Package config assembles the process configuration from the environment.
// A .env file in the working directory is loaded first, best-effort.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-ticketing-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/pkg/utilities"
)

const (
	ImageBackendGateway = "gateway"
	ImageBackendS3      = "s3"
)

type Config struct {
	HTTPAddr string

	Database database.Config
	Log      utilities.Config
	// EnsureSchema runs the repositories' EnsureTable DDL at start.
	EnsureSchema bool

	RedisURL string

	JWTSecret string
	TokenTTL  time.Duration
	OTPTTL    time.Duration
	CacheTTL  time.Duration

	GatewayURL     string
	APIKey         string
	GatewayTimeout time.Duration

	ImageBackend string
	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	S3AccessKey  string
	S3SecretKey  string

	AMQPURL        string
	ActivityQueue  int
	ActivityWorker int
}

var ErrMissingSecret = errors.New("JWT_SECRET is required")

// Load reads .env (if present) and then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() (Config, error) {
	cfg := Config{
		HTTPAddr:       getenv("HTTP_ADDR", "0.0.0.0:3000"),
		Database:       database.ConfigFromEnv(),
		Log:            utilities.ConfigFromEnv(),
		EnsureSchema:   os.Getenv("DB_ENSURE_SCHEMA") == "1",
		RedisURL:       redisURL(),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		GatewayURL:     strings.TrimRight(os.Getenv("API_GATEWAY_URL"), "/"),
		APIKey:         os.Getenv("API_KEY"),
		ImageBackend:   strings.ToLower(getenv("IMAGE_BACKEND", ImageBackendGateway)),
		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3Region:       getenv("S3_REGION", "us-east-1"),
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3AccessKey:    os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretKey:    os.Getenv("S3_SECRET_ACCESS_KEY"),
		AMQPURL:        os.Getenv("AMQP_URL"),
	}
	if cfg.JWTSecret == "" {
		return Config{}, ErrMissingSecret
	}

	var err error
	if cfg.TokenTTL, err = duration("TOKEN_TTL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OTPTTL, err = duration("OTP_TTL", 60*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = duration("CACHE_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.GatewayTimeout, err = duration("GATEWAY_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ActivityQueue, err = integer("ACTIVITY_QUEUE_SIZE", 256); err != nil {
		return Config{}, err
	}
	if cfg.ActivityWorker, err = integer("ACTIVITY_WORKERS", 2); err != nil {
		return Config{}, err
	}

	switch cfg.ImageBackend {
	case ImageBackendGateway:
	case ImageBackendS3:
		if cfg.S3Bucket == "" {
			return Config{}, errors.New("S3_BUCKET is required when IMAGE_BACKEND=s3")
		}
	default:
		return Config{}, fmt.Errorf("unknown IMAGE_BACKEND %q", cfg.ImageBackend)
	}
	return cfg, nil
}

// redisURL prefers REDIS_URL and falls back to REDIS_HOST on the default port.
func redisURL() string {
	if v := os.Getenv("REDIS_URL"); v != "" {
		return v
	}
	return getenv("REDIS_HOST", "localhost") + ":6379"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func duration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func integer(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("parse %s: must be a positive integer", key)
	}
	return n, nil
}
