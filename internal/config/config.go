package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	ServiceName    = "storefront"
	ServiceVersion = "0.1.0"
)

// Config holds the environment-specific knobs of the service.
type Config struct {
	HTTPAddr        string
	MongoURI        string
	MongoDatabase   string
	RedisAddr       string
	IdentityBaseURL string
	IdentityAPIKey  string
	OtelEndpoint    string
	CacheTTL        time.Duration
	ShutdownTimeout time.Duration
}

// Load collects configuration from environment variables, applying
// defaults for local development. Identity provider settings are required
// since the service cannot authenticate without them.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		MongoURI:        getenv("MONGO_URI", "mongodb://localhost:27017/?directConnection=true"),
		MongoDatabase:   getenv("MONGO_DATABASE", "storefront"),
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		IdentityBaseURL: os.Getenv("IDENTITY_BASE_URL"),
		IdentityAPIKey:  os.Getenv("IDENTITY_API_KEY"),
		OtelEndpoint:    os.Getenv("OTEL_ENDPOINT"),
		CacheTTL:        durenvs("CACHE_TTL_SECONDS", 60),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT_SECONDS", 10),
	}

	if cfg.IdentityBaseURL == "" {
		return Config{}, fmt.Errorf("IDENTITY_BASE_URL environment variable is required")
	}
	if cfg.IdentityAPIKey == "" {
		return Config{}, fmt.Errorf("IDENTITY_API_KEY environment variable is required")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durenvs(key string, defSec int) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(defSec) * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return time.Duration(defSec) * time.Second
	}
	return time.Duration(n) * time.Second
}
