// Package config reads storefront settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

type Config struct {
	APIBaseURL     string
	RequestTimeout time.Duration
	APIRateLimit   float64

	ListenAddr    string
	AllowedOrigin []string
	ClientRate    float64

	Storage     string
	StoragePath string
	Namespace   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PostgresDSN string

	NATSURL     string
	EventWorker int

	StripePublishableKey string
	RedirectDelay        time.Duration

	Development bool
}

// Load reads .env (when present) and the STOREFRONT_* environment.
func Load() (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	cfg := &Config{
		APIBaseURL:           env("STOREFRONT_API_URL", "http://localhost:8000/api"),
		ListenAddr:           env("STOREFRONT_LISTEN", ":8080"),
		AllowedOrigin:        []string{env("STOREFRONT_ALLOWED_ORIGIN", "*")},
		Storage:              env("STOREFRONT_STORAGE", StorageFile),
		StoragePath:          env("STOREFRONT_STORAGE_PATH", filepath.Join(home, ".storefront", "storage.json")),
		Namespace:            env("STOREFRONT_NAMESPACE", "default"),
		RedisAddr:            os.Getenv("STOREFRONT_REDIS_ADDR"),
		RedisPassword:        os.Getenv("STOREFRONT_REDIS_PASSWORD"),
		PostgresDSN:          os.Getenv("STOREFRONT_POSTGRES_DSN"),
		NATSURL:              os.Getenv("STOREFRONT_NATS_URL"),
		StripePublishableKey: os.Getenv("STOREFRONT_STRIPE_PUBLISHABLE_KEY"),
	}

	if cfg.RequestTimeout, err = durationEnv("STOREFRONT_REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RedirectDelay, err = durationEnv("STOREFRONT_REDIRECT_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.APIRateLimit, err = floatEnv("STOREFRONT_API_RATE", 20); err != nil {
		return nil, err
	}
	if cfg.ClientRate, err = floatEnv("STOREFRONT_CLIENT_RATE", 10); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = intEnv("STOREFRONT_REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.EventWorker, err = intEnv("STOREFRONT_EVENT_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.Development, err = boolEnv("STOREFRONT_DEV", false); err != nil {
		return nil, err
	}

	if err = cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case StorageMemory, StorageFile:
	case StorageRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("storage %q requires STOREFRONT_REDIS_ADDR", c.Storage)
		}
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("storage %q requires STOREFRONT_POSTGRES_DSN", c.Storage)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage)
	}
	return nil
}

func env(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
