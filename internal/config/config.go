package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all client configuration
type Config struct {
	Env string `envconfig:"ENV" default:"development"`

	// API configuration
	API APIConfig

	// Token persistence
	TokenStore TokenStoreConfig

	// Database configuration (TOKEN_STORE=postgres)
	Database DatabaseConfig

	// Redis configuration (TOKEN_STORE=redis)
	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	// Observability
	MetricsAddr string `envconfig:"METRICS_ADDR"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`

	// Local stand-in API
	DevServer DevServerConfig
}

// APIConfig holds the backend origin and transport settings
type APIConfig struct {
	BaseURL   string        `envconfig:"API_BASE_URL" default:"http://localhost:8002"`
	Timeout   time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	VerifyKey string        `envconfig:"TOKEN_VERIFY_KEY"`
}

// Token store backends
const (
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// TokenStoreConfig selects where tokens and the cached user are persisted
type TokenStoreConfig struct {
	Backend   string `envconfig:"TOKEN_STORE" default:"file"`
	File      string `envconfig:"TOKEN_FILE"`
	Namespace string `envconfig:"TOKEN_NAMESPACE" default:"default"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"portal"`
	Password string `envconfig:"DB_PASSWORD"`
	Name     string `envconfig:"DB_NAME" default:"portal"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
}

// ConnectionString returns the PostgreSQL connection string
func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// DevServerConfig holds settings for the local stand-in API
type DevServerConfig struct {
	Port              string        `envconfig:"DEVSERVER_PORT" default:"8002"`
	SigningKey        string        `envconfig:"DEVSERVER_SIGNING_KEY" default:"devserver-signing-key-minimum-32-chars"`
	RefreshSigningKey string        `envconfig:"DEVSERVER_REFRESH_SIGNING_KEY" default:"devserver-refresh-key-minimum-32-chars"`
	AccessTTL         time.Duration `envconfig:"DEVSERVER_ACCESS_TTL" default:"60m"`
	RefreshTTL        time.Duration `envconfig:"DEVSERVER_REFRESH_TTL" default:"24h"`
	AllowedOrigins    string        `envconfig:"DEVSERVER_CORS_ORIGINS" default:"*"`
}

// Load loads configuration from a .env file (if present) and environment variables
func Load() (*Config, error) {
	// A missing .env is normal; real environment variables take precedence.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.TokenStore.File == "" {
		cfg.TokenStore.File = defaultTokenFile()
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("API_BASE_URL must be an http(s) URL, got %q", c.API.BaseURL)
	}

	switch c.TokenStore.Backend {
	case StoreFile, StoreRedis, StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unknown TOKEN_STORE %q (want file, redis, postgres or memory)", c.TokenStore.Backend)
	}

	return nil
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "campusdesk", "session.json")
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
