// ABOUTME: Configuration loader for the blog client
// ABOUTME: Reads environment (optionally seeded from .env.local) with defaults

package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/ToniTF/clientcd/internal/storage"
)

// DefaultAPIURL is used when neither flag nor environment name a backend
const DefaultAPIURL = "http://localhost:5000/api"

type Config struct {
	APIURL    string        `env:"CLIENTCD_API_URL, default=http://localhost:5000/api"`
	Timeout   time.Duration `env:"CLIENTCD_TIMEOUT, default=10s"`
	ConfigDir string        `env:"CLIENTCD_CONFIG_DIR"`
	Storage   string        `env:"CLIENTCD_STORAGE, default=bolt"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`
	LogFormat string        `env:"LOG_FORMAT, default=text"`
}

// LoadDotenv seeds the environment from .env.local when the file exists.
// Variables already set are not overridden.
func LoadDotenv() {
	_ = godotenv.Load(".env.local")
}

// Load reads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize fills derived defaults and validates values
func (c *Config) normalize() error {
	c.APIURL = NormalizeURL(c.APIURL)
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.ConfigDir == "" {
		c.ConfigDir = storage.DefaultDir()
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("CLIENTCD_TIMEOUT must be positive, got %s", c.Timeout)
	}
	switch c.Storage {
	case storage.DriverBolt, storage.DriverFile, storage.DriverMemory:
	default:
		return fmt.Errorf("CLIENTCD_STORAGE must be one of %s, %s, %s, got %q",
			storage.DriverBolt, storage.DriverFile, storage.DriverMemory, c.Storage)
	}
	return nil
}

// NormalizeURL adds an http:// prefix when the URL has no scheme
// and strips trailing slashes
func NormalizeURL(url string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return url
	}
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}
	return strings.TrimRight(url, "/")
}
