package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath     = "config.yaml"
	defaultEndpointURL    = "http://127.0.0.1:8000/upload"
	defaultTimeoutSeconds = 30
	defaultListenAddr     = ":8080"
	defaultRedisChannel   = "skincheck:session"
	defaultLogLevel       = "info"
)

type Config struct {
	EndpointURL           string `yaml:"endpoint_url"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	ListenAddr            string `yaml:"listen_addr"`
	GalleryRoot           string `yaml:"gallery_root"`

	RedisAddr    string `yaml:"redis_addr"`
	RedisChannel string `yaml:"redis_channel"`
	DatabaseDSN  string `yaml:"database_dsn"`

	LogLevel string `yaml:"log_level"`
}

// Load reads the YAML file named by CONFIG_PATH (default config.yaml), then
// applies environment overrides and defaults. A missing file is not an error.
func Load() (Config, error) {
	var cfg Config

	path := getEnv("CONFIG_PATH", defaultConfigPath)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	envOverride(&cfg.EndpointURL, "CLASSIFIER_ENDPOINT")
	envOverrideInt(&cfg.RequestTimeoutSeconds, "CLASSIFIER_TIMEOUT_SECONDS")
	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	envOverride(&cfg.GalleryRoot, "GALLERY_ROOT")
	envOverride(&cfg.RedisAddr, "REDIS_ADDR")
	envOverride(&cfg.RedisChannel, "REDIS_CHANNEL")
	envOverride(&cfg.DatabaseDSN, "DATABASE_DSN")
	envOverride(&cfg.LogLevel, "LOG_LEVEL")

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.EndpointURL == "" {
		c.EndpointURL = defaultEndpointURL
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = defaultTimeoutSeconds
	}
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}
	if c.RedisChannel == "" {
		c.RedisChannel = defaultRedisChannel
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

// Validate checks that the endpoint is an absolute http(s) URL.
func (c Config) Validate() error {
	u, err := url.Parse(c.EndpointURL)
	if err != nil {
		return fmt.Errorf("endpoint_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("endpoint_url must be an absolute http(s) URL, got %q", c.EndpointURL)
	}
	return nil
}

// RequestTimeout bounds a single classification attempt.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envOverride(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

func envOverrideInt(dst *int, key string) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return
	}
	if n, err := strconv.Atoi(value); err == nil {
		*dst = n
	}
}
