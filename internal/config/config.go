package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	NCBI  NCBIConfig  `yaml:"ncbi"`
	Cache CacheConfig `yaml:"cache"`
	Retry RetryConfig `yaml:"retry"`
}

// NCBIConfig holds E-utilities API configuration
type NCBIConfig struct {
	APIKey    string  `yaml:"api_key"`
	Email     string  `yaml:"email"`
	RateLimit float64 `yaml:"rate_limit"`
}

// CacheConfig holds response cache settings
type CacheConfig struct {
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	MaxSize    int    `yaml:"max_size"`
}

// RetryConfig holds transient-failure retry settings
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms"`
}

// Default returns a configuration usable without any config file: in-memory
// cache and the anonymous NCBI rate limit.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand ~ to home directory if present
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content, so api_key can be
	// written as ${NCBI_API_KEY}.
	expandedData := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.NCBI.RateLimit <= 0 {
		c.NCBI.RateLimit = 3.0
		if c.NCBI.APIKey != "" {
			c.NCBI.RateLimit = 10.0
		}
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 300
	}
	if c.Cache.MaxSize <= 0 {
		c.Cache.MaxSize = 1000
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = 1000
	}
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case "memory":
	case "sqlite":
		if c.Cache.Path == "" {
			return fmt.Errorf("cache path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q (want memory or sqlite)", c.Cache.Backend)
	}
	if c.NCBI.RateLimit > 10 && c.NCBI.APIKey == "" {
		return fmt.Errorf("rate_limit above 10/s requires an NCBI api_key")
	}
	return nil
}
