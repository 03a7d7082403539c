package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/BurntSushi/toml"
)

type ServerConfig struct {
	Port              int           `toml:"port"`
	Pages             int           `toml:"pages"`              // number of pages exposed by the UI
	SessionExpiration time.Duration `toml:"session_expiration"` // also bounds how long a reader view lives
}

type GatewayConfig struct {
	ListURL      string        `toml:"list_url"`
	BodyURL      string        `toml:"body_url"`
	Timeout      time.Duration `toml:"timeout"` // 0 disables the per-request timeout
	BodyCacheTTL time.Duration `toml:"body_cache_ttl"`
}

type StorageConfig struct {
	DataDir   string `toml:"data_dir"`
	StatusKey string `toml:"status_key"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type RateLimitConfig struct {
	Requests int           `toml:"requests"`
	Window   time.Duration `toml:"window"`
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Gateway   GatewayConfig   `toml:"gateway"`
	Storage   StorageConfig   `toml:"storage"`
	Log       LogConfig       `toml:"log"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              3000,
			Pages:             2,
			SessionExpiration: 24 * time.Hour,
		},
		Gateway: GatewayConfig{
			ListURL:      "https://flipkart-email-mock.now.sh/",
			BodyURL:      "https://flipkart-email-mock.vercel.app/",
			Timeout:      10 * time.Second,
			BodyCacheTTL: 10 * time.Minute,
		},
		Storage: StorageConfig{
			DataDir:   "./data",
			StatusKey: "emailState",
		},
		Log: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			Requests: 100,
			Window:   time.Minute,
		},
	}
}

// LoadConfig reads filepath over the defaults. A missing file is not an error.
func LoadConfig(filepath string) (*Config, error) {
	config := Default()

	_, err := toml.DecodeFile(filepath, config)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks values that would otherwise fail at request time
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.Pages < 1 {
		return fmt.Errorf("server.pages must be at least 1")
	}

	for name, raw := range map[string]string{
		"gateway.list_url": c.Gateway.ListURL,
		"gateway.body_url": c.Gateway.BodyURL,
	} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%s must be an http(s) URL", name)
		}
	}

	if c.Gateway.Timeout < 0 {
		return fmt.Errorf("gateway.timeout cannot be negative")
	}
	if c.Storage.StatusKey == "" {
		return fmt.Errorf("storage.status_key is required")
	}
	if c.RateLimit.Requests < 1 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit requires positive requests and window")
	}

	return nil
}

// ContentSecurityPolicy returns the helmet CSP for rendered pages
func (c *Config) ContentSecurityPolicy() string {
	// email bodies may reference remote images; scripts stay same-origin plus htmx
	return "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'; img-src 'self' https: data:;"
}
