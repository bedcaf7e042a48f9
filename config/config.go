package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// TomlServer holds HTTP listener settings
type TomlServer struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CorsOrigins []string `toml:"cors_origins,omitempty"`
}

// TomlSite describes how this instance is reached from the outside
type TomlSite struct {
	// Hostname without protocol, e.g. "example.social"
	Hostname   string `toml:"hostname"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// TomlFeeds bounds the work a single feed request may do
type TomlFeeds struct {
	DefaultLimit int `toml:"default_limit"`
	MaxLimit     int `toml:"max_limit"`
}

type TomlAuth struct {
	JWTSecret string   `toml:"jwt_secret"`
	TokenTTL  Duration `toml:"token_ttl"`
}

// TomlRanking configures the background rank refresher in serve.
// A zero interval disables it.
type TomlRanking struct {
	Interval Duration `toml:"interval"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	Database string      `toml:"database"`
	Server   TomlServer  `toml:"server"`
	Site     TomlSite    `toml:"site"`
	Feeds    TomlFeeds   `toml:"feeds"`
	Auth     TomlAuth    `toml:"auth"`
	Ranking  TomlRanking `toml:"ranking"`
}

// Duration is a time.Duration written as a string ("90s", "24h") in TOML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is given
func Default() *TomlConfig {
	return &TomlConfig{
		Database: "feed.db",
		Server: TomlServer{
			Host: "0.0.0.0",
			Port: 3000,
		},
		Site: TomlSite{
			Hostname:   "localhost:3000",
			TLSEnabled: false,
		},
		Feeds: TomlFeeds{
			DefaultLimit: 20,
			MaxLimit:     50,
		},
		Auth: TomlAuth{
			TokenTTL: Duration{365 * 24 * time.Hour},
		},
	}
}

// LoadConfig reads a TOML file on top of the defaults
func LoadConfig(path string) (*TomlConfig, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault behaves like LoadConfig but falls back to the defaults
// when the file does not exist
func LoadConfigOrDefault(path string) (*TomlConfig, error) {
	config, err := LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

// ProtocolAndHostname returns the public base URL of the instance, e.g. "https://example.social"
func (c *TomlConfig) ProtocolAndHostname() string {
	if c.Site.TLSEnabled {
		return "https://" + c.Site.Hostname
	}
	return "http://" + c.Site.Hostname
}

// Validate checks settings that serve cannot run without
func (c *TomlConfig) Validate() error {
	if c.Site.Hostname == "" {
		return errors.New("site hostname is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Feeds.DefaultLimit < 0 || c.Feeds.MaxLimit < 1 {
		return fmt.Errorf("invalid feed limits: default %d, max %d", c.Feeds.DefaultLimit, c.Feeds.MaxLimit)
	}
	if c.Feeds.DefaultLimit > c.Feeds.MaxLimit {
		return fmt.Errorf("default limit %d exceeds max limit %d", c.Feeds.DefaultLimit, c.Feeds.MaxLimit)
	}
	if len(c.Auth.JWTSecret) < 32 {
		return errors.New("jwt secret must be at least 32 characters")
	}
	return nil
}
