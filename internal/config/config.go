// Package config wraps viper with typed accessors and the Hearthview
// defaults. Values resolve from an optional YAML file, then HEARTHVIEW_*
// environment variables, then defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is a read-only view over a viper instance.
type Config struct {
	v *viper.Viper
}

// New wraps an existing viper instance.
func New(v *viper.Viper) *Config {
	return &Config{v: v}
}

// Load reads configuration from path (optional; empty means defaults
// and environment only) and applies the Hearthview defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("api.base_url", "https://api.hearth.example")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("api.rate_limit", 8)
	v.SetDefault("api.rate_burst", 4)
	v.SetDefault("cache.fresh_ttl", "30s")
	v.SetDefault("cache.grace_ttl", "5m")
	v.SetDefault("store.path", "hearthview.db")
	v.SetDefault("vault.path", "session.vault")
	// Machine-local fallback passphrase. Without a user-supplied
	// HEARTHVIEW_VAULT_KEY the vault is obfuscation against casual file
	// copying, not protection against an attacker on this host.
	v.SetDefault("vault.key", "hearthview-"+hostname())

	v.SetEnvPrefix("HEARTHVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	return New(v), nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "local"
	}
	return h
}

// GetString returns the string value for key.
func (c *Config) GetString(key string) string { return c.v.GetString(key) }

// GetInt returns the int value for key.
func (c *Config) GetInt(key string) int { return c.v.GetInt(key) }

// GetFloat64 returns the float value for key.
func (c *Config) GetFloat64(key string) float64 { return c.v.GetFloat64(key) }

// GetBool returns the bool value for key.
func (c *Config) GetBool(key string) bool { return c.v.GetBool(key) }

// GetDuration returns the duration value for key.
func (c *Config) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }

// IsSet reports whether key has a value from any source.
func (c *Config) IsSet(key string) bool { return c.v.IsSet(key) }

// Sub returns the subtree under key. A missing subtree yields an empty
// Config, never nil, so callers can chain getters safely.
func (c *Config) Sub(key string) *Config {
	sub := c.v.Sub(key)
	if sub == nil {
		sub = viper.New()
	}
	return New(sub)
}

// Unmarshal decodes the configuration into a struct.
func (c *Config) Unmarshal(out any) error {
	return c.v.Unmarshal(out)
}
