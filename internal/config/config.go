// Package config loads and validates gate configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/crawlgate/internal/gate"
	"github.com/JakeFAU/crawlgate/internal/robots"
)

// keyDelimiter separates nested keys. Domain keys contain dots, so the Viper
// default would split rate limit overrides into nested maps.
const keyDelimiter = "::"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Compliance ComplianceConfig `mapstructure:"compliance"`
	Robots     RobotsConfig     `mapstructure:"robots"`

	// Source is the config file that was read, empty when only defaults and
	// environment variables apply.
	Source string `mapstructure:"-"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// ComplianceConfig is the policy surface of the gate.
type ComplianceConfig struct {
	UserAgent     string          `mapstructure:"user_agent"`
	ObeyRobotsTxt bool            `mapstructure:"obey_robots_txt"`
	AllowDomains  []string        `mapstructure:"allow_domains"`
	DenyDomains   []string        `mapstructure:"deny_domains"`
	RateLimits    RateLimitConfig `mapstructure:"rate_limits"`
}

// RateLimitConfig sets per-domain request budgets.
type RateLimitConfig struct {
	DefaultPerMinute int            `mapstructure:"default_per_minute"`
	Overrides        map[string]int `mapstructure:"overrides"`
}

// RobotsConfig bounds robots.txt fetching.
type RobotsConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxBytes int64         `mapstructure:"max_bytes"`
}

// Load builds a Config from disk/environment. A path that does not exist is
// not an error: defaults and environment variables apply.
func Load(path string) (Config, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	v.SetEnvPrefix("GATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_", ".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(key("server", "port"), "GATE_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

	setDefaults(v)

	source := ""
	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
			source = v.ConfigFileUsed()
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("stat config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Source = source

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func key(parts ...string) string {
	return strings.Join(parts, keyDelimiter)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(key("server", "port"), 8080)
	v.SetDefault(key("auth", "enabled"), false)
	v.SetDefault(key("logging", "development"), true)
	v.SetDefault(key("compliance", "user_agent"), gate.DefaultUserAgent)
	v.SetDefault(key("compliance", "obey_robots_txt"), true)
	v.SetDefault(key("compliance", "allow_domains"), []string{})
	v.SetDefault(key("compliance", "deny_domains"), []string{})
	v.SetDefault(key("compliance", "rate_limits", "default_per_minute"), gate.DefaultPerMinute)
	v.SetDefault(key("compliance", "rate_limits", "overrides"), map[string]int{})
	v.SetDefault(key("robots", "timeout"), robots.DefaultTimeout.String())
	v.SetDefault(key("robots", "max_bytes"), robots.DefaultMaxBytes)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Compliance.RateLimits.DefaultPerMinute <= 0 {
		return fmt.Errorf("compliance.rate_limits.default_per_minute must be > 0")
	}
	for domain, quota := range c.Compliance.RateLimits.Overrides {
		if quota <= 0 {
			return fmt.Errorf("compliance.rate_limits.overrides[%s] must be > 0", domain)
		}
	}
	if c.Compliance.ObeyRobotsTxt && strings.TrimSpace(c.Compliance.UserAgent) == "" {
		return fmt.Errorf("compliance.user_agent must be set when obey_robots_txt is enabled")
	}
	if c.Robots.Timeout <= 0 {
		return fmt.Errorf("robots.timeout must be > 0")
	}
	if c.Robots.MaxBytes <= 0 {
		return fmt.Errorf("robots.max_bytes must be > 0")
	}
	return nil
}

// Gate converts the compliance settings into the gate's immutable config.
func (c Config) Gate() gate.Config {
	overrides := make(map[string]int, len(c.Compliance.RateLimits.Overrides))
	for domain, quota := range c.Compliance.RateLimits.Overrides {
		overrides[domain] = quota
	}
	return gate.Config{
		UserAgent:        c.Compliance.UserAgent,
		ObeyRobots:       c.Compliance.ObeyRobotsTxt,
		AllowDomains:     cloneStringSlice(c.Compliance.AllowDomains),
		DenyDomains:      cloneStringSlice(c.Compliance.DenyDomains),
		DefaultPerMinute: c.Compliance.RateLimits.DefaultPerMinute,
		Overrides:        overrides,
		RobotsTimeout:    c.Robots.Timeout,
		RobotsMaxBytes:   c.Robots.MaxBytes,
	}
}

func cloneStringSlice(src []string) []string {
	if len(src) == 0 {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}
