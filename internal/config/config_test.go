package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/crawlgate/internal/gate"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  enabled: true
  api_key: secret
logging:
  development: false
compliance:
  user_agent: careful-bot/2.0
  obey_robots_txt: false
  allow_domains: ["jobs.example.com", "careers.example.org"]
  deny_domains: ["blocked.test"]
  rate_limits:
    default_per_minute: 12
    overrides:
      Busy.Example.com: 60
      jobs.example.com:8443: 5
robots:
  timeout: 3s
  max_bytes: 4096
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, path, cfg.Source)
	require.Equal(t, 9090, cfg.Server.Port)
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, "secret", cfg.Auth.APIKey)
	require.False(t, cfg.Logging.Development)
	require.Equal(t, "careful-bot/2.0", cfg.Compliance.UserAgent)
	require.False(t, cfg.Compliance.ObeyRobotsTxt)
	require.Equal(t, []string{"jobs.example.com", "careers.example.org"}, cfg.Compliance.AllowDomains)
	require.Equal(t, []string{"blocked.test"}, cfg.Compliance.DenyDomains)
	require.Equal(t, 12, cfg.Compliance.RateLimits.DefaultPerMinute)
	require.Equal(t, map[string]int{
		"busy.example.com":      60,
		"jobs.example.com:8443": 5,
	}, cfg.Compliance.RateLimits.Overrides)
	require.Equal(t, 3*time.Second, cfg.Robots.Timeout)
	require.EqualValues(t, 4096, cfg.Robots.MaxBytes)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	requireDefaults(t, cfg)
}

func TestLoadWithoutPathUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	requireDefaults(t, cfg)
}

func requireDefaults(t *testing.T, cfg Config) {
	t.Helper()
	require.Empty(t, cfg.Source)
	require.Equal(t, 8080, cfg.Server.Port)
	require.True(t, cfg.Compliance.ObeyRobotsTxt)
	require.Equal(t, gate.DefaultUserAgent, cfg.Compliance.UserAgent)
	require.Empty(t, cfg.Compliance.AllowDomains)
	require.Empty(t, cfg.Compliance.DenyDomains)
	require.Equal(t, gate.DefaultPerMinute, cfg.Compliance.RateLimits.DefaultPerMinute)
	require.Empty(t, cfg.Compliance.RateLimits.Overrides)
	require.Equal(t, 10*time.Second, cfg.Robots.Timeout)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("GATE_COMPLIANCE_USER_AGENT", "env-bot/1.0")
	t.Setenv("GATE_COMPLIANCE_RATE_LIMITS_DEFAULT_PER_MINUTE", "7")
	t.Setenv("GATE_ROBOTS_TIMEOUT", "1500ms")
	t.Setenv("PORT", "7070")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "env-bot/1.0", cfg.Compliance.UserAgent)
	require.Equal(t, 7, cfg.Compliance.RateLimits.DefaultPerMinute)
	require.Equal(t, 1500*time.Millisecond, cfg.Robots.Timeout)
	require.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compliance: [unterminated"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "read config")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compliance:\n  rate_limits:\n    default_per_minute: 0\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "default_per_minute")
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server: ServerConfig{Port: 8080},
		Compliance: ComplianceConfig{
			UserAgent:     "bot",
			ObeyRobotsTxt: true,
			RateLimits:    RateLimitConfig{DefaultPerMinute: 10},
		},
		Robots: RobotsConfig{Timeout: time.Second, MaxBytes: 1024},
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"auth missing api key", func(c *Config) { c.Auth.Enabled = true }, "auth.api_key"},
		{"zero quota", func(c *Config) { c.Compliance.RateLimits.DefaultPerMinute = 0 }, "default_per_minute"},
		{"negative override", func(c *Config) {
			c.Compliance.RateLimits.Overrides = map[string]int{"a.test": -2}
		}, "overrides[a.test]"},
		{"missing user agent", func(c *Config) { c.Compliance.UserAgent = "" }, "compliance.user_agent"},
		{"zero robots timeout", func(c *Config) { c.Robots.Timeout = 0 }, "robots.timeout"},
		{"zero robots body cap", func(c *Config) { c.Robots.MaxBytes = 0 }, "robots.max_bytes"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestConfigGate(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Compliance: ComplianceConfig{
			UserAgent:     "bot/1.0",
			ObeyRobotsTxt: true,
			AllowDomains:  []string{"a.test"},
			DenyDomains:   []string{"b.test"},
			RateLimits: RateLimitConfig{
				DefaultPerMinute: 4,
				Overrides:        map[string]int{"a.test": 9},
			},
		},
		Robots: RobotsConfig{Timeout: 2 * time.Second, MaxBytes: 2048},
	}

	got := cfg.Gate()
	require.Equal(t, gate.Config{
		UserAgent:        "bot/1.0",
		ObeyRobots:       true,
		AllowDomains:     []string{"a.test"},
		DenyDomains:      []string{"b.test"},
		DefaultPerMinute: 4,
		Overrides:        map[string]int{"a.test": 9},
		RobotsTimeout:    2 * time.Second,
		RobotsMaxBytes:   2048,
	}, got)
	require.NoError(t, got.Validate())

	got.AllowDomains[0] = "mutated.test"
	got.Overrides["a.test"] = 1
	require.Equal(t, "a.test", cfg.Compliance.AllowDomains[0], "gate config must not alias loader state")
	require.Equal(t, 9, cfg.Compliance.RateLimits.Overrides["a.test"])
}
