package goSession

import (
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/jwt"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Activity.Timeout != 30*time.Minute || cfg.Activity.CheckInterval != time.Minute {
		t.Fatalf("unexpected activity defaults %+v", cfg.Activity)
	}
	if cfg.Refresh.Interval != 5*time.Minute || cfg.Refresh.ExpiringSoonWindow != 5*time.Minute {
		t.Fatalf("unexpected refresh defaults %+v", cfg.Refresh)
	}
	if cfg.Routes.RoleHomes[jwt.RoleMember] != "/feed" {
		t.Fatalf("unexpected member home %q", cfg.Routes.RoleHomes[jwt.RoleMember])
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "refresh interval zero",
			mutate:    func(c *Config) { c.Refresh.Interval = 0 },
			wantValid: false,
		},
		{
			name:      "expiring window negative",
			mutate:    func(c *Config) { c.Refresh.ExpiringSoonWindow = -time.Second },
			wantValid: false,
		},
		{
			name:      "request timeout zero",
			mutate:    func(c *Config) { c.Refresh.Timeout = 0 },
			wantValid: false,
		},
		{
			name: "check interval longer than timeout",
			mutate: func(c *Config) {
				c.Activity.Timeout = time.Minute
				c.Activity.CheckInterval = 2 * time.Minute
			},
			wantValid: false,
		},
		{
			name:      "cooldown disabled",
			mutate:    func(c *Config) { c.AuthCheck.Cooldown = 0 },
			wantValid: true,
		},
		{
			name:      "cooldown negative",
			mutate:    func(c *Config) { c.AuthCheck.Cooldown = -time.Second },
			wantValid: false,
		},
		{
			name:      "relative login path",
			mutate:    func(c *Config) { c.Routes.LoginPath = "login" },
			wantValid: false,
		},
		{
			name:      "unknown role home",
			mutate:    func(c *Config) { c.Routes.RoleHomes["owner"] = "/owner" },
			wantValid: false,
		},
		{
			name:      "relative role home",
			mutate:    func(c *Config) { c.Routes.RoleHomes[jwt.RoleAdmin] = "admin" },
			wantValid: false,
		},
		{
			name:      "missing branch query",
			mutate:    func(c *Config) { c.Routes.BranchQuery = "" },
			wantValid: false,
		},
		{
			name:      "event buffer zero",
			mutate:    func(c *Config) { c.Events.BufferSize = 0 },
			wantValid: false,
		},
		{
			name: "histograms without metrics",
			mutate: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.EnableLatencyHistograms = true
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid {
				if err == nil {
					t.Fatalf("expected invalid config")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
			}
		})
	}
}

func TestCloneConfigCopiesRoleHomes(t *testing.T) {
	cfg := DefaultConfig()
	clone := cloneConfig(cfg)
	clone.Routes.RoleHomes[jwt.RoleMember] = "/elsewhere"

	if cfg.Routes.RoleHomes[jwt.RoleMember] != "/feed" {
		t.Fatalf("clone shares the role home map")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("GS_REFRESH_INTERVAL", "2m")
	t.Setenv("GS_ACTIVITY_TIMEOUT", "10m")
	t.Setenv("GS_AUTH_CHECK_COOLDOWN", "0s")
	t.Setenv("GS_LOGIN_PATH", "/signin")
	t.Setenv("GS_METRICS_ENABLED", "false")

	cfg, err := LoadConfigFromEnv("GS")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Refresh.Interval != 2*time.Minute {
		t.Fatalf("expected interval 2m, got %s", cfg.Refresh.Interval)
	}
	if cfg.Activity.Timeout != 10*time.Minute {
		t.Fatalf("expected activity timeout 10m, got %s", cfg.Activity.Timeout)
	}
	if cfg.AuthCheck.Cooldown != 0 {
		t.Fatalf("expected cooldown disabled, got %s", cfg.AuthCheck.Cooldown)
	}
	if cfg.Routes.LoginPath != "/signin" {
		t.Fatalf("expected login path override, got %q", cfg.Routes.LoginPath)
	}
	if cfg.Metrics.Enabled {
		t.Fatalf("expected metrics disabled")
	}
	if cfg.Refresh.ExpiringSoonWindow != 5*time.Minute {
		t.Fatalf("unset values must keep defaults, got %s", cfg.Refresh.ExpiringSoonWindow)
	}
}

func TestLoadConfigFromEnvRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"GS_REFRESH_INTERVAL":    "soon",
		"GS_AUTH_CHECK_COOLDOWN": "later",
		"GS_METRICS_ENABLED":     "maybe",
		"GS_HOME_PATH":           "home",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := LoadConfigFromEnv("GS"); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig for %s=%s, got %v", key, value, err)
			}
		})
	}
}
