package goSession

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/gate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every tunable of a Client.
type Config struct {
	Refresh   RefreshConfig
	Activity  ActivityConfig
	AuthCheck AuthCheckConfig
	Routes    RoutesConfig
	Events    EventsConfig
	Metrics   MetricsConfig
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls the background renewal loop.
type RefreshConfig struct {
	// Interval between expiry checks.
	Interval time.Duration
	// ExpiringSoonWindow is how close to expiry a token is renewed.
	ExpiringSoonWindow time.Duration
	// Timeout bounds one renewal or profile request.
	Timeout time.Duration
}

/*
====================================
ACTIVITY CONFIG
====================================
*/

// ActivityConfig controls idle logout.
type ActivityConfig struct {
	// Timeout is the inactivity after which the session is ended.
	Timeout time.Duration
	// CheckInterval is how often inactivity is evaluated.
	CheckInterval time.Duration
}

/*
====================================
AUTH CHECK CONFIG
====================================
*/

// AuthCheckConfig controls CheckAuth.
type AuthCheckConfig struct {
	// Cooldown is how long a completed check is reused without a network call.
	Cooldown time.Duration
}

/*
====================================
ROUTES CONFIG
====================================
*/

// RoutesConfig names the paths the client navigates to.
type RoutesConfig struct {
	LoginPath       string
	VerifyEmailPath string
	// HomePath is the destination after login when none was remembered.
	HomePath    string
	RoleHomes   map[jwt.Role]string
	BranchParam string
	BranchQuery string
}

/*
====================================
EVENTS CONFIG
====================================
*/

// EventsConfig controls asynchronous session-event delivery.
type EventsConfig struct {
	BufferSize int
	// DropIfFull drops events instead of blocking when the buffer is full.
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the standard settings.
func DefaultConfig() Config {
	routes := gate.DefaultConfig()
	return Config{
		Refresh: RefreshConfig{
			Interval:           5 * time.Minute,
			ExpiringSoonWindow: 5 * time.Minute,
			Timeout:            10 * time.Second,
		},
		Activity: ActivityConfig{
			Timeout:       30 * time.Minute,
			CheckInterval: time.Minute,
		},
		AuthCheck: AuthCheckConfig{
			Cooldown: 2 * time.Second,
		},
		Routes: RoutesConfig{
			LoginPath:       routes.LoginPath,
			VerifyEmailPath: routes.VerifyEmailPath,
			HomePath:        "/",
			RoleHomes:       routes.RoleHomes,
			BranchParam:     routes.BranchParam,
			BranchQuery:     routes.BranchQuery,
		},
		Events: EventsConfig{
			BufferSize: 64,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Routes.RoleHomes != nil {
		out.Routes.RoleHomes = make(map[jwt.Role]string, len(cfg.Routes.RoleHomes))
		for role, home := range cfg.Routes.RoleHomes {
			out.Routes.RoleHomes[role] = home
		}
	}
	return out
}

func (c *Config) gateConfig() gate.Config {
	return gate.Config{
		LoginPath:       c.Routes.LoginPath,
		VerifyEmailPath: c.Routes.VerifyEmailPath,
		RoleHomes:       c.Routes.RoleHomes,
		BranchParam:     c.Routes.BranchParam,
		BranchQuery:     c.Routes.BranchQuery,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting. Every error matches
// ErrInvalidConfig.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	// Refresh
	if c.Refresh.Interval <= 0 {
		return invalid("Refresh Interval must be > 0")
	}
	if c.Refresh.ExpiringSoonWindow <= 0 {
		return invalid("Refresh ExpiringSoonWindow must be > 0")
	}
	if c.Refresh.Timeout <= 0 {
		return invalid("Refresh Timeout must be > 0")
	}

	// Activity
	if c.Activity.Timeout <= 0 {
		return invalid("Activity Timeout must be > 0")
	}
	if c.Activity.CheckInterval <= 0 {
		return invalid("Activity CheckInterval must be > 0")
	}
	if c.Activity.CheckInterval > c.Activity.Timeout {
		return invalid("Activity CheckInterval must be <= Timeout")
	}

	// AuthCheck
	if c.AuthCheck.Cooldown < 0 {
		return invalid("AuthCheck Cooldown must be >= 0")
	}

	// Routes
	for name, path := range map[string]string{
		"LoginPath":       c.Routes.LoginPath,
		"VerifyEmailPath": c.Routes.VerifyEmailPath,
		"HomePath":        c.Routes.HomePath,
	} {
		if !strings.HasPrefix(path, "/") {
			return invalid("Routes %s must be an absolute path", name)
		}
	}
	for role, home := range c.Routes.RoleHomes {
		if !role.IsValid() {
			return invalid("Routes RoleHomes has unknown role %q", role)
		}
		if !strings.HasPrefix(home, "/") {
			return invalid("Routes RoleHomes[%s] must be an absolute path", role)
		}
	}
	if c.Routes.BranchParam == "" || c.Routes.BranchQuery == "" {
		return invalid("Routes BranchParam and BranchQuery are required")
	}

	// Events
	if c.Events.BufferSize <= 0 {
		return invalid("Events BufferSize must be > 0")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return invalid("Metrics EnableLatencyHistograms requires Enabled")
	}

	return nil
}

type envConfig struct {
	RefreshInterval       time.Duration `envconfig:"REFRESH_INTERVAL"`
	ExpiringSoonWindow    time.Duration `envconfig:"EXPIRING_SOON_WINDOW"`
	RequestTimeout        time.Duration `envconfig:"REQUEST_TIMEOUT"`
	ActivityTimeout       time.Duration `envconfig:"ACTIVITY_TIMEOUT"`
	ActivityCheckInterval time.Duration `envconfig:"ACTIVITY_CHECK_INTERVAL"`
	AuthCheckCooldown     string        `envconfig:"AUTH_CHECK_COOLDOWN"`
	LoginPath             string        `envconfig:"LOGIN_PATH"`
	VerifyEmailPath       string        `envconfig:"VERIFY_EMAIL_PATH"`
	HomePath              string        `envconfig:"HOME_PATH"`
	EventBuffer           int           `envconfig:"EVENT_BUFFER"`
	MetricsEnabled        string        `envconfig:"METRICS_ENABLED"`
	LatencyHistograms     string        `envconfig:"LATENCY_HISTOGRAMS"`
}

// LoadConfigFromEnv returns DefaultConfig overridden by environment
// variables named prefix_REFRESH_INTERVAL, prefix_ACTIVITY_TIMEOUT and so on.
// Unset variables keep their defaults. The result is validated.
func LoadConfigFromEnv(prefix string) (Config, error) {
	var env envConfig
	if err := envconfig.Process(prefix, &env); err != nil {
		return Config{}, fmt.Errorf("%w: parsing env: %v", ErrInvalidConfig, err)
	}

	cfg := DefaultConfig()
	setDuration(&cfg.Refresh.Interval, env.RefreshInterval)
	setDuration(&cfg.Refresh.ExpiringSoonWindow, env.ExpiringSoonWindow)
	setDuration(&cfg.Refresh.Timeout, env.RequestTimeout)
	setDuration(&cfg.Activity.Timeout, env.ActivityTimeout)
	setDuration(&cfg.Activity.CheckInterval, env.ActivityCheckInterval)
	setString(&cfg.Routes.LoginPath, env.LoginPath)
	setString(&cfg.Routes.VerifyEmailPath, env.VerifyEmailPath)
	setString(&cfg.Routes.HomePath, env.HomePath)
	if env.EventBuffer != 0 {
		cfg.Events.BufferSize = env.EventBuffer
	}

	// Empty means unset; zero and false are valid values.
	if env.AuthCheckCooldown != "" {
		d, err := time.ParseDuration(env.AuthCheckCooldown)
		if err != nil {
			return Config{}, fmt.Errorf("%w: AUTH_CHECK_COOLDOWN: %v", ErrInvalidConfig, err)
		}
		cfg.AuthCheck.Cooldown = d
	}
	if err := setBool(&cfg.Metrics.Enabled, "METRICS_ENABLED", env.MetricsEnabled); err != nil {
		return Config{}, err
	}
	if err := setBool(&cfg.Metrics.EnableLatencyHistograms, "LATENCY_HISTOGRAMS", env.LatencyHistograms); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, name, v string) error {
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
	}
	*dst = b
	return nil
}
