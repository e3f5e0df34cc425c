package goSession

import (
	"fmt"

	"github.com/MrEthical07/goSession/activity"
	"github.com/MrEthical07/goSession/authapi"
	"github.com/MrEthical07/goSession/internal/clock"
	"github.com/MrEthical07/goSession/internal/loop"
	"github.com/MrEthical07/goSession/policy"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/storage"
	"github.com/MrEthical07/goSession/token"
	"github.com/rs/zerolog"
)

// Builder assembles a Client.
type Builder struct {
	config Config

	api    authapi.Client
	store  storage.Store
	table  *policy.Table
	nav    Navigator
	source activity.Source
	sink   EventSink
	logger zerolog.Logger
	clock  clock.Clock

	built bool
}

// New returns a Builder seeded with DefaultConfig and a no-op logger.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig replaces the configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithAuthAPI sets the auth server client. It is required.
func (b *Builder) WithAuthAPI(api authapi.Client) *Builder {
	b.api = api
	return b
}

// WithStorage sets the persistence backend. Defaults to storage.NewMemory().
func (b *Builder) WithStorage(s storage.Store) *Builder {
	b.store = s
	return b
}

// WithPolicyTable sets the route table. Defaults to policy.DefaultTable().
func (b *Builder) WithPolicyTable(t *policy.Table) *Builder {
	b.table = t
	return b
}

// WithNavigator sets where redirects are sent.
func (b *Builder) WithNavigator(n Navigator) *Builder {
	b.nav = n
	return b
}

// WithActivitySource replaces the built-in activity hub.
func (b *Builder) WithActivitySource(src activity.Source) *Builder {
	b.source = src
	return b
}

// WithEventSink sets where session events are delivered besides subscribers.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.sink = sink
	return b
}

// WithLogger sets the logger shared by every component.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.logger = l
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the renewal latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

func (b *Builder) withClock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

// Build validates the configuration and returns a Client in
// StateUninitialized. A Builder can be used once.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.api == nil {
		return nil, fmt.Errorf("%w: auth API client is required", ErrInvalidConfig)
	}

	store := b.store
	if store == nil {
		store = storage.NewMemory()
	}
	table := b.table
	if table == nil {
		table = policy.DefaultTable()
	}
	clk := b.clock
	if clk == nil {
		clk = clock.Real()
	}
	log := b.logger.With().Str("lib", "goSession").Logger()

	c := &Client{
		config:  cfg,
		gateCfg: cfg.gateConfig(),
		api:     b.api,
		kv:      store,
		table:   table,
		nav:     b.nav,
		clock:   clk,
		log:     log,
		metrics: NewMetrics(cfg.Metrics),
		events:  newEventDispatcher(cfg.Events, b.sink),
		state:   StateUninitialized,
	}

	c.tokens = token.New(store, token.WithClock(clk), token.WithLogger(log))
	c.refresher = refresh.NewCoordinator(c.tokens, b.api,
		refresh.WithTimeout(cfg.Refresh.Timeout),
		refresh.WithLogger(log),
		refresh.WithObserver(c.onRenewal),
	)
	c.refreshLoop = loop.New(clk, cfg.Refresh.Interval, c.refreshTick)

	source := b.source
	if source == nil {
		c.hub = activity.NewHub()
		source = c.hub
	}
	c.tracker = activity.NewTracker(source, clk, activity.TrackerConfig{
		Timeout:       cfg.Activity.Timeout,
		CheckInterval: cfg.Activity.CheckInterval,
	}, c.onIdle)

	b.built = true
	return c, nil
}
