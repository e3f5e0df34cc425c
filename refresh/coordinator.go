package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/authapi"
	"github.com/MrEthical07/goSession/token"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds a single renewal network call.
const DefaultTimeout = 10 * time.Second

var (
	// ErrRefreshFailed is returned for any failed renewal.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrTokenReuseDetected is returned when the server reports the refresh
	// token was already consumed. It matches ErrRefreshFailed.
	ErrTokenReuseDetected = fmt.Errorf("%w: refresh token reuse detected", ErrRefreshFailed)
)

// Requester performs the refresh network call.
type Requester interface {
	Refresh(ctx context.Context, refreshToken string) (authapi.Tokens, error)
}

// TokenStore is the subset of token.Store the coordinator needs.
type TokenStore interface {
	RefreshToken(ctx context.Context) string
	SetTokens(ctx context.Context, access, refresh string) (token.Pair, error)
	Clear(ctx context.Context)
}

// Stats are cumulative coordinator counters.
type Stats struct {
	// Calls is the number of renewals that reached the Requester.
	Calls uint64
	// Callers is the number of Refresh invocations.
	Callers uint64
	// Failures is the number of failed renewals.
	Failures uint64
	// Reuse is the number of renewals rejected as token reuse.
	Reuse uint64
}

// Outcome describes one finished renewal, reported once however many callers
// shared it.
type Outcome struct {
	Pair token.Pair
	Err  error
	Took time.Duration
}

// Coordinator deduplicates concurrent renewals.
type Coordinator struct {
	tokens   TokenStore
	api      Requester
	timeout  time.Duration
	log      zerolog.Logger
	observer func(Outcome)

	group singleflight.Group

	calls    atomic.Uint64
	callers  atomic.Uint64
	failures atomic.Uint64
	reuse    atomic.Uint64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout bounds the shared network call.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.log = l
	}
}

// WithObserver registers fn to run after every renewal, on the goroutine that
// performed it and before any caller is released.
func WithObserver(fn func(Outcome)) Option {
	return func(c *Coordinator) {
		c.observer = fn
	}
}

// NewCoordinator creates a Coordinator renewing through api into tokens.
func NewCoordinator(tokens TokenStore, api Requester, opts ...Option) *Coordinator {
	c := &Coordinator{
		tokens:  tokens,
		api:     api,
		timeout: DefaultTimeout,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("component", "refresh").Logger()
	return c
}

// Refresh renews the token pair, joining a renewal already in flight. If ctx
// ends first Refresh returns ctx.Err() and the shared renewal continues.
func (c *Coordinator) Refresh(ctx context.Context) (token.Pair, error) {
	c.callers.Add(1)

	ch := c.group.DoChan("refresh", func() (interface{}, error) {
		start := time.Now()
		pair, err := c.renew()
		if c.observer != nil {
			c.observer(Outcome{Pair: pair, Err: err, Took: time.Since(start)})
		}
		return pair, err
	})

	select {
	case <-ctx.Done():
		return token.Pair{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.log.Debug().Msg("joined in-flight refresh")
		}
		if res.Err != nil {
			return token.Pair{}, res.Err
		}
		return res.Val.(token.Pair), nil
	}
}

// Stats returns a snapshot of the coordinator counters.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Calls:    c.calls.Load(),
		Callers:  c.callers.Load(),
		Failures: c.failures.Load(),
		Reuse:    c.reuse.Load(),
	}
}

func (c *Coordinator) renew() (token.Pair, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	refreshToken := c.tokens.RefreshToken(ctx)
	if refreshToken == "" {
		c.failures.Add(1)
		c.tokens.Clear(ctx)
		return token.Pair{}, fmt.Errorf("%w: no refresh token stored", ErrRefreshFailed)
	}

	c.calls.Add(1)
	issued, err := c.api.Refresh(ctx, refreshToken)
	if err != nil {
		c.failures.Add(1)
		c.tokens.Clear(ctx)
		if errors.Is(err, authapi.ErrTokenReuse) {
			c.reuse.Add(1)
			c.log.Error().Msg("refresh token reuse reported by server")
			return token.Pair{}, fmt.Errorf("%w: %w", ErrTokenReuseDetected, err)
		}
		c.log.Warn().Err(err).Msg("refresh request failed")
		return token.Pair{}, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	next := issued.RefreshToken
	if next == "" {
		next = refreshToken
	}
	pair, err := c.tokens.SetTokens(ctx, issued.AccessToken, next)
	if err != nil {
		c.failures.Add(1)
		c.tokens.Clear(ctx)
		return token.Pair{}, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	c.log.Debug().Time("expires_at", pair.ExpiresAt).Msg("token pair renewed")
	return pair, nil
}
