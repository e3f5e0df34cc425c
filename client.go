package goSession

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/activity"
	"github.com/MrEthical07/goSession/authapi"
	"github.com/MrEthical07/goSession/gate"
	"github.com/MrEthical07/goSession/internal/clock"
	"github.com/MrEthical07/goSession/internal/loop"
	"github.com/MrEthical07/goSession/policy"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/storage"
	"github.com/MrEthical07/goSession/token"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// State is the lifecycle position of a Client.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateAuthenticated
	StateUnauthenticated
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Snapshot is a copy of the client's read model.
type Snapshot struct {
	State           State
	IsAuthenticated bool
	IsLoading       bool
	User            *authapi.User
	Err             error
	LastActivityAt  time.Time
	// SessionID changes on every transition into StateAuthenticated.
	SessionID string
	Branch    string
}

// LoginResult is returned by Login and Register.
type LoginResult struct {
	// Destination is where the visitor was sent: the consumed intended
	// destination or Config.Routes.HomePath.
	Destination string
	User        authapi.User
}

// Navigator moves the visitor to target.
type Navigator interface {
	Navigate(ctx context.Context, target string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, target string)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(ctx context.Context, target string) {
	f(ctx, target)
}

// Client owns the session of one visitor: the token lifecycle, background
// renewal, idle logout and the access decision for each navigation.
//
// Client methods are safe for concurrent use. A Client is created with
// [Builder.Build].
type Client struct {
	config    Config
	gateCfg   gate.Config
	api       authapi.Client
	kv        storage.Store
	tokens    *token.Store
	refresher *refresh.Coordinator
	table     *policy.Table
	nav       Navigator
	clock     clock.Clock
	log       zerolog.Logger
	metrics   *Metrics
	events    *eventDispatcher

	hub         *activity.Hub
	tracker     *activity.Tracker
	refreshLoop *loop.Loop
	refreshing  atomic.Bool

	checks singleflight.Group

	mu        sync.RWMutex
	state     State
	loading   bool
	user      *authapi.User
	err       error
	sessionID string
	epoch     uint64
	closed    bool

	lastCheckAt time.Time
	lastCheckOK bool
	hasCheck    bool
}

/*
====================================
LIFECYCLE
====================================
*/

// Initialize restores a persisted session. A stored, unexpired token is
// confirmed with the auth server (renewing once on a 401); anything else
// leaves the client unauthenticated with token material cleared. Initialize
// reports only lifecycle errors: a failed restore is not an error.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != StateUninitialized {
		c.mu.Unlock()
		return ErrAlreadyInitialized
	}
	c.state = StateInitializing
	c.loading = true
	epoch := c.epoch
	c.mu.Unlock()

	if !c.tokens.IsAuthenticated(ctx) {
		c.tokens.Clear(ctx)
		c.settleUnauthenticated(epoch, nil)
		c.log.Debug().Msg("no stored session")
		return nil
	}

	user, err := c.fetchProfile(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("stored session could not be restored")
		if c.currentEpoch() == epoch {
			c.tokens.Clear(ctx)
		}
		c.settleUnauthenticated(epoch, nil)
		return nil
	}

	if !c.becomeAuthenticated(epoch, user) {
		return nil
	}
	c.log.Info().Str("user_id", user.ID).Msg("session restored")
	return nil
}

// Close stops background work and flushes queued events. Stored tokens are
// kept. Close is idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.stopBackground()
	c.events.Close()
}

/*
====================================
AUTHENTICATION
====================================
*/

// Login authenticates with email and password. Transport and server errors
// are returned unchanged and recorded in the read model. On success the
// visitor is sent to the intended destination, or Config.Routes.HomePath.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	epoch, err := c.beginAuth()
	if err != nil {
		return LoginResult{}, err
	}

	issued, err := c.api.Login(ctx, email, password)
	if err != nil {
		c.metrics.Inc(MetricLoginFailure)
		c.failAuth(epoch, err)
		c.log.Info().Err(err).Msg("login rejected")
		return LoginResult{}, err
	}

	res, err := c.completeAuth(ctx, epoch, issued, EventLogin)
	if err != nil {
		c.metrics.Inc(MetricLoginFailure)
		return LoginResult{}, err
	}
	c.metrics.Inc(MetricLoginSuccess)
	return res, nil
}

// Register creates an account and signs it in, following the same sequence
// as Login.
func (c *Client) Register(ctx context.Context, in authapi.RegisterInput) (LoginResult, error) {
	epoch, err := c.beginAuth()
	if err != nil {
		return LoginResult{}, err
	}

	issued, err := c.api.Register(ctx, in)
	if err != nil {
		c.metrics.Inc(MetricRegisterFailure)
		c.failAuth(epoch, err)
		c.log.Info().Err(err).Msg("registration rejected")
		return LoginResult{}, err
	}

	res, err := c.completeAuth(ctx, epoch, issued, EventRegister)
	if err != nil {
		c.metrics.Inc(MetricRegisterFailure)
		return LoginResult{}, err
	}
	c.metrics.Inc(MetricRegisterSuccess)
	return res, nil
}

// Logout ends the session: the server is told on a best-effort basis, then
// token material, the user, the branch selection, timers and activity
// listeners are cleared and the visitor is sent to the login page. Calling it
// again is harmless.
func (c *Client) Logout(ctx context.Context) {
	if c.endSession(ctx, "", nil, nil) {
		c.metrics.Inc(MetricLogout)
	}
}

// HandleUnauthorized is called when a request made elsewhere was answered
// with 401. It renews through the shared coordinator and reports whether the
// caller may retry. On failure the session is force-ended.
func (c *Client) HandleUnauthorized(ctx context.Context) bool {
	epoch := c.currentEpoch()
	if _, err := c.refresher.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return false
		}
		c.forceLogout(epoch, refreshReason(err), err)
		return false
	}
	return true
}

// CheckAuth confirms the session with the auth server. Concurrent calls share
// one request, and a result younger than Config.AuthCheck.Cooldown is
// returned without a request. A rejected session is force-ended; a transport
// failure is returned without changing state.
func (c *Client) CheckAuth(ctx context.Context) (bool, error) {
	if err := c.requireReady(); err != nil {
		return false, err
	}

	if ok, cached := c.cachedCheck(); cached {
		c.metrics.Inc(MetricAuthCheckCached)
		return ok, nil
	}

	ch := c.checks.DoChan("check", func() (interface{}, error) {
		c.metrics.Inc(MetricAuthCheck)
		return c.verifySession()
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}

/*
====================================
NAVIGATION
====================================
*/

// Decide evaluates path against the policy table and the current session and
// applies the decision's storage effects: a Remember path becomes the
// intended destination and ConsumeDestination deletes it.
func (c *Client) Decide(ctx context.Context, path string) (gate.Decision, error) {
	if err := c.requireReady(); err != nil {
		return gate.Decision{}, err
	}

	snap := c.gateSnapshot(ctx)
	d := gate.Decide(c.gateCfg, c.table.Resolve(path), path, snap)

	if d.Remember != "" {
		if err := c.kv.Set(ctx, storage.KeyRedirect, d.Remember); err != nil {
			c.log.Warn().Err(err).Msg("record intended destination")
		} else {
			c.metrics.Inc(MetricDestinationRemembered)
		}
	}
	if d.ConsumeDestination {
		if err := c.kv.Delete(ctx, storage.KeyRedirect); err != nil {
			c.log.Warn().Err(err).Msg("consume intended destination")
		} else {
			c.metrics.Inc(MetricDestinationConsumed)
		}
	}

	if d.Redirect() {
		c.metrics.Inc(MetricNavigateRedirect)
	} else {
		c.metrics.Inc(MetricNavigateRender)
	}
	c.log.Debug().
		Str("path", path).
		Str("action", d.Action.String()).
		Str("target", d.Target).
		Str("reason", d.Reason).
		Msg("navigation decided")
	return d, nil
}

// Navigate is Decide followed by a call to the Navigator when the decision is
// a redirect.
func (c *Client) Navigate(ctx context.Context, path string) (gate.Decision, error) {
	d, err := c.Decide(ctx, path)
	if err != nil {
		return d, err
	}
	if d.Redirect() {
		c.navigate(ctx, d.Target)
	}
	return d, nil
}

// SelectBranch records the branch the session works in. An empty branch
// clears the selection.
func (c *Client) SelectBranch(ctx context.Context, branch string) error {
	if branch == "" {
		return c.kv.Delete(ctx, storage.KeyBranch)
	}
	return c.kv.Set(ctx, storage.KeyBranch, branch)
}

// Branch returns the recorded branch, or "".
func (c *Client) Branch(ctx context.Context) string {
	v, err := c.kv.Get(ctx, storage.KeyBranch)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.log.Warn().Err(err).Msg("read branch selection")
		}
		return ""
	}
	return v
}

/*
====================================
READ MODEL
====================================
*/

// Snapshot returns a copy of the read model.
func (c *Client) Snapshot() Snapshot {
	c.mu.RLock()
	s := Snapshot{
		State:           c.state,
		IsAuthenticated: c.state == StateAuthenticated,
		IsLoading:       c.loading,
		Err:             c.err,
		SessionID:       c.sessionID,
	}
	if c.user != nil {
		u := *c.user
		s.User = &u
	}
	c.mu.RUnlock()

	if s.IsAuthenticated {
		s.LastActivityAt = c.tracker.LastActivity()
	}
	s.Branch = c.Branch(context.Background())
	return s
}

// IsAuthenticated reports whether the client is in StateAuthenticated.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateAuthenticated
}

// IsLoading reports whether an Initialize, Login or Register is in progress.
func (c *Client) IsLoading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// User returns the signed-in user.
func (c *Client) User() (authapi.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return authapi.User{}, false
	}
	return *c.user, true
}

// Err returns the last recorded error.
func (c *Client) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// ClearError resets the recorded error.
func (c *Client) ClearError() {
	c.mu.Lock()
	c.err = nil
	c.mu.Unlock()
}

// Subscribe registers fn for session events. Events are delivered in order on
// a single goroutine; fn must not block. The returned function unsubscribes.
func (c *Client) Subscribe(fn func(Event)) func() {
	return c.events.Subscribe(fn)
}

// RecordActivity marks visitor activity. With the built-in activity source
// the signal is broadcast to every subscriber; otherwise the idle clock is
// reset directly.
func (c *Client) RecordActivity(s activity.Signal) {
	if c.hub != nil {
		c.hub.Emit(s)
		return
	}
	c.tracker.Touch()
}

// Metrics returns the client's counters.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// MetricsSnapshot returns a copy of the counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// RefreshStats returns the renewal coordinator counters.
func (c *Client) RefreshStats() refresh.Stats {
	return c.refresher.Stats()
}

// DroppedEvents reports events discarded because the buffer was full.
func (c *Client) DroppedEvents() uint64 {
	return c.events.Dropped()
}

/*
====================================
INTERNALS
====================================
*/

func (c *Client) currentEpoch() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}

func (c *Client) requireReady() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	if c.state == StateUninitialized || c.state == StateInitializing {
		return ErrNotInitialized
	}
	return nil
}

func (c *Client) beginAuth() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}
	c.loading = true
	c.err = nil
	return c.epoch, nil
}

func (c *Client) failAuth(epoch uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return
	}
	c.err = err
	c.loading = false
}

func (c *Client) settleUnauthenticated(epoch uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return
	}
	c.state = StateUnauthenticated
	c.user = nil
	c.sessionID = ""
	c.loading = false
	c.err = err
}

// becomeAuthenticated enters StateAuthenticated unless a logout happened
// since epoch was read.
func (c *Client) becomeAuthenticated(epoch uint64, user authapi.User) bool {
	c.mu.Lock()
	if c.epoch != epoch || c.closed {
		c.mu.Unlock()
		return false
	}
	c.state = StateAuthenticated
	c.user = &user
	c.sessionID = uuid.NewString()
	c.loading = false
	c.err = nil
	c.hasCheck = false
	c.mu.Unlock()

	c.refreshLoop.Start()
	c.tracker.Start()
	return true
}

func (c *Client) completeAuth(ctx context.Context, epoch uint64, issued authapi.Tokens, kind EventType) (LoginResult, error) {
	if c.currentEpoch() != epoch {
		return LoginResult{}, ErrSessionEnded
	}

	if _, err := c.tokens.SetTokens(ctx, issued.AccessToken, issued.RefreshToken); err != nil {
		c.failAuth(epoch, err)
		return LoginResult{}, err
	}

	user, err := c.fetchProfile(ctx)
	if err != nil {
		if c.currentEpoch() == epoch {
			c.tokens.Clear(ctx)
		}
		c.failAuth(epoch, err)
		return LoginResult{}, err
	}

	if !c.becomeAuthenticated(epoch, user) {
		if !c.IsAuthenticated() {
			c.tokens.Clear(ctx)
		}
		return LoginResult{}, ErrSessionEnded
	}

	dest := c.consumeDestination(ctx)
	c.emit(kind, "", nil)
	c.log.Info().Str("user_id", user.ID).Str("event", string(kind)).Msg("signed in")
	c.navigate(ctx, dest)
	return LoginResult{Destination: dest, User: user}, nil
}

// fetchProfile loads the signed-in user, renewing once when the access token
// is rejected.
func (c *Client) fetchProfile(ctx context.Context) (authapi.User, error) {
	access := c.tokens.AccessToken(ctx)
	if access == "" {
		return authapi.User{}, ErrUnauthorized
	}

	user, err := c.me(ctx, access)
	if !errors.Is(err, ErrUnauthorized) {
		return user, err
	}

	c.log.Debug().Msg("profile request rejected, renewing")
	if _, err := c.refresher.Refresh(ctx); err != nil {
		return authapi.User{}, err
	}
	return c.me(ctx, c.tokens.AccessToken(ctx))
}

func (c *Client) me(ctx context.Context, access string) (authapi.User, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Refresh.Timeout)
	defer cancel()
	return c.api.Me(ctx, access)
}

func (c *Client) consumeDestination(ctx context.Context) string {
	dest, err := c.kv.Take(ctx, storage.KeyRedirect)
	if err != nil || !gate.IsLocalPath(dest) {
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			c.log.Warn().Err(err).Msg("read intended destination")
		}
		return c.config.Routes.HomePath
	}
	c.metrics.Inc(MetricDestinationConsumed)
	return dest
}

func (c *Client) navigate(ctx context.Context, target string) {
	if c.nav == nil || target == "" {
		return
	}
	c.nav.Navigate(ctx, target)
}

func (c *Client) gateSnapshot(ctx context.Context) gate.Snapshot {
	c.mu.RLock()
	snap := gate.Snapshot{Authenticated: c.state == StateAuthenticated}
	if c.user != nil {
		snap.Role = c.user.Role
		snap.IsVerified = c.user.IsVerified
	}
	c.mu.RUnlock()

	if !snap.Authenticated {
		return snap
	}
	if !snap.IsVerified {
		snap.IsVerified = c.tokens.IsVerified(ctx)
	}
	snap.Branch = c.Branch(ctx)
	if dest, err := c.kv.Get(ctx, storage.KeyRedirect); err == nil {
		snap.Destination = dest
	}
	return snap
}

func (c *Client) cachedCheck() (bool, bool) {
	if c.config.AuthCheck.Cooldown <= 0 {
		return false, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.hasCheck || c.clock.Now().Sub(c.lastCheckAt) >= c.config.AuthCheck.Cooldown {
		return false, false
	}
	return c.lastCheckOK, true
}

func (c *Client) verifySession() (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Refresh.Timeout)
	defer cancel()

	epoch := c.currentEpoch()
	ok := c.IsAuthenticated() && c.tokens.IsAuthenticated(ctx)
	if ok {
		user, err := c.fetchProfile(ctx)
		switch {
		case err == nil:
			c.mu.Lock()
			if c.epoch == epoch && c.state == StateAuthenticated {
				c.user = &user
			}
			c.mu.Unlock()
		case errors.Is(err, ErrRefreshFailed), errors.Is(err, ErrUnauthorized):
			c.forceLogout(epoch, refreshReason(err), err)
			ok = false
		default:
			return false, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		// The session ended while the check was in flight.
		return false, nil
	}
	c.hasCheck = true
	c.lastCheckAt = c.clock.Now()
	c.lastCheckOK = ok
	return ok, nil
}

func (c *Client) refreshTick(time.Time) {
	if !c.refreshing.CompareAndSwap(false, true) {
		c.log.Debug().Msg("refresh check already running")
		return
	}
	defer c.refreshing.Store(false)

	epoch := c.currentEpoch()
	if !c.IsAuthenticated() {
		return
	}

	ctx := context.Background()
	if _, ok := c.tokens.Tokens(ctx); !ok {
		c.forceLogout(epoch, ReasonExpired, nil)
		return
	}
	if !c.tokens.IsExpiringSoon(ctx, c.config.Refresh.ExpiringSoonWindow) {
		return
	}
	if _, err := c.refresher.Refresh(ctx); err != nil {
		c.forceLogout(epoch, refreshReason(err), err)
	}
}

func (c *Client) onRenewal(o refresh.Outcome) {
	switch {
	case o.Err == nil:
		c.metrics.Inc(MetricRefreshSuccess)
		c.metrics.Observe(MetricRefreshLatency, o.Took)
		c.emit(EventRefreshed, "", nil)
	case errors.Is(o.Err, ErrTokenReuseDetected):
		c.metrics.Inc(MetricRefreshFailure)
		c.metrics.Inc(MetricRefreshReuseDetected)
	default:
		c.metrics.Inc(MetricRefreshFailure)
	}
}

func (c *Client) onIdle(idleFor time.Duration) {
	c.log.Info().Dur("idle_for", idleFor).Msg("session idle")
	if c.forceLogout(c.currentEpoch(), ReasonIdle, nil) {
		c.metrics.Inc(MetricIdleLogout)
	}
}

// forceLogout ends the session that was current when epoch was read. It does
// nothing when that session is already over.
func (c *Client) forceLogout(epoch uint64, reason string, cause error) bool {
	if !c.endSession(context.Background(), reason, cause, &epoch) {
		return false
	}
	c.log.Error().Err(cause).Str("reason", reason).Msg("session force-ended")
	c.metrics.Inc(MetricForcedLogout)
	return true
}

// endSession performs logout. With a non-nil epoch it only ends the
// authenticated session of that epoch. It reports whether an authenticated
// session was ended by this call.
func (c *Client) endSession(ctx context.Context, reason string, cause error, epoch *uint64) bool {
	c.mu.Lock()
	wasActive := c.state == StateAuthenticated
	if epoch != nil && (!wasActive || c.epoch != *epoch) {
		c.mu.Unlock()
		return false
	}
	var userID, sessionID string
	if c.user != nil {
		userID = c.user.ID
	}
	sessionID = c.sessionID
	c.epoch++
	if c.state != StateUninitialized {
		c.state = StateUnauthenticated
	}
	c.user = nil
	c.sessionID = ""
	c.loading = false
	c.err = cause
	c.hasCheck = false
	c.mu.Unlock()

	c.stopBackground()

	if pair, ok := c.tokens.Tokens(ctx); ok {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.Refresh.Timeout)
		if err := c.api.Logout(lctx, pair.AccessToken, pair.RefreshToken); err != nil {
			c.log.Warn().Err(err).Msg("server logout failed")
		}
		cancel()
	}
	c.tokens.Clear(ctx)
	if err := c.kv.Delete(ctx, storage.KeyBranch); err != nil {
		c.log.Warn().Err(err).Msg("clear branch selection")
	}

	if wasActive {
		event := Event{Type: EventLogout, UserID: userID, SessionID: sessionID}
		if reason != "" {
			event.Type = EventForcedLogout
			event.Reason = reason
		}
		if cause != nil {
			event.Error = cause.Error()
		}
		c.dispatch(event)
		c.log.Info().Str("user_id", userID).Str("reason", reason).Msg("signed out")
	}

	c.navigate(ctx, c.config.Routes.LoginPath)
	return wasActive
}

func (c *Client) stopBackground() {
	c.refreshLoop.Stop()
	c.tracker.Stop()
}

func (c *Client) emit(kind EventType, reason string, cause error) {
	c.mu.RLock()
	event := Event{Type: kind, SessionID: c.sessionID, Reason: reason}
	if c.user != nil {
		event.UserID = c.user.ID
	}
	c.mu.RUnlock()
	if cause != nil {
		event.Error = cause.Error()
	}
	c.dispatch(event)
}

func (c *Client) dispatch(event Event) {
	event.ID = uuid.New()
	event.Timestamp = c.clock.Now()
	c.events.Emit(context.Background(), event)
}

func refreshReason(err error) string {
	if errors.Is(err, ErrTokenReuseDetected) {
		return ReasonTokenReuse
	}
	return ReasonRefreshFailed
}
