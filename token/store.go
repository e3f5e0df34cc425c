package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/internal/clock"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/storage"
	"github.com/rs/zerolog"
)

// DefaultExpiringSoonWindow is the window IsExpiringSoon uses when called
// with a non-positive window.
const DefaultExpiringSoonWindow = 5 * time.Minute

var (
	// ErrMalformedToken is returned by SetTokens when the access token cannot
	// be decoded. It also matches jwt.ErrInvalidTokenFormat.
	ErrMalformedToken = errors.New("malformed token")
	// ErrPersist is returned by SetTokens when the pair could not be written.
	ErrPersist = errors.New("token persistence failed")
)

// Store persists and interprets the token pair. All writes serialise on an
// internal mutex so a lazy expiry sweep never races a concurrent SetTokens.
type Store struct {
	kv    storage.Store
	clock clock.Clock
	log   zerolog.Logger

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for expiry checks.
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger for swallowed storage and decode failures.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// New creates a Store over kv.
func New(kv storage.Store, opts ...Option) *Store {
	s := &Store{
		kv:    kv,
		clock: clock.Real(),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "token_store").Logger()
	return s
}

// SetTokens decodes access and persists the pair with its derived expiry and
// verified flag. A token that cannot be decoded clears any previously stored
// material and returns ErrMalformedToken.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) (Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	claims, err := jwt.Decode(access)
	if err != nil {
		s.clearLocked(ctx)
		return Pair{}, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	pair := Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.UnixMilli(claims.Expiry().Unix() * 1000),
	}
	data, err := json.Marshal(pair)
	if err != nil {
		return Pair{}, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := s.kv.Set(ctx, storage.KeyTokens, string(data)); err != nil {
		s.clearLocked(ctx)
		return Pair{}, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := s.kv.Set(ctx, storage.KeyVerified, strconv.FormatBool(claims.IsVerified)); err != nil {
		s.clearLocked(ctx)
		return Pair{}, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return pair, nil
}

// Tokens returns the stored pair. It reports false, and clears storage, once
// the clock reaches ExpiresAt or when the persisted value is corrupt.
func (s *Store) Tokens(ctx context.Context) (Pair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokensLocked(ctx)
}

func (s *Store) tokensLocked(ctx context.Context) (Pair, bool) {
	raw, err := s.kv.Get(ctx, storage.KeyTokens)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn().Err(err).Msg("read token pair")
		}
		return Pair{}, false
	}

	var pair Pair
	if err := json.Unmarshal([]byte(raw), &pair); err != nil || pair.Empty() {
		s.log.Warn().Err(err).Msg("discarding corrupt token pair")
		s.clearLocked(ctx)
		return Pair{}, false
	}
	if !s.clock.Now().Before(pair.ExpiresAt) {
		s.log.Debug().Msg("token pair expired")
		s.clearLocked(ctx)
		return Pair{}, false
	}
	return pair, true
}

// Claims decodes the stored access token.
func (s *Store) Claims(ctx context.Context) (*jwt.Claims, bool) {
	pair, ok := s.Tokens(ctx)
	if !ok {
		return nil, false
	}
	claims, err := jwt.Decode(pair.AccessToken)
	if err != nil {
		s.log.Warn().Err(err).Msg("stored access token does not decode")
		return nil, false
	}
	return claims, true
}

// AccessToken returns the stored access token or "".
func (s *Store) AccessToken(ctx context.Context) string {
	pair, ok := s.Tokens(ctx)
	if !ok {
		return ""
	}
	return pair.AccessToken
}

// RefreshToken returns the stored refresh token or "".
func (s *Store) RefreshToken(ctx context.Context) string {
	pair, ok := s.Tokens(ctx)
	if !ok {
		return ""
	}
	return pair.RefreshToken
}

// IsVerified returns the persisted verified flag of the last stored token.
func (s *Store) IsVerified(ctx context.Context) bool {
	raw, err := s.kv.Get(ctx, storage.KeyVerified)
	if err != nil {
		return false
	}
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}

// IsAuthenticated reports whether a pair is stored, decodes, and expires in
// the future.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	claims, ok := s.Claims(ctx)
	if !ok {
		return false
	}
	return s.clock.Now().Before(claims.Expiry())
}

// IsExpiringSoon reports whether the stored pair expires within window. It
// returns false when nothing is stored.
func (s *Store) IsExpiringSoon(ctx context.Context, window time.Duration) bool {
	if window <= 0 {
		window = DefaultExpiringSoonWindow
	}
	pair, ok := s.Tokens(ctx)
	if !ok {
		return false
	}
	return pair.ExpiresAt.Sub(s.clock.Now()) <= window
}

// Clear removes all token material. It is idempotent.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked(ctx)
}

func (s *Store) clearLocked(ctx context.Context) {
	if err := s.kv.Delete(ctx, storage.KeyTokens, storage.KeyVerified); err != nil {
		s.log.Warn().Err(err).Msg("clear token material")
	}
}
