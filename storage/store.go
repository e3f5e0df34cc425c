package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get and Take when a key holds no value.
var ErrNotFound = errors.New("storage: key not found")

// ErrUnavailable wraps backend failures (network, closed client).
var ErrUnavailable = errors.New("storage: backend unavailable")

// Persisted keys. They are versionless; a layout change requires a new key.
const (
	KeyTokens   = "auth_tokens"
	KeyVerified = "auth_is_verified"
	KeyBranch   = "selected_branch"
	KeyRedirect = "auth_redirect_after_login"
)

// Store is a string key-value store.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// Take returns the value for key and deletes it in one step.
	Take(ctx context.Context, key string) (string, error)
}
