package goSession

import (
	"errors"

	"github.com/MrEthical07/goSession/authapi"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/token"
)

// Errors raised by leaf packages are re-exported so callers can match every
// session error against this package alone.
var (
	// ErrMalformedToken is returned when a stored or issued access token does
	// not decode.
	ErrMalformedToken = token.ErrMalformedToken
	// ErrInvalidTokenFormat is returned by jwt.Decode.
	ErrInvalidTokenFormat = jwt.ErrInvalidTokenFormat
	// ErrRefreshFailed is the cause recorded for a forced logout after a
	// failed renewal.
	ErrRefreshFailed = refresh.ErrRefreshFailed
	// ErrTokenReuseDetected is the security-sensitive subtype of
	// ErrRefreshFailed.
	ErrTokenReuseDetected = refresh.ErrTokenReuseDetected
	// ErrNetwork is returned by Login and Register when the auth server could
	// not be reached.
	ErrNetwork = authapi.ErrNetwork
	// ErrUnauthorized is returned when the auth server rejects credentials.
	ErrUnauthorized = authapi.ErrUnauthorized
)

var (
	// ErrNotInitialized is returned by operations that need Initialize first.
	ErrNotInitialized = errors.New("session client not initialized")
	// ErrAlreadyInitialized is returned by a second Initialize.
	ErrAlreadyInitialized = errors.New("session client already initialized")
	// ErrInvalidConfig wraps every Config.Validate failure.
	ErrInvalidConfig = errors.New("invalid session config")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session client closed")
	// ErrSessionEnded is returned when a logout happened while a login or
	// registration was in flight. The in-flight result is discarded.
	ErrSessionEnded = errors.New("session ended during request")
	// ErrBuilderUsed is returned by a second Build.
	ErrBuilderUsed = errors.New("builder already used")
)
