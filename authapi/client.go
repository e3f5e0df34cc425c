package authapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/goSession/jwt"
)

var (
	// ErrUnauthorized is matched by responses with status 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTokenReuse is matched when the server reports that a refresh token
	// was already consumed.
	ErrTokenReuse = errors.New("refresh token reuse detected")
	// ErrNetwork wraps transport failures and undecodable responses.
	ErrNetwork = errors.New("network error")
)

// CodeTokenReuse is the server error code for a replayed refresh token.
const CodeTokenReuse = "TOKEN_REUSE_DETECTED"

// User is the profile returned by the me endpoint.
type User struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name,omitempty"`
	Role        jwt.Role `json:"role"`
	IsVerified  bool     `json:"isVerified"`
	InstituteID string   `json:"instituteId,omitempty"`
}

// Tokens is a token pair as issued by the server.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Name        string   `json:"name,omitempty"`
	Role        jwt.Role `json:"role,omitempty"`
	InstituteID string   `json:"instituteId,omitempty"`
}

// Client is the auth server as seen by the session engine.
type Client interface {
	Login(ctx context.Context, email, password string) (Tokens, error)
	Register(ctx context.Context, in RegisterInput) (Tokens, error)
	Me(ctx context.Context, accessToken string) (User, error)
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
}

// APIError is a non-2xx response from the auth server.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("auth api: %d %s: %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("auth api: %d: %s", e.Status, msg)
}

// Unwrap maps the response onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch {
	case e.Code == CodeTokenReuse:
		return ErrTokenReuse
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return nil
	}
}
