package jwt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidTokenFormat is returned by Decode for anything that is not a
// three-segment base64url JWT carrying an exp claim.
var ErrInvalidTokenFormat = errors.New("invalid token format")

// ExpiryBuffer is the safety margin IsTokenExpired applies before exp.
const ExpiryBuffer = 30 * time.Second

// Role is the account role embedded in access tokens.
type Role string

const (
	RoleMember     Role = "member"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

var validRoles = []Role{
	RoleMember,
	RoleAdmin,
	RoleSuperAdmin,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts a string into a Role.
func ParseRole(value string) (Role, error) {
	r := Role(strings.TrimSpace(value))
	if !r.IsValid() {
		return "", fmt.Errorf("invalid role %q", value)
	}
	return r, nil
}

// Claims is the decoded access-token payload.
type Claims struct {
	UserID      string `json:"userId"`
	Role        Role   `json:"role"`
	IsVerified  bool   `json:"isVerified"`
	InstituteID string `json:"instituteId,omitempty"`
	jwt.RegisteredClaims
}

// Expiry returns the exp claim, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// IssuedAtTime returns the iat claim, or the zero time when absent.
func (c *Claims) IssuedAtTime() time.Time {
	if c == nil || c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

var decoder = jwt.NewParser()

// Decode extracts the claims of token without verifying its signature. The
// header is not inspected, so any alg value is accepted.
func Decode(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return nil, ErrInvalidTokenFormat
	}

	// Only the payload is read; the header and signature are the server's
	// concern.
	payload, err := decoder.DecodeSegment(strings.Split(token, ".")[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTokenFormat, err)
	}
	claims := &Claims{}
	if err := json.Unmarshal(payload, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTokenFormat, err)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp claim", ErrInvalidTokenFormat)
	}
	return claims, nil
}

// IsTokenExpired reports whether token is undecodable or expires within
// ExpiryBuffer of now.
func IsTokenExpired(token string, now time.Time) bool {
	claims, err := Decode(token)
	if err != nil {
		return true
	}
	return !now.Add(ExpiryBuffer).Before(claims.Expiry())
}
