package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goSession/jwt"
)

var (
	// ErrConflictingPolicy is returned for a policy that does not require
	// authentication yet restricts roles.
	ErrConflictingPolicy = errors.New("policy: allowedRoles set on a policy that does not require auth")
	// ErrDuplicatePattern is returned when two policies share a pattern.
	ErrDuplicatePattern = errors.New("policy: duplicate pattern")
	// ErrMissingRoot is returned for a table without a "/" policy.
	ErrMissingRoot = errors.New("policy: table has no \"/\" policy")
	// ErrInvalidPattern is returned for patterns that are not absolute paths
	// or contain unknown roles.
	ErrInvalidPattern = errors.New("policy: invalid pattern")
)

// Policy is the access requirement of a path pattern.
type Policy struct {
	Pattern              string     `yaml:"pattern"`
	RequireAuth          bool       `yaml:"requireAuth"`
	AllowedRoles         []jwt.Role `yaml:"allowedRoles,omitempty"`
	RequireBranch        bool       `yaml:"requireBranch,omitempty"`
	RequireVerifiedEmail bool       `yaml:"requireVerifiedEmail,omitempty"`
	RedirectTo           string     `yaml:"redirectTo,omitempty"`
}

// Allows reports whether role may access the policy. An empty AllowedRoles
// allows every role.
func (p Policy) Allows(role jwt.Role) bool {
	if len(p.AllowedRoles) == 0 {
		return true
	}
	for _, r := range p.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Segments returns the pattern split on "/".
func (p Policy) Segments() []string {
	return splitPath(p.Pattern)
}

func (p Policy) clone() Policy {
	out := p
	if p.AllowedRoles != nil {
		out.AllowedRoles = append([]jwt.Role(nil), p.AllowedRoles...)
	}
	return out
}

func (p Policy) validate() error {
	if !strings.HasPrefix(p.Pattern, "/") {
		return fmt.Errorf("%w: %q must start with /", ErrInvalidPattern, p.Pattern)
	}
	if !p.RequireAuth && len(p.AllowedRoles) > 0 {
		return fmt.Errorf("%w: %s", ErrConflictingPolicy, p.Pattern)
	}
	for _, r := range p.AllowedRoles {
		if !r.IsValid() {
			return fmt.Errorf("%w: %s: unknown role %q", ErrInvalidPattern, p.Pattern, r)
		}
	}
	return nil
}

// IsParam reports whether a pattern segment is a bracketed parameter.
func IsParam(segment string) bool {
	return len(segment) > 2 && strings.HasPrefix(segment, "[") && strings.HasSuffix(segment, "]")
}

// ParamName returns the name inside a bracketed segment, or "".
func ParamName(segment string) string {
	if !IsParam(segment) {
		return ""
	}
	return segment[1 : len(segment)-1]
}

// CleanPath strips the query string and fragment and any trailing slash.
func CleanPath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}

func splitPath(path string) []string {
	trimmed := strings.Trim(CleanPath(path), "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
