package gate

import (
	"net/url"
	"strings"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/policy"
)

// Action is the outcome kind of a Decision.
type Action int

const (
	ActionRender Action = iota
	ActionRedirectLogin
	ActionRedirectRoleHome
	ActionRedirectBranch
	ActionRedirectVerifyEmail
	ActionRedirectDestination
)

var actionNames = [...]string{
	ActionRender:              "render",
	ActionRedirectLogin:       "redirect_login",
	ActionRedirectRoleHome:    "redirect_role_home",
	ActionRedirectBranch:      "redirect_branch",
	ActionRedirectVerifyEmail: "redirect_verify_email",
	ActionRedirectDestination: "redirect_destination",
}

// String implements fmt.Stringer.
func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// Reasons attached to decisions.
const (
	ReasonPublic          = "public"
	ReasonUnauthenticated = "unauthenticated"
	ReasonRoleNotAllowed  = "role_not_allowed"
	ReasonBranchMismatch  = "branch_mismatch"
	ReasonBranchMissing   = "branch_missing"
	ReasonBranchSelection = "branch_selection_required"
	ReasonEmailUnverified = "email_unverified"
	ReasonAlreadyVerified = "already_verified"
	ReasonAlreadySignedIn = "already_signed_in"
	ReasonAllowed         = "allowed"
)

// Decision is the outcome of one navigation.
type Decision struct {
	Action Action
	// Target is the redirect destination; empty for ActionRender.
	Target string
	// Remember, when set, is the path to store as the intended destination.
	Remember string
	// ConsumeDestination asks the caller to delete the stored intended
	// destination.
	ConsumeDestination bool
	Reason             string
}

// Redirect reports whether the decision leaves the requested path.
func (d Decision) Redirect() bool {
	return d.Action != ActionRender
}

// Snapshot is the session state a decision reads.
type Snapshot struct {
	Authenticated bool
	Role          jwt.Role
	IsVerified    bool
	// Branch is the branch recorded for the session.
	Branch string
	// Destination is the stored intended destination, if any.
	Destination string
}

// Config holds the well-known paths the gate redirects to.
type Config struct {
	LoginPath       string
	VerifyEmailPath string
	RoleHomes       map[jwt.Role]string
	// BranchParam names the pattern segment carrying the branch, as in
	// /admin/institute/[branchId]/members.
	BranchParam string
	// BranchQuery is the query parameter carrying the branch when the
	// pattern has no BranchParam segment.
	BranchQuery string
}

// DefaultConfig returns the application's paths.
func DefaultConfig() Config {
	return Config{
		LoginPath:       "/login",
		VerifyEmailPath: "/verify-email",
		RoleHomes: map[jwt.Role]string{
			jwt.RoleSuperAdmin: "/super-admin/dashboard",
			jwt.RoleAdmin:      "/admin/institute/dashboard",
			jwt.RoleMember:     "/feed",
		},
		BranchParam: "branchId",
		BranchQuery: "branch",
	}
}

// RoleHome returns the landing path for role, or the login path for roles
// without one.
func (c Config) RoleHome(role jwt.Role) string {
	if home, ok := c.RoleHomes[role]; ok && home != "" {
		return home
	}
	return c.LoginPath
}

// Decide applies the navigation rules to path.
func Decide(cfg Config, p policy.Policy, path string, snap Snapshot) Decision {
	clean := policy.CleanPath(path)

	// 1
	if !p.RequireAuth && !snap.Authenticated {
		return Decision{Action: ActionRender, Reason: ReasonPublic}
	}

	// 2
	if p.RequireAuth && !snap.Authenticated {
		d := Decision{
			Action: ActionRedirectLogin,
			Target: firstNonEmpty(p.RedirectTo, cfg.LoginPath),
			Reason: ReasonUnauthenticated,
		}
		if clean != "/" && clean != cfg.LoginPath && IsLocalPath(path) {
			d.Remember = path
		}
		return d
	}

	// 3
	if !p.Allows(snap.Role) {
		return Decision{
			Action: ActionRedirectRoleHome,
			Target: cfg.RoleHome(snap.Role),
			Reason: ReasonRoleNotAllowed,
		}
	}

	// 4
	if p.RequireBranch {
		if d, ok := decideBranch(cfg, p, path, clean, snap); ok {
			return d
		}
	}

	// 5
	if p.RequireVerifiedEmail && !snap.IsVerified && clean != cfg.VerifyEmailPath {
		return Decision{
			Action: ActionRedirectVerifyEmail,
			Target: cfg.VerifyEmailPath,
			Reason: ReasonEmailUnverified,
		}
	}

	// 6
	if clean == cfg.VerifyEmailPath && snap.IsVerified {
		if IsLocalPath(snap.Destination) && policy.CleanPath(snap.Destination) != clean {
			return Decision{
				Action:             ActionRedirectDestination,
				Target:             snap.Destination,
				ConsumeDestination: true,
				Reason:             ReasonAlreadyVerified,
			}
		}
		return Decision{
			Action: ActionRedirectRoleHome,
			Target: cfg.RoleHome(snap.Role),
			Reason: ReasonAlreadyVerified,
		}
	}

	// 7
	if !p.RequireAuth {
		target := cfg.RoleHome(snap.Role)
		if target == cfg.LoginPath {
			target = "/"
		}
		if target != clean {
			return Decision{
				Action: ActionRedirectRoleHome,
				Target: target,
				Reason: ReasonAlreadySignedIn,
			}
		}
	}

	// 8
	return Decision{Action: ActionRender, Reason: ReasonAllowed}
}

// IsLocalPath reports whether p is an absolute path on this site. Scheme
// relative forms such as //host/x are not.
func IsLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}

func decideBranch(cfg Config, p policy.Policy, path, clean string, snap Snapshot) (Decision, bool) {
	if snap.Branch == "" {
		fallback := p.RedirectTo
		if fallback == "" || fallback == cfg.LoginPath || policy.CleanPath(fallback) == clean {
			// Nowhere safe to send the visitor; the page prompts for a branch.
			return Decision{Action: ActionRender, Reason: ReasonBranchSelection}, true
		}
		return Decision{Action: ActionRedirectBranch, Target: fallback, Reason: ReasonBranchMissing}, true
	}

	current, segment := BranchFromPath(cfg, p, path)
	if current == snap.Branch {
		return Decision{}, false
	}
	return Decision{
		Action: ActionRedirectBranch,
		Target: rewriteBranch(cfg, path, segment, snap.Branch),
		Reason: ReasonBranchMismatch,
	}, true
}

// BranchFromPath returns the branch carried by path under policy p and, when
// it comes from a pattern segment, that segment's index. The index is -1 for
// the query parameter.
func BranchFromPath(cfg Config, p policy.Policy, path string) (string, int) {
	pathPart, query := splitQuery(path)
	segments := strings.Split(strings.Trim(policy.CleanPath(pathPart), "/"), "/")
	for i, seg := range p.Segments() {
		if policy.ParamName(seg) == cfg.BranchParam && i < len(segments) {
			return segments[i], i
		}
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return "", -1
	}
	return values.Get(cfg.BranchQuery), -1
}

func rewriteBranch(cfg Config, path string, segment int, branch string) string {
	pathPart, query := splitQuery(path)
	if segment >= 0 {
		clean := policy.CleanPath(pathPart)
		segments := strings.Split(strings.Trim(clean, "/"), "/")
		segments[segment] = url.PathEscape(branch)
		out := "/" + strings.Join(segments, "/")
		if query != "" {
			out += "?" + query
		}
		return out
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		values = url.Values{}
	}
	values.Set(cfg.BranchQuery, branch)
	return policy.CleanPath(pathPart) + "?" + values.Encode()
}

func splitQuery(path string) (string, string) {
	if i := strings.IndexByte(path, '#'); i >= 0 {
		path = path[:i]
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return path, ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
