package policy

import "github.com/MrEthical07/goSession/jwt"

// DefaultTable returns the application's route table.
func DefaultTable() *Table {
	return MustTable(
		Policy{
			Pattern:      "/admin/institute/dashboard",
			RequireAuth:  true,
			AllowedRoles: []jwt.Role{jwt.RoleAdmin},
			// Branch comes from the ?branch= query parameter here.
			RequireBranch: true,
			RedirectTo:    "/login",
		},
		Policy{
			Pattern:       "/admin/institute/[branchId]/members",
			RequireAuth:   true,
			AllowedRoles:  []jwt.Role{jwt.RoleAdmin},
			RequireBranch: true,
			RedirectTo:    "/admin/institute/dashboard",
		},
		Policy{
			Pattern:              "/admin/reports",
			RequireAuth:          true,
			AllowedRoles:         []jwt.Role{jwt.RoleAdmin},
			RequireVerifiedEmail: true,
			RedirectTo:           "/login",
		},
		Policy{
			Pattern:      "/member/entities/[entityId]",
			RequireAuth:  true,
			AllowedRoles: []jwt.Role{jwt.RoleMember},
			RedirectTo:   "/login",
		},
		Policy{
			Pattern:      "/member/jobs",
			RequireAuth:  true,
			AllowedRoles: []jwt.Role{jwt.RoleMember},
			RedirectTo:   "/login",
		},
		Policy{
			Pattern:     "/feed",
			RequireAuth: true,
			RedirectTo:  "/login",
		},
		Policy{
			Pattern:      "/super-admin/dashboard",
			RequireAuth:  true,
			AllowedRoles: []jwt.Role{jwt.RoleSuperAdmin},
			RedirectTo:   "/login",
		},
		Policy{
			Pattern:     "/verify-email",
			RequireAuth: true,
			RedirectTo:  "/login",
		},
		Policy{Pattern: "/login", RedirectTo: "/"},
		Policy{Pattern: "/register", RedirectTo: "/"},
		Policy{Pattern: "/", RedirectTo: "/login"},
	)
}
