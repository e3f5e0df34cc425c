package policy

import (
	"strings"
	"testing"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/stretchr/testify/require"
)

func TestResolveLiteralCases(t *testing.T) {
	table := DefaultTable()

	p := table.Resolve("/admin/institute/dashboard")
	require.Equal(t, "/admin/institute/dashboard", p.Pattern)
	require.Equal(t, []jwt.Role{jwt.RoleAdmin}, p.AllowedRoles)
	require.True(t, p.RequireBranch)

	p = table.Resolve("/member/entities/42")
	require.Equal(t, "/member/entities/[entityId]", p.Pattern)

	p = Resolve("/totally/unknown/path", table)
	require.Equal(t, "/", p.Pattern)
}

func TestResolveNormalisesPath(t *testing.T) {
	table := DefaultTable()
	tests := []struct {
		path string
		want string
	}{
		{"/member/jobs/", "/member/jobs"},
		{"/member/jobs?page=2", "/member/jobs"},
		{"/member/jobs#top", "/member/jobs"},
		{"", "/"},
		{"/member/entities/42/", "/member/entities/[entityId]"},
		{"/member/entities", "/"},
		{"/member/entities/42/edit", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			require.Equal(t, tt.want, table.Resolve(tt.path).Pattern)
		})
	}
}

func TestResolveFirstRegisteredPatternWins(t *testing.T) {
	table, err := NewTable(
		Policy{Pattern: "/docs/[slug]", RequireAuth: true},
		Policy{Pattern: "/docs/intro"},
		Policy{Pattern: "/[section]/intro", RequireAuth: true, AllowedRoles: []jwt.Role{jwt.RoleAdmin}},
		Policy{Pattern: "/"},
	)
	require.NoError(t, err)

	// exact match beats the earlier parameterised pattern
	require.Equal(t, "/docs/intro", table.Resolve("/docs/intro").Pattern)
	// registration order, not specificity, decides among patterns
	require.Equal(t, "/docs/[slug]", table.Resolve("/docs/guide").Pattern)
	require.Equal(t, "/[section]/intro", table.Resolve("/blog/intro").Pattern)
}

func TestMatchCapturesParams(t *testing.T) {
	p, params := DefaultTable().Match("/admin/institute/b-12/members")
	require.Equal(t, "/admin/institute/[branchId]/members", p.Pattern)
	require.Equal(t, map[string]string{"branchId": "b-12"}, params)
}

func TestNewTableRejectsInvalidConfig(t *testing.T) {
	root := Policy{Pattern: "/"}

	_, err := NewTable(Policy{Pattern: "/login", AllowedRoles: []jwt.Role{jwt.RoleMember}}, root)
	require.ErrorIs(t, err, ErrConflictingPolicy)

	_, err = NewTable(Policy{Pattern: "/a"}, Policy{Pattern: "/a/"}, root)
	require.ErrorIs(t, err, ErrDuplicatePattern)

	_, err = NewTable(Policy{Pattern: "/a"})
	require.ErrorIs(t, err, ErrMissingRoot)

	_, err = NewTable(Policy{Pattern: "/a", RequireAuth: true, AllowedRoles: []jwt.Role{"owner"}}, root)
	require.ErrorIs(t, err, ErrInvalidPattern)
}

func TestTableIsFrozen(t *testing.T) {
	roles := []jwt.Role{jwt.RoleAdmin}
	table, err := NewTable(Policy{Pattern: "/x", RequireAuth: true, AllowedRoles: roles}, Policy{Pattern: "/"})
	require.NoError(t, err)

	roles[0] = jwt.RoleMember
	got := table.Resolve("/x")
	require.Equal(t, jwt.RoleAdmin, got.AllowedRoles[0])

	got.AllowedRoles[0] = jwt.RoleSuperAdmin
	require.Equal(t, jwt.RoleAdmin, table.Resolve("/x").AllowedRoles[0])
}

func TestLoadYAML(t *testing.T) {
	doc := `
policies:
  - pattern: /member/jobs
    requireAuth: true
    allowedRoles: [member]
    redirectTo: /login
  - pattern: /orgs/[branchId]/settings
    requireAuth: true
    requireBranch: true
    requireVerifiedEmail: true
  - pattern: /
`
	table, err := LoadYAML(strings.NewReader(doc))
	require.NoError(t, err)

	p := table.Resolve("/orgs/b1/settings")
	require.True(t, p.RequireBranch)
	require.True(t, p.RequireVerifiedEmail)
	require.Equal(t, []jwt.Role{jwt.RoleMember}, table.Resolve("/member/jobs").AllowedRoles)

	_, err = LoadYAML(strings.NewReader("policies:\n  - pattern: /\n    requireAuht: true\n"))
	require.Error(t, err)

	_, err = LoadYAML(strings.NewReader("policies:\n  - pattern: /login\n    allowedRoles: [admin]\n  - pattern: /\n"))
	require.ErrorIs(t, err, ErrConflictingPolicy)
}
