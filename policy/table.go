package policy

import (
	"fmt"
)

// Table is a frozen, ordered policy table.
type Table struct {
	policies []Policy
	exact    map[string]int
	segments [][]string
	root     int
}

// NewTable validates policies and freezes them in registration order.
func NewTable(policies ...Policy) (*Table, error) {
	t := &Table{
		policies: make([]Policy, 0, len(policies)),
		exact:    make(map[string]int, len(policies)),
		segments: make([][]string, 0, len(policies)),
		root:     -1,
	}
	for _, p := range policies {
		p = p.clone()
		p.Pattern = CleanPath(p.Pattern)
		if err := p.validate(); err != nil {
			return nil, err
		}
		if _, dup := t.exact[p.Pattern]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePattern, p.Pattern)
		}
		idx := len(t.policies)
		t.exact[p.Pattern] = idx
		t.policies = append(t.policies, p)
		t.segments = append(t.segments, splitPath(p.Pattern))
		if p.Pattern == "/" {
			t.root = idx
		}
	}
	if t.root < 0 {
		return nil, ErrMissingRoot
	}
	return t, nil
}

// MustTable is NewTable that panics on error. It is meant for static tables.
func MustTable(policies ...Policy) *Table {
	t, err := NewTable(policies...)
	if err != nil {
		panic(err)
	}
	return t
}

// Resolve returns the policy governing path.
func (t *Table) Resolve(path string) Policy {
	p, _ := t.Match(path)
	return p
}

// Match returns the policy governing path and the values captured by its
// bracketed segments, keyed by parameter name.
func (t *Table) Match(path string) (Policy, map[string]string) {
	path = CleanPath(path)
	if idx, ok := t.exact[path]; ok {
		return t.policies[idx].clone(), nil
	}

	segments := splitPath(path)
	for idx, pattern := range t.segments {
		if params, ok := matchSegments(pattern, segments); ok {
			return t.policies[idx].clone(), params
		}
	}
	return t.policies[t.root].clone(), nil
}

// Policies returns a copy of the table in registration order.
func (t *Table) Policies() []Policy {
	out := make([]Policy, len(t.policies))
	for i, p := range t.policies {
		out[i] = p.clone()
	}
	return out
}

// Resolve returns the policy governing path in table.
func Resolve(path string, table *Table) Policy {
	return table.Resolve(path)
}

func matchSegments(pattern, path []string) (map[string]string, bool) {
	if len(pattern) != len(path) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range pattern {
		if IsParam(seg) {
			if params == nil {
				params = make(map[string]string)
			}
			params[ParamName(seg)] = path[i]
			continue
		}
		if seg != path[i] {
			return nil, false
		}
	}
	return params, true
}
