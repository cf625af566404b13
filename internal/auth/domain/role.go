package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Role is a closed enumeration. The wire form is exactly the constant name.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleEmployee Role = "EMPLOYEE"
)

// AllRoles lists every known role in canonical order.
var AllRoles = []Role{RoleAdmin, RoleEmployee}

func (r Role) String() string { return string(r) }

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return slices.Contains(AllRoles, r)
}

// ParseRole maps a wire name to a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if !r.Valid() {
		return "", fmt.Errorf("domain: unknown role %q", s)
	}
	return r, nil
}

// ParseRoles maps names to a deduplicated role set in canonical order.
// Unknown names are skipped; tokens minted by an older build may still
// carry them.
func ParseRoles(names []string) []Role {
	seen := make(map[Role]bool, len(names))
	for _, n := range names {
		if r, err := ParseRole(n); err == nil {
			seen[r] = true
		}
	}
	out := make([]Role, 0, len(seen))
	for _, r := range AllRoles {
		if seen[r] {
			out = append(out, r)
		}
	}
	return out
}

// RoleNames returns the wire names of roles.
func RoleNames(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
