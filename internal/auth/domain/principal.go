package domain

import "slices"

// Principal is the authenticated identity of a request. It is rebuilt from
// a verified access token every time and never persisted.
type Principal struct {
	Username string
	Roles    []Role
}

// NewPrincipal copies roles so the principal cannot be mutated through
// the caller's slice.
func NewPrincipal(username string, roles []Role) Principal {
	return Principal{Username: username, Roles: slices.Clone(roles)}
}

// HasRole reports whether the principal holds r.
func (p Principal) HasRole(r Role) bool {
	return slices.Contains(p.Roles, r)
}

// HasAnyRole reports whether the principal holds at least one of roles.
func (p Principal) HasAnyRole(roles ...Role) bool {
	return slices.ContainsFunc(roles, p.HasRole)
}
