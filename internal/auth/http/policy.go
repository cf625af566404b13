package http

import (
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/pkg/httpx"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

// Access is the outcome of matching a request against the policy.
type Access int

const (
	// AccessAuthenticated admits any verified principal.
	AccessAuthenticated Access = iota
	// AccessPublic admits anonymous callers.
	AccessPublic
	// AccessRoles admits principals holding one of the rule's roles.
	AccessRoles
)

// Rule binds a set of methods and path patterns to an access level.
// An empty Methods list matches every method.
//
// Patterns are "*" (everything), a prefix ending in "*" such as
// "/employees*", or a path.Match pattern such as "/employees/*".
type Rule struct {
	Methods  []string
	Patterns []string
	Access   Access
	Roles    []domain.Role
}

func (r Rule) matches(method, p string) bool {
	if len(r.Methods) > 0 && !slices.Contains(r.Methods, method) {
		return false
	}
	return slices.ContainsFunc(r.Patterns, func(pattern string) bool {
		return matchPattern(pattern, p)
	})
}

func matchPattern(pattern, p string) bool {
	switch {
	case pattern == "*":
		return true
	case strings.HasSuffix(pattern, "*") && !strings.HasSuffix(pattern, "/*"):
		return strings.HasPrefix(p, strings.TrimSuffix(pattern, "*"))
	default:
		ok, err := path.Match(pattern, p)
		return err == nil && ok
	}
}

// Policy is an ordered rule table. The first matching rule wins; requests
// matching no rule need an authenticated principal.
type Policy struct {
	Rules []Rule
}

// DefaultPolicy is the access table for the auth endpoints and the
// employee resources served behind them.
func DefaultPolicy() *Policy {
	return &Policy{Rules: []Rule{
		{
			Patterns: []string{"/auth/login", "/auth/register", "/auth/refresh", "/health"},
			Access:   AccessPublic,
		},
		{
			Methods:  []string{http.MethodOptions},
			Patterns: []string{"*"},
			Access:   AccessPublic,
		},
		{
			Methods:  []string{http.MethodPost, http.MethodPut, http.MethodDelete},
			Patterns: []string{"/employees*"},
			Access:   AccessRoles,
			Roles:    []domain.Role{domain.RoleAdmin},
		},
		{
			Methods:  []string{http.MethodGet},
			Patterns: []string{"/employees", "/employees/*"},
			Access:   AccessRoles,
			Roles:    []domain.Role{domain.RoleAdmin, domain.RoleEmployee},
		},
	}}
}

// Match returns the rule governing method and p.
func (pol *Policy) Match(method, p string) Rule {
	for _, r := range pol.Rules {
		if r.matches(method, p) {
			return r
		}
	}
	return Rule{Access: AccessAuthenticated}
}

// Decision is the status a request should be refused with, or 0 when it
// may proceed.
func (pol *Policy) Decision(method, p string, principal *domain.Principal) int {
	rule := pol.Match(method, p)
	if rule.Access == AccessPublic {
		return 0
	}
	if principal == nil {
		return http.StatusUnauthorized
	}
	if rule.Access == AccessRoles && !principal.HasAnyRole(rule.Roles...) {
		return http.StatusForbidden
	}
	return 0
}

// Middleware enforces the policy using the principal left in the context
// by Authenticator.
func (pol *Policy) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var principal *domain.Principal
			if p, ok := PrincipalFromContext(r.Context()); ok {
				principal = &p
			}

			switch pol.Decision(r.Method, r.URL.Path, principal) {
			case http.StatusUnauthorized:
				problemUnauthorized.Write(w, r)
			case http.StatusForbidden:
				slogx.FromContext(r.Context()).Warn("authorization denied",
					"username", principal.Username,
					"roles", domain.RoleNames(principal.Roles))
				problemForbidden.Write(w, r)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
