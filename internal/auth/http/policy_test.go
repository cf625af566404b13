package http

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"*", "/anything/at/all", true},
		{"/employees*", "/employees", true},
		{"/employees*", "/employees/42/badges", true},
		{"/employees*", "/employeesx", true},
		{"/employees*", "/employee", false},
		{"/employees/*", "/employees/42", true},
		{"/employees/*", "/employees/42/badges", false},
		{"/employees/*", "/employees", false},
		{"/employees", "/employees", true},
		{"/health", "/healthz", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			require.Equal(t, tt.want, matchPattern(tt.pattern, tt.path))
		})
	}
}

func TestPolicyDecision(t *testing.T) {
	pol := DefaultPolicy()
	admin := &domain.Principal{Username: "admin", Roles: []domain.Role{domain.RoleAdmin}}
	employee := &domain.Principal{Username: "employee1", Roles: []domain.Role{domain.RoleEmployee}}
	noRoles := &domain.Principal{Username: "ghost"}

	tests := []struct {
		name      string
		method    string
		path      string
		principal *domain.Principal
		want      int
	}{
		{"login is public", http.MethodPost, "/auth/login", nil, 0},
		{"register is public", http.MethodPost, "/auth/register", nil, 0},
		{"refresh is public", http.MethodPost, "/auth/refresh", nil, 0},
		{"health is public", http.MethodGet, "/health", nil, 0},
		{"preflight is public", http.MethodOptions, "/employees/7", nil, 0},
		{"me needs a principal", http.MethodGet, "/auth/me", nil, http.StatusUnauthorized},
		{"me with principal", http.MethodGet, "/auth/me", noRoles, 0},
		{"admin creates employee", http.MethodPost, "/employees", admin, 0},
		{"employee cannot create", http.MethodPost, "/employees", employee, http.StatusForbidden},
		{"employee cannot update", http.MethodPut, "/employees/7", employee, http.StatusForbidden},
		{"employee cannot delete", http.MethodDelete, "/employees/7", employee, http.StatusForbidden},
		{"anonymous create", http.MethodPost, "/employees", nil, http.StatusUnauthorized},
		{"employee lists", http.MethodGet, "/employees", employee, 0},
		{"admin reads one", http.MethodGet, "/employees/7", admin, 0},
		{"no role reads", http.MethodGet, "/employees/7", noRoles, http.StatusForbidden},
		{"nested get falls to default", http.MethodGet, "/employees/7/badges", noRoles, 0},
		{"patch falls to default", http.MethodPatch, "/employees/7", noRoles, 0},
		{"unknown path anonymous", http.MethodGet, "/reports", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, pol.Decision(tt.method, tt.path, tt.principal))
		})
	}
}

func TestPolicyFirstMatchWins(t *testing.T) {
	pol := &Policy{Rules: []Rule{
		{Patterns: []string{"/open/*"}, Access: AccessPublic},
		{Patterns: []string{"/open/*"}, Access: AccessRoles, Roles: []domain.Role{domain.RoleAdmin}},
	}}

	require.Equal(t, 0, pol.Decision(http.MethodGet, "/open/door", nil))
	require.Equal(t, AccessAuthenticated, pol.Match(http.MethodGet, "/closed").Access)
}
