package jwtx_test

import (
	"testing"

	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestRoleNames(t *testing.T) {
	tests := []struct {
		name  string
		roles string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "ADMIN", []string{"ADMIN"}},
		{"multiple", "ADMIN,EMPLOYEE", []string{"ADMIN", "EMPLOYEE"}},
		{"blanks dropped", "ADMIN, ,EMPLOYEE,", []string{"ADMIN", "EMPLOYEE"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := jwtx.Claims{Roles: tt.roles}
			require.Equal(t, tt.want, c.RoleNames())
		})
	}
}

func TestIsRefresh(t *testing.T) {
	require.True(t, jwtx.Claims{Type: jwtx.TypeRefresh}.IsRefresh())
	require.False(t, jwtx.Claims{Type: jwtx.TypeAccess}.IsRefresh())
}
