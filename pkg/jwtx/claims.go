package jwtx

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token TTL constants. Services override them through config.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token type markers carried in the "type" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims are the signed token claims. Roles travel as a single
// comma-joined string ("ADMIN,EMPLOYEE").
type Claims struct {
	jwt.RegisteredClaims

	Roles string `json:"roles,omitempty"`
	Type  string `json:"type"`
}

// IsRefresh reports whether the claims belong to a refresh marker. Those
// are never valid for resource access.
func (c Claims) IsRefresh() bool { return c.Type == TypeRefresh }

// RoleNames splits the roles claim, dropping blanks.
func (c Claims) RoleNames() []string {
	if c.Roles == "" {
		return nil
	}
	var out []string
	for r := range strings.SplitSeq(c.Roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func newClaims(typ, subject, issuer string, roles []string, now time.Time, ttl time.Duration) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Roles: strings.Join(roles, ","),
		Type:  typ,
	}
}
