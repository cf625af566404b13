package domain

import "time"

// TokenTypeBearer is the only token type issued.
const TokenTypeBearer = "Bearer"

// TokenPair is what login and refresh hand back to the caller.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    time.Duration
	Username     string
	Roles        []Role
}

// RefreshToken is a stored refresh token record. Records are created and
// deleted, never updated.
type RefreshToken struct {
	TokenHash     string // base64url SHA-256 of the wire token
	OwnerUsername string
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

// Expired reports whether the record is no longer redeemable at now. A
// record expiring exactly at now is expired.
func (t RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
