package domain

import (
	"strings"
	"time"
)

// User is a stored credential. Every user holds at least one role.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // bcrypt encoded
	Roles        []Role
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal returns the identity the user authenticates as.
func (u User) Principal() Principal {
	return NewPrincipal(u.Username, u.Roles)
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
