package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errMissingSubject = errors.New("missing subject")

// Codec signs and verifies HS256 tokens for a single issuer.
type Codec struct {
	key    HMACKey
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// Option customises a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec returns a codec bound to key and issuer.
func NewCodec(key HMACKey, issuer string, opts ...Option) *Codec {
	c := &Codec{
		key:    key,
		issuer: issuer,
		now:    time.Now,
		// Claims are checked by hand afterwards so that a bad signature is
		// always reported before an expired one.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issuer returns the iss value stamped on every token.
func (c *Codec) Issuer() string { return c.issuer }

// IssueAccess signs an access token for username carrying roles.
func (c *Codec) IssueAccess(username string, roles []string, now time.Time, ttl time.Duration) (string, error) {
	return c.sign(newClaims(TypeAccess, username, c.issuer, roles, now, ttl))
}

// IssueRefreshMarker signs a structured refresh token. The session flow
// uses opaque refresh tokens instead; this exists for callers that want a
// self-describing one.
func (c *Codec) IssueRefreshMarker(username string, now time.Time, ttl time.Duration) (string, error) {
	return c.sign(newClaims(TypeRefresh, username, c.issuer, nil, now, ttl))
}

func (c *Codec) sign(claims Claims) (string, error) {
	secret, err := c.key.bytes()
	if err != nil {
		return "", err
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return tok, nil
}

// Verify checks the signature, then expiry, then the claim structure.
// Every failure is an *InvalidTokenError.
func (c *Codec) Verify(token string) (Claims, error) {
	var claims Claims
	_, err := c.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.key.bytes()
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, invalid(ReasonSignature, err)
		default:
			return Claims{}, invalid(ReasonMalformed, err)
		}
	}

	if claims.ExpiresAt == nil {
		return Claims{}, invalid(ReasonClaims, jwt.ErrTokenRequiredClaimMissing)
	}
	if claims.ExpiresAt.Time.Before(c.now()) {
		return Claims{}, invalid(ReasonExpired, jwt.ErrTokenExpired)
	}

	switch {
	case claims.Type != TypeAccess && claims.Type != TypeRefresh:
		return Claims{}, invalid(ReasonClaims, fmt.Errorf("unknown token type %q", claims.Type))
	case claims.Subject == "":
		return Claims{}, invalid(ReasonClaims, errMissingSubject)
	case c.issuer != "" && claims.Issuer != c.issuer:
		return Claims{}, invalid(ReasonClaims, jwt.ErrTokenInvalidIssuer)
	}

	return claims, nil
}
