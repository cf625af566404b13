package app

import (
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
)

// InitSigningKey builds the HS256 key from the configured secret. The key
// is fixed for the life of the process; there is no rotation, so changing
// the secret invalidates every outstanding access token.
func InitSigningKey(cfg Config) (jwtx.HMACKey, error) {
	key, err := jwtx.NewHMACKey([]byte(cfg.JWTSecret))
	if err != nil {
		return jwtx.HMACKey{}, &ConfigError{Field: "AUTH_JWT_SECRET", Reason: "invalid signing secret", Err: err}
	}
	return key, nil
}
