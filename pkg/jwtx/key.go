package jwtx

import (
	"errors"
	"fmt"
)

// MinKeyBytes is the smallest HMAC secret accepted for HS256.
const MinKeyBytes = 32

var ErrKeyTooShort = fmt.Errorf("jwtx: signing secret must be at least %d bytes", MinKeyBytes)

var errEmptyKey = errors.New("jwtx: empty signing key")

// HMACKey holds the symmetric signing secret. It is built once at startup
// and only read afterwards.
type HMACKey struct {
	secret []byte
}

// NewHMACKey copies secret into a signing key, rejecting anything shorter
// than MinKeyBytes.
func NewHMACKey(secret []byte) (HMACKey, error) {
	if len(secret) < MinKeyBytes {
		return HMACKey{}, ErrKeyTooShort
	}
	return HMACKey{secret: append([]byte(nil), secret...)}, nil
}

func (k HMACKey) bytes() ([]byte, error) {
	if len(k.secret) == 0 {
		return nil, errEmptyKey
	}
	return k.secret, nil
}
