package jwtx

import "fmt"

// Reason classifies why a token was rejected.
type Reason string

const (
	ReasonMalformed Reason = "malformed"
	ReasonSignature Reason = "signature"
	ReasonExpired   Reason = "expired"
	ReasonClaims    Reason = "claims"
)

// InvalidTokenError is the only error Verify returns. Callers branch on
// Reason; the wrapped cause is for logs.
type InvalidTokenError struct {
	Reason Reason
	Err    error
}

func (e *InvalidTokenError) Error() string {
	if e.Err == nil {
		return "jwtx: invalid token: " + string(e.Reason)
	}
	return fmt.Sprintf("jwtx: invalid token: %s: %v", e.Reason, e.Err)
}

func (e *InvalidTokenError) Unwrap() error { return e.Err }

// Is matches any *InvalidTokenError with the same Reason, so
// errors.Is(err, jwtx.ErrExpired) works.
func (e *InvalidTokenError) Is(target error) bool {
	t, ok := target.(*InvalidTokenError)
	return ok && t.Err == nil && t.Reason == e.Reason
}

// Sentinels for errors.Is checks.
var (
	ErrMalformed = &InvalidTokenError{Reason: ReasonMalformed}
	ErrSignature = &InvalidTokenError{Reason: ReasonSignature}
	ErrExpired   = &InvalidTokenError{Reason: ReasonExpired}
	ErrClaims    = &InvalidTokenError{Reason: ReasonClaims}
)

func invalid(reason Reason, err error) *InvalidTokenError {
	return &InvalidTokenError{Reason: reason, Err: err}
}
