package service

import "errors"

var (
	ErrBadCredentials      = errors.New("bad_credentials")
	ErrDuplicateUsername   = errors.New("duplicate_username")
	ErrDuplicateEmail      = errors.New("duplicate_email")
	ErrInvalidRefreshToken = errors.New("invalid_refresh_token")
	ErrExpiredRefreshToken = errors.New("expired_refresh_token")
)
