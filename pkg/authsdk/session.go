package authsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"
)

// expiryBuffer refreshes a little before the server would reject the token.
const expiryBuffer = 30 * time.Second

// ErrNoRefreshToken is returned when the access token expired and the
// session has nothing to redeem.
var ErrNoRefreshToken = errors.New("authsdk: access token expired and no refresh token available")

// Session represents an authenticated session with automatic token refresh.
// Safe for concurrent use.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	username     string
	roles        []string
}

// newSession creates a new authenticated session from a token response.
func newSession(client *SDKClient, tokens *TokenResponse) *Session {
	s := &Session{client: client}
	s.store(tokens)
	return s
}

// NewSessionFromTokens wraps tokens obtained elsewhere. The session still
// refreshes once the access token expires.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string, expiresIn int64) *Session {
	return newSession(c, &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	})
}

// store must be called with mu held for writing (or before publication).
func (s *Session) store(tokens *TokenResponse) {
	s.accessToken = tokens.AccessToken
	s.refreshToken = tokens.RefreshToken
	s.expiresAt = time.Now().Add(time.Duration(tokens.ExpiresIn)*time.Second - expiryBuffer)
	if tokens.Username != "" {
		s.username = tokens.Username
	}
	if tokens.Roles != nil {
		s.roles = slices.Clone(tokens.Roles)
	}
}

// getValidToken returns a valid access token, automatically refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited. Redeeming the
	// same refresh token twice would fail since tokens are single use.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if s.refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	tokens, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	s.store(tokens)

	return s.accessToken, nil
}

// Do sends an authenticated JSON request and decodes the response into out
// when out is non-nil. It is the hook for calling protected APIs that sit
// behind the same authorization layer.
func (s *Session) Do(ctx context.Context, method, path string, body, out any, expectedStatus int) error {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}

	resp, err := s.client.doJSON(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	if out == nil {
		defer resp.Body.Close()
		if resp.StatusCode != expectedStatus {
			return decodeJSON(resp, &struct{}{}, expectedStatus)
		}
		return nil
	}
	return decodeJSON(resp, out, expectedStatus)
}

// Me returns the principal the server sees for this session.
func (s *Session) Me(ctx context.Context) (*MeResponse, error) {
	var out MeResponse
	if err := s.Do(ctx, http.MethodGet, "/auth/me", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the session's refresh token. The access token stays valid
// until it expires.
func (s *Session) Logout(ctx context.Context) error {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	refreshToken := s.refreshToken
	s.refreshToken = ""
	s.mu.Unlock()

	resp, err := s.client.doJSON(ctx, http.MethodPost, "/auth/logout", token, RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// Username returns the username reported at login.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Roles returns a copy of the roles reported at the last login or refresh.
func (s *Session) Roles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.roles)
}

// HasRole reports whether the session carries role.
func (s *Session) HasRole(role string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.roles, role)
}
