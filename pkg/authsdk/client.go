package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the rollcall authentication service.
// It covers the public endpoints and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login exchanges credentials for a token pair.
func (c *SDKClient) Login(ctx context.Context, usernameOrEmail, password string) (*TokenResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", LoginRequest{
		UsernameOrEmail: usernameOrEmail,
		Password:        password,
	})
	if err != nil {
		return nil, err
	}

	var out TokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates a new EMPLOYEE account. It does not log in.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/auth/register", "", req)
	if err != nil {
		return nil, err
	}

	var out RegisterResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh redeems a refresh token. The token is consumed whether or not
// the caller keeps the returned pair.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/auth/refresh", "", RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	var out TokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health fetches the service health report. A 503 still decodes into the
// report so callers can see which check failed.
func (c *SDKClient) Health(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/health", "", nil)
	if err != nil {
		return nil, err
	}

	expected := http.StatusOK
	if resp.StatusCode == http.StatusServiceUnavailable {
		expected = http.StatusServiceUnavailable
	}

	var out HealthResponse
	if err := decodeJSON(resp, &out, expected); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthenticateWithPassword logs in and wraps the tokens in a Session.
func (c *SDKClient) AuthenticateWithPassword(ctx context.Context, usernameOrEmail, password string) (*Session, error) {
	tokens, err := c.Login(ctx, usernameOrEmail, password)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokens), nil
}

// AuthenticateWithRefreshToken creates a session from a stored refresh token.
func (c *SDKClient) AuthenticateWithRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	tokens, err := c.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokens), nil
}
