package authsdk_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// fakeServer mimics the rotation contract: each refresh token works once.
type fakeServer struct {
	mu       sync.Mutex
	valid    map[string]bool
	counter  int
	refreshN atomic.Int32
}

func (f *fakeServer) issue(w http.ResponseWriter, expiresIn int64) {
	f.counter++
	refresh := "rt-" + string(rune('a'+f.counter))
	f.valid[refresh] = true
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(authsdk.TokenResponse{
		AccessToken:  "at-" + string(rune('a'+f.counter)),
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
		Username:     "alice",
		Roles:        []string{"EMPLOYEE"},
	})
}

func (f *fakeServer) handler(expiresIn int64) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req authsdk.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret123" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":401,"error":"Unauthorized","message":"Invalid username/email or password","path":"/auth/login"}`))
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.issue(w, expiresIn)
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshN.Add(1)
		var req authsdk.RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.valid[req.RefreshToken] {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":400,"error":"Bad Request","message":"Invalid refresh token"}`))
			return
		}
		delete(f.valid, req.RefreshToken)
		f.issue(w, expiresIn)
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"username":"alice","roles":["EMPLOYEE"]}`))
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		var req authsdk.RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		delete(f.valid, req.RefreshToken)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unhealthy","checks":{"database":"down"}}`))
	})
	return mux
}

func newFake(t *testing.T, expiresIn int64) (*fakeServer, *authsdk.SDKClient) {
	t.Helper()
	f := &fakeServer{valid: map[string]bool{}}
	srv := httptest.NewServer(f.handler(expiresIn))
	t.Cleanup(srv.Close)
	return f, authsdk.NewSDKClient(srv.URL + "/")
}

func TestLoginAndMe(t *testing.T) {
	_, client := newFake(t, 900)
	ctx := context.Background()

	session, err := client.AuthenticateWithPassword(ctx, "alice", "secret123")
	require.NoError(t, err)
	require.Equal(t, "alice", session.Username())
	require.True(t, session.HasRole("EMPLOYEE"))
	require.False(t, session.HasRole("ADMIN"))

	me, err := session.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", me.Username)
}

func TestLoginBadCredentials(t *testing.T) {
	_, client := newFake(t, 900)

	_, err := client.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, authsdk.StatusCode(err))

	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "/auth/login", apiErr.Path)
}

func TestSessionRefreshesOnce(t *testing.T) {
	// expiresIn below the buffer means every call sees an expired token.
	f, client := newFake(t, 0)
	ctx := context.Background()

	session, err := client.AuthenticateWithPassword(ctx, "alice", "secret123")
	require.NoError(t, err)
	first := session.RefreshToken()

	_, err = session.Me(ctx)
	require.NoError(t, err)
	require.NotEqual(t, first, session.RefreshToken())
	require.EqualValues(t, 1, f.refreshN.Load())

	// The consumed token is rejected by the server.
	_, err = client.Refresh(ctx, first)
	require.Equal(t, http.StatusBadRequest, authsdk.StatusCode(err))
}

func TestSessionLogout(t *testing.T) {
	_, client := newFake(t, 900)
	ctx := context.Background()

	session, err := client.AuthenticateWithPassword(ctx, "alice", "secret123")
	require.NoError(t, err)
	token := session.RefreshToken()

	require.NoError(t, session.Logout(ctx))
	require.Empty(t, session.RefreshToken())

	_, err = client.Refresh(ctx, token)
	require.Equal(t, http.StatusBadRequest, authsdk.StatusCode(err))
}

func TestNoRefreshToken(t *testing.T) {
	_, client := newFake(t, 900)

	session := client.NewSessionFromTokens("at", "", 0)
	_, err := session.Me(context.Background())
	require.ErrorIs(t, err, authsdk.ErrNoRefreshToken)
}

func TestHealthUnavailable(t *testing.T) {
	_, client := newFake(t, 900)

	health, err := client.Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, "unhealthy", health.Status)
	require.Equal(t, "down", health.Checks["database"])
}
