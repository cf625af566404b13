package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

func newTestApp(t *testing.T, mutate func(*Config)) *Application {
	t.Helper()
	cfg := validConfig()
	cfg.SeedUsers = true
	cfg.SeedPassword = "password123"
	if mutate != nil {
		mutate(&cfg)
	}

	app, err := NewWithLogger(cfg, slogx.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func login(t *testing.T, h http.Handler, username string) string {
	t.Helper()
	body, _ := json.Marshal(authsdk.LoginRequest{UsernameOrEmail: username, Password: "password123"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tok authsdk.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	return tok.AccessToken
}

func TestApplicationWiring(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"memory": nil,
		"sqlite": func(c *Config) {
			c.Storage = StorageSQLite
			c.DatabaseFile = filepath.Join(t.TempDir(), "auth.db")
		},
	} {
		t.Run(name, func(t *testing.T) {
			app := newTestApp(t, mutate)
			h := app.Handler()

			adminToken := login(t, h, "admin")
			employeeToken := login(t, h, "employee3@example.com")

			// No employee resource is mounted here, so an allowed request
			// falls through to the mux.
			req := httptest.NewRequest(http.MethodPost, "/employees", nil)
			req.Header.Set("Authorization", "Bearer "+adminToken)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, http.StatusNotFound, rec.Code)

			req = httptest.NewRequest(http.MethodPost, "/employees", nil)
			req.Header.Set("Authorization", "Bearer "+employeeToken)
			rec = httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = ""

	_, err := NewWithLogger(cfg, slogx.Discard())
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
}

func TestRunContextStops(t *testing.T) {
	app := newTestApp(t, func(c *Config) {
		c.Port = 0
		c.MetricsExporter = "prometheus"
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("application did not stop")
	}
}
