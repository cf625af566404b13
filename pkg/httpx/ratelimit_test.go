package httpx_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/rollcall/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestIPKeyExtractor(t *testing.T) {
	t.Run("extracts from RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"

		ip := httpx.IPKeyExtractor(req)
		require.Equal(t, "192.168.1.1", ip)
	})

	t.Run("prefers X-Forwarded-For", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Forwarded-For", "203.0.113.1, 192.168.1.1")

		ip := httpx.IPKeyExtractor(req)
		require.Equal(t, "203.0.113.1", ip)
	})

	t.Run("uses X-Real-IP if X-Forwarded-For absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Real-IP", "203.0.113.2")

		ip := httpx.IPKeyExtractor(req)
		require.Equal(t, "203.0.113.2", ip)
	})
}

func TestJSONFieldKeyExtractor(t *testing.T) {
	t.Run("extracts field and restores body", func(t *testing.T) {
		body := `{"usernameOrEmail":"Alice","password":"secret"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

		extractor := httpx.JSONFieldKeyExtractor("usernameOrEmail")
		require.Equal(t, "alice", extractor(req))

		rest, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.Equal(t, body, string(rest))
	})

	t.Run("returns empty for missing field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"other":"x"}`))
		require.Equal(t, "", httpx.JSONFieldKeyExtractor("usernameOrEmail")(req))
	})

	t.Run("returns empty for invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`))
		require.Equal(t, "", httpx.JSONFieldKeyExtractor("usernameOrEmail")(req))
	})
}

func TestCompositeKeyExtractor(t *testing.T) {
	t.Run("combines multiple extractors", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"alice"}`))
		req.RemoteAddr = "192.168.1.1:12345"

		extractor := httpx.CompositeKeyExtractor(":",
			httpx.IPKeyExtractor,
			httpx.JSONFieldKeyExtractor("username"),
		)

		key := extractor(req)
		require.Equal(t, "192.168.1.1:alice", key)
	})

	t.Run("skips empty values", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil) // no body
		req.RemoteAddr = "192.168.1.1:12345"

		extractor := httpx.CompositeKeyExtractor(":",
			httpx.IPKeyExtractor,
			httpx.JSONFieldKeyExtractor("username"),
		)

		key := extractor(req)
		require.Equal(t, "192.168.1.1", key)
	})
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func loginRequest(addr, identifier string) *http.Request {
	body := `{"usernameOrEmail":"` + identifier + `","password":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.RemoteAddr = addr
	return req
}

func TestRateLimitLoginBuckets(t *testing.T) {
	h := httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "usernameOrEmail")(okHandler)

	for i := range httpx.StrictLimit.Burst {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, loginRequest("10.0.0.1:1000", "alice"))
		require.Equal(t, http.StatusOK, rec.Code, "attempt %d", i+1)
	}

	// Case variants of the identifier share the exhausted bucket.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, loginRequest("10.0.0.1:2000", "ALICE"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	var problem httpx.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, http.StatusTooManyRequests, problem.Status)
	require.Equal(t, "/auth/login", problem.Path)

	tests := []struct {
		name       string
		addr       string
		identifier string
	}{
		{"other account same address", "10.0.0.1:1000", "bob"},
		{"same account other address", "10.0.0.2:1000", "alice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, loginRequest(tt.addr, tt.identifier))
			require.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestRateLimitRefreshByIP(t *testing.T) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	h := httpx.RateLimitByIP(cfg)(okHandler)

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{}`))
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, send("10.0.0.1:1"))
	require.Equal(t, http.StatusOK, send("10.0.0.1:2"))
	require.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:3"))
	require.Equal(t, http.StatusOK, send("10.0.0.9:1"))
}

func TestRateLimitAllowsUnkeyedRequest(t *testing.T) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
	h := httpx.RateLimitMiddleware(cfg, func(*http.Request) string { return "" })(okHandler)

	for range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitProfilesOrdered(t *testing.T) {
	require.Less(t, httpx.StrictLimit.RequestsPerWindow, httpx.ModerateLimit.RequestsPerWindow)
	require.Less(t, httpx.ModerateLimit.RequestsPerWindow, httpx.LenientLimit.RequestsPerWindow)
}

func TestParseRateLimitFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected httpx.RateLimitConfig
	}{
		{
			name:     "defaults",
			expected: httpx.StrictLimit,
		},
		{
			name: "overrides",
			env: map[string]string{
				"RATELIMIT_LOGIN_REQUESTS":   "50",
				"RATELIMIT_LOGIN_WINDOW_SEC": "30",
				"RATELIMIT_LOGIN_BURST":      "7",
			},
			expected: httpx.RateLimitConfig{RequestsPerWindow: 50, Window: 30 * time.Second, Burst: 7},
		},
		{
			name: "invalid and zero values ignored",
			env: map[string]string{
				"RATELIMIT_LOGIN_REQUESTS":   "lots",
				"RATELIMIT_LOGIN_WINDOW_SEC": "0",
				"RATELIMIT_LOGIN_BURST":      "-1",
			},
			expected: httpx.StrictLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			require.Equal(t, tt.expected, httpx.ParseRateLimitFromEnv("LOGIN", httpx.StrictLimit))
		})
	}
}
