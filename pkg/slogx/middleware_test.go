package slogx_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/rollcall/pkg/idx"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var fromCtx *slog.Logger
	h := slogx.HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = slogx.FromContext(r.Context())
		slogx.SetSubject(w, "alice")
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("generates request id and logs status", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusTeapot, rec.Code)
		require.NotEmpty(t, rec.Header().Get(slogx.RequestIDHeader))
		require.NotNil(t, fromCtx)
		require.NotSame(t, slog.Default(), fromCtx)

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		require.Equal(t, "http_request", line["msg"])
		require.Equal(t, float64(http.StatusTeapot), line["status"])
		require.Equal(t, "alice", line["subject"])
		require.Equal(t, rec.Header().Get(slogx.RequestIDHeader), line["req_id"])
	})

	t.Run("propagates caller request id", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(slogx.RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, "abc-123", rec.Header().Get(slogx.RequestIDHeader))
	})

	t.Run("replaces unsafe request id", func(t *testing.T) {
		for _, id := range []string{
			strings.Repeat("a", slogx.MaxRequestIDLen+1),
			"abc 123",
			"abc\x00def",
			"<script>",
		} {
			buf.Reset()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(slogx.RequestIDHeader, id)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(slogx.RequestIDHeader)
			require.NotEqual(t, id, got)
			_, err := idx.Parse(got)
			require.NoError(t, err, "generated id should be a ULID")

			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			require.Equal(t, got, line["req_id"])
		}
	})

	t.Run("accepts id at length limit", func(t *testing.T) {
		id := strings.Repeat("z", slogx.MaxRequestIDLen)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(slogx.RequestIDHeader, id)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, id, rec.Header().Get(slogx.RequestIDHeader))
	})
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, slogx.ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, slogx.ParseLevel("warning"))
	require.Equal(t, slog.LevelError, slogx.ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, slogx.ParseLevel("nonsense"))
}
