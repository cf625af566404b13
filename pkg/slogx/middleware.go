package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/rollcall/pkg/idx"
)

// RequestIDHeader carries the correlation id in and out of the service.
const RequestIDHeader = "X-Request-ID"

// MaxRequestIDLen bounds a caller supplied request id.
const MaxRequestIDLen = 64

// HTTPMiddleware logs requests and attaches a contextual logger into request context.
func HTTPMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			reqID := r.Header.Get(RequestIDHeader)
			if !validRequestID(reqID) {
				reqID = idx.New().String()
			}
			rw.Header().Set(RequestIDHeader, reqID)

			logger := base.With(
				"req_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			r = r.WithContext(WithContext(r.Context(), logger))
			next.ServeHTTP(rw, r)

			// The principal is only known after authentication ran further down
			// the chain, so it is read back from the wrapped writer.
			attrs := []any{
				"status", rw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"user_agent", r.UserAgent(),
			}
			if rw.subject != "" {
				attrs = append(attrs, "subject", rw.subject)
			}
			logger.Info("http_request", attrs...)
		})
	}
}

// SetSubject records the authenticated subject on the access log line for
// the current request. It is a no-op when w was not produced by HTTPMiddleware.
func SetSubject(w http.ResponseWriter, subject string) {
	if rw, ok := w.(*responseWriter); ok {
		rw.subject = subject
	}
}

// validRequestID accepts short ids made of letters, digits, '-', '_' and '.'.
func validRequestID(id string) bool {
	if id == "" || len(id) > MaxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

type responseWriter struct {
	http.ResponseWriter

	status  int
	subject string
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }
