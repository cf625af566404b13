package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/pkg/httpx"
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

const (
	DefaultHeader = "Authorization"
	DefaultScheme = "Bearer"
)

// Authenticator resolves the caller from an access token. It never rejects
// a request on its own; a missing or bad token simply leaves the request
// anonymous and the policy decides what that means.
type Authenticator struct {
	Codec  *jwtx.Codec
	Header string
	Scheme string
}

// Middleware attaches the verified Principal to the request context.
func (a *Authenticator) Middleware() httpx.Middleware {
	header := a.Header
	if header == "" {
		header = DefaultHeader
	}
	prefix := a.Scheme
	if prefix == "" {
		prefix = DefaultScheme
	}
	prefix += " "

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(header)
			if raw == "" || !strings.HasPrefix(raw, prefix) {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(raw, prefix))
			claims, err := a.Codec.Verify(token)
			if err != nil {
				slogx.FromContext(r.Context()).Debug("access token rejected", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if claims.IsRefresh() || claims.Subject == "" {
				slogx.FromContext(r.Context()).Debug("access token rejected", "reason", "token_type")
				next.ServeHTTP(w, r)
				return
			}

			p := domain.NewPrincipal(claims.Subject, domain.ParseRoles(claims.RoleNames()))
			slogx.SetSubject(w, p.Username)

			ctx := WithPrincipal(r.Context(), p)
			ctx = slogx.With(ctx, "subject", p.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
