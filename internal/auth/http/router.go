package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/service"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
	"github.com/aussiebroadwan/rollcall/pkg/httpx"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

// RateLimits holds the per-endpoint limiter profiles.
type RateLimits struct {
	Login    httpx.RateLimitConfig
	Register httpx.RateLimitConfig
	Refresh  httpx.RateLimitConfig
	Session  httpx.RateLimitConfig
	Health   httpx.RateLimitConfig
}

// DefaultRateLimits returns the built-in profiles, overridable through
// RATELIMIT_<NAME>_* environment variables.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Login:    httpx.ParseRateLimitFromEnv("LOGIN", httpx.StrictLimit),
		Register: httpx.ParseRateLimitFromEnv("REGISTER", httpx.StrictLimit),
		Refresh:  httpx.ParseRateLimitFromEnv("REFRESH", httpx.ModerateLimit),
		Session:  httpx.ParseRateLimitFromEnv("SESSION", httpx.ModerateLimit),
		Health:   httpx.ParseRateLimitFromEnv("HEALTH", httpx.LenientLimit),
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux     *http.ServeMux
	handler http.Handler

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	SessionService *service.SessionService
	Authenticator  *Authenticator
	Policy         *Policy
	RateLimits     RateLimits
	Dev            bool // expose internal error detail in 500 responses
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		Policy:       DefaultPolicy(),
		RateLimits:   DefaultRateLimits(),
	}
}

// ApplyRoutes registers the auth endpoints and freezes the middleware
// chain. Every request passes request logging, then authentication, then
// the access policy before reaching the mux.
func (r *Router) ApplyRoutes() {
	r.registerSession()
	r.registerSystem()

	r.handler = httpx.Chain(r.Mux,
		slogx.HTTPMiddleware(r.logger),
		r.Authenticator.Middleware(),
		r.Policy.Middleware(),
	)
}

// Handle mounts a downstream resource behind the auth middleware chain.
func (r *Router) Handle(pattern string, h http.Handler) {
	r.Mux.Handle(pattern, h)
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Rollcall Authentication API
//	@version		0.1.0
//	@description	Username/password login issuing HS256 access tokens and single-use rotating refresh tokens.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/rollcall
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func (r *Router) registerSession() {
	h := &SessionHandler{
		Service:     r.SessionService,
		errorWriter: errorWriter{dev: r.Dev},
	}

	// Credential guessing is limited by IP and by the targeted account.
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(r.RateLimits.Login, "usernameOrEmail"),
		),
	)
	r.Mux.Handle("POST /auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(r.RateLimits.Register),
		),
	)
	r.Mux.Handle("POST /auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(r.RateLimits.Refresh),
		),
	)
	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(r.RateLimits.Session),
		),
	)
	r.Mux.Handle("GET /auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			httpx.RateLimitByIP(r.RateLimits.Session),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /health",
		httpx.Chain(HealthHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(r.RateLimits.Health),
		),
	)
}
