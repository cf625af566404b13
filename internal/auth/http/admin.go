package http

import (
	"net/http"

	_ "github.com/aussiebroadwan/rollcall/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewAdminHandler serves operational endpoints on the admin listener.
// They sit outside the access policy, so the listener must not be exposed
// publicly.
func NewAdminHandler(metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	mux.Handle("/swagger/", httpSwagger.Handler())
	return mux
}
