package http

import (
	"errors"
	"net/http"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/aussiebroadwan/rollcall/internal/auth/service"
	"github.com/aussiebroadwan/rollcall/pkg/httpx"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

var (
	problemUnauthorized   = httpx.Problem{Status: http.StatusUnauthorized, Message: "Authentication required"}
	problemForbidden      = httpx.Problem{Status: http.StatusForbidden, Message: "Insufficient permissions"}
	problemBadCredentials = httpx.Problem{Status: http.StatusUnauthorized, Message: "Invalid username or password"}
	problemInvalidRefresh = httpx.Problem{Status: http.StatusBadRequest, Message: "Invalid refresh token"}
	problemExpiredRefresh = httpx.Problem{Status: http.StatusBadRequest, Message: "Refresh token expired"}
	problemDuplicate      = httpx.Problem{Status: http.StatusConflict}
	problemInvalidBody    = httpx.Problem{Status: http.StatusBadRequest, Message: "Invalid request body"}
	problemMediaType      = httpx.Problem{Status: http.StatusUnsupportedMediaType, Message: "Content-Type must be application/json"}
	problemInternal       = httpx.Problem{Status: http.StatusInternalServerError, Message: "An unexpected error occurred"}
)

// errorWriter renders service errors. Dev mode exposes the detail of
// unexpected failures.
type errorWriter struct {
	dev bool
}

func (ew errorWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrBadCredentials):
		problemBadCredentials.Write(w, r)
	case errors.Is(err, service.ErrInvalidRefreshToken):
		problemInvalidRefresh.Write(w, r)
	case errors.Is(err, service.ErrExpiredRefreshToken):
		problemExpiredRefresh.Write(w, r)
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		p := problemInternal
		if ew.dev {
			p = p.WithMessage(err.Error())
		}
		p.Write(w, r)
	}
}

// decode reads the body into dst and validates it. It writes the error
// response itself and reports whether the handler should continue.
func (ew errorWriter) decode(w http.ResponseWriter, r *http.Request, dst validation.Validatable) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		if errors.Is(err, httpx.ErrUnsupportedMediaType) {
			problemMediaType.Write(w, r)
			return false
		}
		problemInvalidBody.Write(w, r)
		return false
	}

	if err := dst.Validate(); err != nil {
		var verrs validation.Errors
		if !errors.As(err, &verrs) {
			ew.write(w, r, err)
			return false
		}
		problemInvalidBody.WriteFields(w, r, fieldErrors(verrs))
		return false
	}
	return true
}

func fieldErrors(verrs validation.Errors) []httpx.FieldError {
	out := make([]httpx.FieldError, 0, len(verrs))
	for field, err := range verrs {
		out = append(out, httpx.FieldError{Field: field, Message: err.Error()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}
