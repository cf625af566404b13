package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/service"
	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
	"github.com/aussiebroadwan/rollcall/pkg/httpx"
)

// SessionHandler serves the credential and token endpoints.
type SessionHandler struct {
	Service *service.SessionService
	errorWriter
}

// HandleLogin exchanges credentials for a token pair.
//
//	@Summary		Log in
//	@Description	Authenticates by username or email and returns an access token and a single-use refresh token.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.APIError	"Invalid request body"
//	@Failure		401		{object}	authsdk.APIError	"Invalid username or password"
//	@Failure		429		{object}	authsdk.APIError	"Too many requests"
//	@Router			/auth/login [post].
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	pair, err := h.Service.Login(r.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		h.write(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// HandleRegister creates an EMPLOYEE account.
//
//	@Summary		Register
//	@Description	Creates a new account with the EMPLOYEE role. Does not log in.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"New account"
//	@Success		201		{object}	authsdk.RegisterResponse
//	@Failure		400		{object}	authsdk.APIError	"Invalid request body"
//	@Failure		409		{object}	authsdk.APIError	"Username or email already in use"
//	@Failure		429		{object}	authsdk.APIError	"Too many requests"
//	@Router			/auth/register [post].
func (h *SessionHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.Service.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	switch {
	case errors.Is(err, service.ErrDuplicateUsername):
		problemDuplicate.WithMessage("Username already taken: "+req.Username).Write(w, r)
		return
	case errors.Is(err, service.ErrDuplicateEmail):
		problemDuplicate.WithMessage("Email already registered: "+req.Email).Write(w, r)
		return
	case err != nil:
		h.write(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.RegisterResponse{
		Message:  "Registration successful",
		Username: u.Username,
	})
}

// HandleRefresh rotates a refresh token.
//
//	@Summary		Refresh tokens
//	@Description	Redeems a refresh token for a new pair. Each refresh token can be redeemed once.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.APIError	"Invalid or expired refresh token"
//	@Failure		429		{object}	authsdk.APIError	"Too many requests"
//	@Router			/auth/refresh [post].
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	pair, err := h.Service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.write(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// HandleLogout revokes one of the caller's refresh tokens.
//
//	@Summary		Log out
//	@Description	Revokes the given refresh token if it belongs to the caller. Idempotent.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.RefreshRequest	true	"Refresh token"
//	@Success		204
//	@Failure		400	{object}	authsdk.APIError	"Invalid request body"
//	@Failure		401	{object}	authsdk.APIError	"Authentication required"
//	@Router			/auth/logout [post].
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		problemUnauthorized.Write(w, r)
		return
	}

	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.Service.Logout(r.Context(), p, req.RefreshToken); err != nil {
		h.write(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe echoes the authenticated principal.
//
//	@Summary		Current principal
//	@Description	Returns the username and roles carried by the access token.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MeResponse
//	@Failure		401	{object}	authsdk.APIError	"Authentication required"
//	@Router			/auth/me [get].
func (h *SessionHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		problemUnauthorized.Write(w, r)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{
		Username: p.Username,
		Roles:    domain.RoleNames(p.Roles),
	})
}

func tokenResponse(pair *domain.TokenPair) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
		Username:     pair.Username,
		Roles:        domain.RoleNames(pair.Roles),
	}
}
