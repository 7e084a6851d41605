package handler

import (
	"context"
	"net/http"

	"github.com/docpilot/portal/internal/api/http/apierror"
	apictx "github.com/docpilot/portal/internal/api/http/context"
	"github.com/docpilot/portal/internal/api/http/middleware"
	"github.com/docpilot/portal/internal/logger"
	"github.com/docpilot/portal/internal/model"
)

// AuthService defines the account flows exposed over HTTP.
type AuthService interface {
	SignIn(ctx context.Context, email, password string) (model.Session, error)
	SignUp(ctx context.Context, email, password, fullName string) (model.User, error)
	RequestReset(ctx context.Context, email string) error
	SignOut(ctx context.Context, accessToken string) error
}

// MsgResetSent is returned for every reset request so that responses do not
// reveal which emails have accounts.
const MsgResetSent = "If an account exists for this email, a password reset link is on its way."

// Auth handles the /auth endpoints that talk to the auth backend directly.
type Auth struct {
	authService AuthService
	logger      *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, logger *logger.Logger) *Auth {
	return &Auth{authService: authService, logger: logger}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type recoverRequest struct {
	Email string `json:"email"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// SignIn exchanges email and password for a session.
func (h *Auth) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeStrict(w, r, &req); err != nil {
		apierror.WriteError(w, r, err)
		return
	}

	session, err := h.authService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		apierror.WriteError(w, r, err)
		return
	}

	apierror.WriteJSON(w, http.StatusOK, session)
}

// SignUp registers a new account.
func (h *Auth) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeStrict(w, r, &req); err != nil {
		apierror.WriteError(w, r, err)
		return
	}

	user, err := h.authService.SignUp(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		apierror.WriteError(w, r, err)
		return
	}

	apictx.Logger(r.Context(), h.logger).Info("Auth handler: account registered",
		"user_id", user.ID)
	apierror.WriteJSON(w, http.StatusCreated, user)
}

// Recover sends a password reset link.
func (h *Auth) Recover(w http.ResponseWriter, r *http.Request) {
	var req recoverRequest
	if err := decodeStrict(w, r, &req); err != nil {
		apierror.WriteError(w, r, err)
		return
	}

	if err := h.authService.RequestReset(r.Context(), req.Email); err != nil {
		apierror.WriteError(w, r, err)
		return
	}

	apierror.WriteJSON(w, http.StatusAccepted, messageResponse{Message: MsgResetSent})
}

// SignOut revokes the caller's session.
func (h *Auth) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.SignOut(r.Context(), middleware.BearerToken(r)); err != nil {
		apierror.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
