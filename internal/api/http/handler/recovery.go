package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/docpilot/portal/internal/api/http/apierror"
	apictx "github.com/docpilot/portal/internal/api/http/context"
	"github.com/docpilot/portal/internal/authmsg"
	"github.com/docpilot/portal/internal/logger"
	"github.com/docpilot/portal/internal/model"
	"github.com/docpilot/portal/internal/password"
)

// RecoveryCookie holds the recovery session key between requests.
const RecoveryCookie = "recovery_session"

const recoveryCookiePath = "/api/auth/recovery"

// RecoveryService defines the password-reset flow.
type RecoveryService interface {
	Begin(ctx context.Context, rawURL string) (model.RecoveryTicket, error)
	RemainingAttempts(ctx context.Context, sessionKey string) (int, error)
	UpdatePassword(ctx context.Context, sessionKey string, form password.Form) error
}

// Recovery handles the password-reset endpoints.
type Recovery struct {
	recoveryService RecoveryService
	secureCookies   bool
	logger          *logger.Logger
}

// NewRecovery creates a new Recovery handler. secureCookies marks the
// session cookie Secure.
func NewRecovery(recoveryService RecoveryService, secureCookies bool, logger *logger.Logger) *Recovery {
	return &Recovery{
		recoveryService: recoveryService,
		secureCookies:   secureCookies,
		logger:          logger,
	}
}

type beginRequest struct {
	URL string `json:"url"`
}

type beginResponse struct {
	Email string `json:"email"`
}

type attemptsResponse struct {
	RemainingAttempts int `json:"remaining_attempts"`
}

var errNoRecoverySession = model.NewFlowError(model.KindSessionUnverifiable, authmsg.MsgSessionExpired, nil)

// Begin validates the reset link the browser landed on and starts a
// recovery session.
func (h *Recovery) Begin(w http.ResponseWriter, r *http.Request) {
	var req beginRequest
	if err := decodeStrict(w, r, &req); err != nil {
		apierror.WriteError(w, r, err)
		return
	}

	ticket, err := h.recoveryService.Begin(r.Context(), req.URL)
	if err != nil {
		apictx.Logger(r.Context(), h.logger).Info("Recovery handler: begin failed",
			"error", err.Error())
		apierror.WriteError(w, r, err)
		return
	}

	http.SetCookie(w, h.cookie(ticket.SessionKey, int(ticket.TTL.Seconds())))
	apierror.WriteJSON(w, http.StatusOK, beginResponse{Email: ticket.Email})
}

// Attempts reports how many password attempts the session has left.
func (h *Recovery) Attempts(w http.ResponseWriter, r *http.Request) {
	key, ok := sessionKey(r)
	if !ok {
		apierror.WriteError(w, r, errNoRecoverySession)
		return
	}

	left, err := h.recoveryService.RemainingAttempts(r.Context(), key)
	if err != nil {
		apierror.WriteError(w, r, err)
		return
	}

	apierror.WriteJSON(w, http.StatusOK, attemptsResponse{RemainingAttempts: left})
}

// UpdatePassword sets the new password and ends the recovery session.
func (h *Recovery) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	key, ok := sessionKey(r)
	if !ok {
		apierror.WriteError(w, r, errNoRecoverySession)
		return
	}

	var form password.Form
	if err := decodeStrict(w, r, &form); err != nil {
		apierror.WriteError(w, r, err)
		return
	}

	if err := h.recoveryService.UpdatePassword(r.Context(), key, form); err != nil {
		if model.IsFlowKind(err, model.KindSessionUnverifiable) {
			http.SetCookie(w, h.cookie("", -1))
		}
		var fe *model.FlowError
		if !errors.As(err, &fe) {
			apictx.Logger(r.Context(), h.logger).Error("Recovery handler: password update failed",
				"error", err.Error())
		}
		apierror.WriteError(w, r, err)
		return
	}

	http.SetCookie(w, h.cookie("", -1))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Recovery) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     RecoveryCookie,
		Value:    value,
		Path:     recoveryCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}

func sessionKey(r *http.Request) (string, bool) {
	c, err := r.Cookie(RecoveryCookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
