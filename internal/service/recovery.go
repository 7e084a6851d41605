package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docpilot/portal/internal/authmsg"
	"github.com/docpilot/portal/internal/logger"
	"github.com/docpilot/portal/internal/model"
	"github.com/docpilot/portal/internal/password"
	"github.com/docpilot/portal/internal/ratelimit"
	"github.com/docpilot/portal/internal/recovery"
)

const msgSessionGone = "Your reset session has expired. Please request a new password reset link."

// Observer receives the outcome of each recovery step.
type Observer interface {
	ObserveRecovery(step, outcome string)
}

type noopObserver struct{}

func (noopObserver) ObserveRecovery(string, string) {}

// Recovery drives the password-reset flow: it turns a reset link into a
// verified session and then updates the password under the attempt limit.
type Recovery struct {
	limiter  *ratelimit.Limiter
	gateway  model.AuthGateway
	sessions model.SessionStore
	observer Observer
	logger   *logger.Logger
}

// NewRecovery creates a Recovery. observer may be nil.
func NewRecovery(
	limiter *ratelimit.Limiter,
	gateway model.AuthGateway,
	sessions model.SessionStore,
	observer Observer,
	logger *logger.Logger,
) *Recovery {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Recovery{
		limiter:  limiter,
		gateway:  gateway,
		sessions: sessions,
		observer: observer,
		logger:   logger,
	}
}

// EstablishSession exchanges bundle for a session on handle and reads it
// back to confirm it exists.
func (r *Recovery) EstablishSession(ctx context.Context, handle model.AuthSession, bundle recovery.Bundle) (model.Session, error) {
	r.logger.Debug("Recovery service: establishing session",
		"type", string(bundle.Type()),
		"access_token", logger.RedactToken(bundle.AccessToken()))

	if err := handle.SetSession(ctx, bundle.AccessToken(), bundle.RefreshToken()); err != nil {
		r.logger.Warn("Recovery service: failed to set session",
			"error", err.Error())
		r.observer.ObserveRecovery("establish", model.KindSessionEstablishmentFailed.String())
		return model.Session{}, model.NewFlowError(model.KindSessionEstablishmentFailed, authmsg.SessionMessage(err), err)
	}

	session, err := handle.GetSession(ctx)
	if err != nil {
		r.logger.Warn("Recovery service: failed to read session back",
			"error", err.Error())
		r.observer.ObserveRecovery("establish", model.KindSessionUnverifiable.String())
		return model.Session{}, model.NewFlowError(model.KindSessionUnverifiable, authmsg.MsgLinkGeneric, err)
	}
	if session == nil {
		r.logger.Warn("Recovery service: session set but not readable")
		r.observer.ObserveRecovery("establish", model.KindSessionUnverifiable.String())
		return model.Session{}, model.NewFlowError(model.KindSessionUnverifiable, authmsg.MsgLinkGeneric, nil)
	}

	r.observer.ObserveRecovery("establish", "ok")
	return *session, nil
}

// Begin parses a reset link, establishes its session and stores it under a
// new session key. The ticket carries the key, the account email and the
// lifetime the session was stored with.
func (r *Recovery) Begin(ctx context.Context, rawURL string) (model.RecoveryTicket, error) {
	bundle, err := recovery.Parse(rawURL)
	if err != nil {
		r.logger.Info("Recovery service: rejected reset link",
			"error", err.Error())
		switch {
		case errors.Is(err, model.ErrMalformedTokens):
			r.observer.ObserveRecovery("begin", model.KindMalformedTokens.String())
			return model.RecoveryTicket{}, model.NewFlowError(model.KindMalformedTokens, authmsg.MsgLinkMalformed, err)
		case errors.Is(err, model.ErrInvalidTokenSchema):
			r.observer.ObserveRecovery("begin", model.KindInvalidTokenSchema.String())
			return model.RecoveryTicket{}, model.NewFlowError(model.KindInvalidTokenSchema, authmsg.MsgLinkInvalid, err)
		default:
			return model.RecoveryTicket{}, fmt.Errorf("failed to parse reset link: %w", err)
		}
	}

	session, err := r.EstablishSession(ctx, r.gateway.Open(), bundle)
	if err != nil {
		return model.RecoveryTicket{}, err
	}

	ttl := model.RecoverySessionTTL
	if in := time.Duration(session.ExpiresIn) * time.Second; in > 0 && in < ttl {
		ttl = in
	}

	key := uuid.NewString()
	if err := r.sessions.Save(ctx, key, session, ttl); err != nil {
		r.logger.Error("Recovery service: failed to store session",
			"error", err.Error())
		return model.RecoveryTicket{}, fmt.Errorf("failed to store recovery session: %w", err)
	}

	r.logger.Info("Recovery service: reset session started",
		"email", logger.RedactEmail(session.User.Email),
		"ttl", ttl.String())
	r.observer.ObserveRecovery("begin", "ok")

	return model.RecoveryTicket{SessionKey: key, Email: session.User.Email, TTL: ttl}, nil
}

// RemainingAttempts returns how many password attempts sessionKey has left.
func (r *Recovery) RemainingAttempts(ctx context.Context, sessionKey string) (int, error) {
	return r.limiter.RemainingAttempts(ctx, sessionKey)
}

// UpdatePassword sets a new password for the session stored under
// sessionKey. On success the session is signed out and forgotten.
func (r *Recovery) UpdatePassword(ctx context.Context, sessionKey string, form password.Form) error {
	if err := r.gate(ctx, sessionKey, form); err != nil {
		return err
	}

	session, err := r.sessions.Load(ctx, sessionKey)
	if errors.Is(err, model.ErrNotFound) {
		r.logger.Info("Recovery service: reset session not found")
		r.observer.ObserveRecovery("update", model.KindSessionUnverifiable.String())
		return model.NewFlowError(model.KindSessionUnverifiable, msgSessionGone, err)
	}
	if err != nil {
		r.logger.Error("Recovery service: failed to load reset session",
			"error", err.Error())
		return fmt.Errorf("failed to load recovery session: %w", err)
	}

	if err := r.submit(ctx, r.gateway.Restore(session), form); err != nil {
		return err
	}

	if err := r.sessions.Delete(ctx, sessionKey); err != nil {
		r.logger.Warn("Recovery service: failed to delete reset session",
			"error", err.Error())
	}

	r.logger.Info("Recovery service: password updated",
		"email", logger.RedactEmail(session.User.Email))
	return nil
}

// UpdatePasswordWithSession is UpdatePassword for a caller that already
// holds an established handle.
func (r *Recovery) UpdatePasswordWithSession(ctx context.Context, sessionKey string, handle model.AuthSession, form password.Form) error {
	if err := r.gate(ctx, sessionKey, form); err != nil {
		return err
	}
	if err := r.submit(ctx, handle, form); err != nil {
		return err
	}

	r.logger.Info("Recovery service: password updated")
	return nil
}

// gate applies the attempt limit and the password policy, in that order,
// and consumes one attempt when both pass.
func (r *Recovery) gate(ctx context.Context, sessionKey string, form password.Form) error {
	ok, err := r.limiter.CanAttempt(ctx, sessionKey)
	if err != nil {
		r.logger.Error("Recovery service: failed to check attempts",
			"error", err.Error())
		return fmt.Errorf("failed to check attempts: %w", err)
	}
	if !ok {
		left, err := r.limiter.RemainingAttempts(ctx, sessionKey)
		if err != nil {
			return fmt.Errorf("failed to count attempts: %w", err)
		}
		return r.rateLimited(left)
	}

	if violations := password.Validate(form); len(violations) > 0 {
		r.observer.ObserveRecovery("update", model.KindPasswordPolicyViolation.String())
		return model.NewFlowError(model.KindPasswordPolicyViolation, strings.Join(violations, "; "), nil)
	}

	consumed, left, err := r.limiter.TryConsume(ctx, sessionKey)
	if err != nil {
		r.logger.Error("Recovery service: failed to record attempt",
			"error", err.Error())
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	if !consumed {
		return r.rateLimited(left)
	}

	r.logger.Debug("Recovery service: attempt recorded",
		"remaining", left)
	return nil
}

func (r *Recovery) submit(ctx context.Context, handle model.AuthSession, form password.Form) error {
	if err := handle.UpdateUser(ctx, model.UserAttributes{Password: form.Password}); err != nil {
		r.logger.Warn("Recovery service: password update rejected",
			"error", err.Error())
		r.observer.ObserveRecovery("update", model.KindPasswordUpdateFailed.String())
		return model.NewFlowError(model.KindPasswordUpdateFailed, authmsg.PasswordMessage(err), err)
	}

	if err := handle.SignOut(ctx); err != nil {
		r.logger.Warn("Recovery service: sign out after reset failed",
			"error", err.Error())
	}

	r.observer.ObserveRecovery("update", "ok")
	return nil
}

func (r *Recovery) rateLimited(left int) error {
	r.logger.Info("Recovery service: attempt rejected by rate limit",
		"remaining", left)
	r.observer.ObserveRecovery("update", model.KindRateLimited.String())

	fe := model.NewFlowError(model.KindRateLimited, rateLimitMessage(left), nil)
	fe.Remaining = left
	return fe
}

func rateLimitMessage(left int) string {
	return fmt.Sprintf("Too many attempts. %d attempts remaining. Please try again in %d minutes.",
		left, int(ratelimit.Window.Minutes()))
}
