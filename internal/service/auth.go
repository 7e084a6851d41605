package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/docpilot/portal/internal/authmsg"
	"github.com/docpilot/portal/internal/logger"
	"github.com/docpilot/portal/internal/model"
	"github.com/docpilot/portal/internal/password"
)

// ResetPath is the site page reset links redirect to.
const ResetPath = "/reset-password"

// Auth runs the account flows that go straight to the auth backend.
type Auth struct {
	gateway       model.AuthGateway
	settingsStore model.SettingsStore
	siteURL       string
	validate      *validator.Validate
	logger        *logger.Logger
}

func NewAuth(
	gateway model.AuthGateway,
	settingsStore model.SettingsStore,
	siteURL string,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		gateway:       gateway,
		settingsStore: settingsStore,
		siteURL:       strings.TrimRight(siteURL, "/"),
		validate:      newValidator(),
		logger:        logger,
	}
}

func (a *Auth) SignIn(ctx context.Context, email, pw string) (model.Session, error) {
	a.logger.Debug("Auth service: signing in",
		"email", logger.RedactEmail(email))

	if err := a.checkEmail(email); err != nil {
		return model.Session{}, err
	}
	if pw == "" {
		return model.Session{}, model.NewUserError(model.ErrInvalidArgument, "password is required", nil)
	}

	session, err := a.gateway.SignInWithPassword(ctx, email, pw)
	if err != nil {
		a.logger.Info("Auth service: sign in rejected",
			"email", logger.RedactEmail(email),
			"error", err.Error())
		return model.Session{}, a.upstreamError(err, model.ErrUnauthenticated, authmsg.SignInMessage(err))
	}

	a.logger.Info("Auth service: signed in",
		"user_id", session.User.ID)
	return session, nil
}

func (a *Auth) SignUp(ctx context.Context, email, pw, fullName string) (model.User, error) {
	a.logger.Debug("Auth service: signing up",
		"email", logger.RedactEmail(email))

	if err := a.checkEmail(email); err != nil {
		return model.User{}, err
	}
	fullName = strings.TrimSpace(fullName)
	if err := a.validate.Var(fullName, "max=100"); err != nil {
		return model.User{}, model.NewUserError(model.ErrInvalidArgument, "full_name must be at most 100 characters", err)
	}
	if violations := password.Check(pw); len(violations) > 0 {
		return model.User{}, model.NewFlowError(model.KindPasswordPolicyViolation, strings.Join(violations, "; "), nil)
	}

	var data map[string]any
	if fullName != "" {
		data = map[string]any{"full_name": fullName}
	}

	user, err := a.gateway.SignUp(ctx, email, pw, data)
	if err != nil {
		a.logger.Info("Auth service: sign up rejected",
			"email", logger.RedactEmail(email),
			"error", err.Error())
		return model.User{}, a.upstreamError(err, model.ErrInvalidArgument, authmsg.SignUpMessage(err))
	}

	if user.ID != uuid.Nil {
		defaults := model.DefaultAccountSettings(user.ID)
		defaults.FullName = fullName
		if _, err := a.settingsStore.InsertIfMissing(ctx, defaults); err != nil {
			a.logger.Warn("Auth service: failed to create account settings",
				"user_id", user.ID,
				"error", err.Error())
		}
	}

	a.logger.Info("Auth service: user signed up",
		"user_id", user.ID)
	return user, nil
}

// RequestReset sends a reset link. Unknown emails are reported as success.
func (a *Auth) RequestReset(ctx context.Context, email string) error {
	if err := a.checkEmail(email); err != nil {
		return err
	}

	err := a.gateway.Recover(ctx, email, a.siteURL+ResetPath)
	if err == nil {
		a.logger.Info("Auth service: reset link requested",
			"email", logger.RedactEmail(email))
		return nil
	}

	var authErr *model.AuthError
	if errors.As(err, &authErr) {
		switch {
		case authErr.Status == http.StatusTooManyRequests:
			return model.NewUserError(model.ErrRateLimited, authmsg.MsgUpstreamLimited, err)
		case authErr.Status == http.StatusNotFound, authErr.Code == "user_not_found":
			a.logger.Info("Auth service: reset requested for unknown email",
				"email", logger.RedactEmail(email))
			return nil
		}
	}

	a.logger.Error("Auth service: failed to request reset link",
		"email", logger.RedactEmail(email),
		"error", err.Error())
	return fmt.Errorf("failed to request reset link: %w", err)
}

func (a *Auth) SignOut(ctx context.Context, accessToken string) error {
	if err := a.gateway.Logout(ctx, accessToken); err != nil {
		a.logger.Error("Auth service: failed to sign out",
			"error", err.Error())
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

func (a *Auth) checkEmail(email string) error {
	if err := a.validate.Var(email, "required,email"); err != nil {
		return model.NewUserError(model.ErrInvalidArgument, authmsg.MsgInvalidEmail, err)
	}
	return nil
}

// upstreamError classifies an auth backend failure. Client errors become a
// UserError of kind with message; anything else is wrapped as internal.
func (a *Auth) upstreamError(err error, kind error, message string) error {
	var authErr *model.AuthError
	if !errors.As(err, &authErr) {
		return fmt.Errorf("auth backend call failed: %w", err)
	}

	switch {
	case authErr.Status == http.StatusTooManyRequests:
		return model.NewUserError(model.ErrRateLimited, authmsg.MsgUpstreamLimited, err)
	case authErr.Status >= http.StatusBadRequest && authErr.Status < http.StatusInternalServerError:
		return model.NewUserError(kind, message, err)
	default:
		return fmt.Errorf("auth backend call failed: %w", err)
	}
}
