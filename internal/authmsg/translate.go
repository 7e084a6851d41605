// Package authmsg turns auth backend errors into user-facing messages.
//
// Structured fields (HTTP status, error code) are consulted first. Matching
// on the lower-cased message text is the fallback, since the backend does not
// guarantee stable error codes.
package authmsg

import (
	"errors"
	"net/http"
	"strings"

	"github.com/docpilot/portal/internal/model"
)

const (
	MsgMinLength        = "Password must be at least 8 characters long."
	MsgSessionExpired   = "Your session has expired. Please request a new password reset link."
	MsgInvalidLink      = "This password reset link is invalid or has expired. Please request a new one."
	MsgExpired          = "This password reset link has expired. Please request a new one."
	MsgPolicyViolation  = "The new password does not meet the security requirements."
	MsgUpstreamLimited  = "Too many requests. Please wait a moment and try again."
	MsgSamePassword     = "The new password must be different from your current password."
	MsgUpdateFailedPref = "Failed to update password: "
	MsgUpdateFailed     = "Failed to update password. Please try again."

	MsgLinkInvalid   = "This password reset link is invalid. Please request a new one."
	MsgLinkExpired   = "This password reset link has expired. Please request a new one."
	MsgLinkMalformed = "This password reset link is malformed. Please request a new one."
	MsgLinkRevoked   = "This password reset link is no longer valid. Please request a new one."
	MsgLinkGeneric   = "We could not verify this password reset link. Please request a new one."

	MsgInvalidCredentials = "Invalid email or password."
	MsgEmailNotConfirmed  = "Please confirm your email address before signing in."
	MsgSignInFailed       = "Sign in failed. Please try again."

	MsgAlreadyRegistered = "An account with this email already exists."
	MsgInvalidEmail      = "Please enter a valid email address."
	MsgSignUpFailed      = "Sign up failed. Please try again."
)

// PasswordMessage translates a failed password update.
func PasswordMessage(err error) string {
	if err == nil {
		return MsgUpdateFailed
	}
	status, code, msg := fields(err)

	if strings.Contains(msg, "password should be at least") {
		return MsgMinLength
	}

	switch code {
	case "weak_password":
		return MsgPolicyViolation
	case "same_password":
		return MsgSamePassword
	case "session_not_found", "session_expired":
		return MsgSessionExpired
	case "otp_expired":
		return MsgExpired
	case "over_request_rate_limit", "over_email_send_rate_limit":
		return MsgUpstreamLimited
	}

	switch status {
	case http.StatusUnauthorized:
		return MsgSessionExpired
	case http.StatusUnprocessableEntity:
		return MsgPolicyViolation
	case http.StatusTooManyRequests:
		return MsgUpstreamLimited
	}

	switch {
	case strings.Contains(msg, "auth session missing"), strings.Contains(msg, "session"):
		return MsgSessionExpired
	case strings.Contains(msg, "invalid recovery token"), strings.Contains(msg, "token"):
		return MsgInvalidLink
	case strings.Contains(msg, "expired"):
		return MsgExpired
	}

	raw := rawMessage(err)
	if raw == "" {
		return MsgUpdateFailed
	}
	return MsgUpdateFailedPref + raw
}

// SessionMessage translates a failed session establishment.
func SessionMessage(err error) string {
	if err == nil {
		return MsgLinkGeneric
	}
	status, _, msg := fields(err)

	switch {
	case strings.Contains(msg, "invalid"):
		return MsgLinkInvalid
	case strings.Contains(msg, "expired"):
		return MsgLinkExpired
	case strings.Contains(msg, "malformed"):
		return MsgLinkMalformed
	case strings.Contains(msg, "unauthorized"), status == http.StatusUnauthorized:
		return MsgLinkRevoked
	}
	return MsgLinkGeneric
}

// SignInMessage translates a failed sign-in.
func SignInMessage(err error) string {
	if err == nil {
		return MsgSignInFailed
	}
	status, code, msg := fields(err)

	switch {
	case code == "invalid_credentials", strings.Contains(msg, "invalid login credentials"):
		return MsgInvalidCredentials
	case code == "email_not_confirmed", strings.Contains(msg, "email not confirmed"):
		return MsgEmailNotConfirmed
	case status == http.StatusTooManyRequests:
		return MsgUpstreamLimited
	}
	return MsgSignInFailed
}

// SignUpMessage translates a failed registration.
func SignUpMessage(err error) string {
	if err == nil {
		return MsgSignUpFailed
	}
	status, code, msg := fields(err)

	switch {
	case code == "user_already_exists", code == "email_exists", strings.Contains(msg, "already registered"):
		return MsgAlreadyRegistered
	case code == "email_address_invalid", strings.Contains(msg, "unable to validate email"):
		return MsgInvalidEmail
	case strings.Contains(msg, "password should be at least"):
		return MsgMinLength
	case code == "weak_password", status == http.StatusUnprocessableEntity:
		return MsgPolicyViolation
	case status == http.StatusTooManyRequests:
		return MsgUpstreamLimited
	}
	return MsgSignUpFailed
}

func fields(err error) (status int, code, lowerMsg string) {
	var authErr *model.AuthError
	if errors.As(err, &authErr) {
		return authErr.Status, authErr.Code, strings.ToLower(authErr.Message)
	}
	return 0, "", strings.ToLower(err.Error())
}

func rawMessage(err error) string {
	var authErr *model.AuthError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	return err.Error()
}
