package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrMalformedTokens    = errors.New("reset link does not carry recognizable tokens")
	ErrInvalidTokenSchema = errors.New("reset tokens failed validation")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrRateLimited        = errors.New("rate limited")
)

// UserError pairs a sentinel with a message that is safe to show to users.
type UserError struct {
	Kind    error
	Message string
	Cause   error
}

// NewUserError creates a UserError.
func NewUserError(kind error, message string, cause error) *UserError {
	return &UserError{Kind: kind, Message: message, Cause: cause}
}

func (e *UserError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *UserError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// AuthError is an error reported by the hosted auth backend.
type AuthError struct {
	Status  int
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("auth error (status %d): %s", e.Status, e.Message)
	}
	return "auth error: " + e.Message
}

// FlowErrorKind classifies failures of the password-reset flow.
type FlowErrorKind int

const (
	KindRateLimited FlowErrorKind = iota + 1
	KindMalformedTokens
	KindInvalidTokenSchema
	KindSessionEstablishmentFailed
	KindSessionUnverifiable
	KindPasswordPolicyViolation
	KindPasswordUpdateFailed
)

func (k FlowErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindMalformedTokens:
		return "malformed_tokens"
	case KindInvalidTokenSchema:
		return "invalid_token_schema"
	case KindSessionEstablishmentFailed:
		return "session_establishment_failed"
	case KindSessionUnverifiable:
		return "session_unverifiable"
	case KindPasswordPolicyViolation:
		return "password_policy_violation"
	case KindPasswordUpdateFailed:
		return "password_update_failed"
	default:
		return "unknown"
	}
}

// FlowError carries a user-facing message and the underlying cause.
type FlowError struct {
	Kind    FlowErrorKind
	Message string
	// Remaining is the number of attempts left, set for KindRateLimited.
	Remaining int
	Cause     error
}

func (e *FlowError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FlowError) Unwrap() error {
	return e.Cause
}

// NewFlowError creates a FlowError of the given kind.
func NewFlowError(kind FlowErrorKind, message string, cause error) *FlowError {
	return &FlowError{Kind: kind, Message: message, Cause: cause}
}

// IsFlowKind reports whether err is a FlowError of the given kind.
func IsFlowKind(err error, kind FlowErrorKind) bool {
	var fe *FlowError
	return errors.As(err, &fe) && fe.Kind == kind
}
