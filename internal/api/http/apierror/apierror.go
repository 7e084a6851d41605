// Package apierror renders errors as the portal's JSON error envelope.
package apierror

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	apictx "github.com/docpilot/portal/internal/api/http/context"
	"github.com/docpilot/portal/internal/model"
)

// StatusClientClosedRequest is reported when the client went away.
const StatusClientClosedRequest = 499

// APIError is the body of every error response.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

var flowStatus = map[model.FlowErrorKind]int{
	model.KindRateLimited:                http.StatusTooManyRequests,
	model.KindMalformedTokens:            http.StatusBadRequest,
	model.KindInvalidTokenSchema:         http.StatusBadRequest,
	model.KindSessionEstablishmentFailed: http.StatusUnauthorized,
	model.KindSessionUnverifiable:        http.StatusUnauthorized,
	model.KindPasswordPolicyViolation:    http.StatusUnprocessableEntity,
	model.KindPasswordUpdateFailed:       http.StatusBadRequest,
}

// ToHTTP maps err to a status code and error envelope. Only flow and user
// errors carry their own message; anything else is reported generically.
func ToHTTP(err error) (int, ErrorResponse) {
	var fe *model.FlowError
	if errors.As(err, &fe) {
		status, ok := flowStatus[fe.Kind]
		if !ok {
			status = http.StatusBadRequest
		}
		return status, envelope(fe.Kind.String(), fe.Message)
	}

	status, code, msg := fromSentinel(err)

	var ue *model.UserError
	if errors.As(err, &ue) && status != http.StatusInternalServerError {
		msg = ue.Message
	}

	return status, envelope(code, msg)
}

func fromSentinel(err error) (int, string, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "internal", "internal error"
	case errors.Is(err, model.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited", "too many requests"
	case errors.Is(err, model.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case errors.Is(err, model.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}

func envelope(code, msg string) ErrorResponse {
	return ErrorResponse{Error: APIError{Code: code, Message: msg}}
}

// WriteError writes the error envelope for err, tagged with the request ID.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)
	resp.Error.RequestID = apictx.RequestID(r.Context())
	WriteJSON(w, status, resp)
}

// WriteJSON writes value as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
