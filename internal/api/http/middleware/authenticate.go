package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/docpilot/portal/internal/api/http/apierror"
	apictx "github.com/docpilot/portal/internal/api/http/context"
	"github.com/docpilot/portal/internal/logger"
	"github.com/docpilot/portal/internal/model"
)

var (
	errMissingToken = model.NewUserError(model.ErrUnauthenticated, "missing authorization token", nil)
	errInvalidToken = model.NewUserError(model.ErrUnauthenticated, "invalid authorization token", nil)
)

// Authenticate validates bearer tokens and injects the caller identity into
// the request context.
type Authenticate struct {
	verifier       model.TokenVerifier
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(verifier model.TokenVerifier, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{verifier: verifier, contextManager: contextManager, logger: logger}
}

// Handle rejects requests without a valid access token.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			apierror.WriteError(w, r, errMissingToken)
			return
		}

		identity, err := m.verifier.VerifyAccessToken(token)
		if err != nil || identity.UserID == uuid.Nil {
			if err != nil {
				apictx.Logger(r.Context(), m.logger).Debug("Authenticate middleware: token rejected",
					"token", logger.RedactToken(token),
					"error", err.Error())
			}
			apierror.WriteError(w, r, errInvalidToken)
			return
		}

		ctx := m.contextManager.SetIdentityToContext(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken returns the token of an "Authorization: Bearer" header, or an
// empty string.
func BearerToken(r *http.Request) string {
	const prefix = "bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
