package model

import (
	"context"

	"github.com/google/uuid"
)

// Identity is the authenticated caller resolved from an access token.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

// ContextManager stores and retrieves the caller identity in request context.
type ContextManager interface {
	SetIdentityToContext(ctx context.Context, identity Identity) context.Context
	GetIdentityFromContext(ctx context.Context) (Identity, bool)
}
