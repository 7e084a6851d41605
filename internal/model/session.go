package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RecoverySessionTTL caps how long an established recovery session is kept.
const RecoverySessionTTL = time.Hour

// RecoveryTicket identifies a started recovery session and how long it is
// kept.
type RecoveryTicket struct {
	SessionKey string
	Email      string
	TTL        time.Duration
}

// User is the account record returned by the hosted auth backend.
type User struct {
	ID               uuid.UUID      `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
}

// Session is an authenticated session issued by the hosted auth backend.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// UserAttributes are the user fields that can be changed by UpdateUser.
type UserAttributes struct {
	Password string
	Email    string
	Data     map[string]any
}

// AuthSession is a flow-scoped handle to the hosted auth backend. It holds
// at most one session at a time.
type AuthSession interface {
	SetSession(ctx context.Context, accessToken, refreshToken string) error
	GetSession(ctx context.Context) (*Session, error)
	UpdateUser(ctx context.Context, attrs UserAttributes) error
	SignOut(ctx context.Context) error
}

// AuthGateway opens session handles and performs stateless auth calls.
type AuthGateway interface {
	Open() AuthSession
	Restore(session Session) AuthSession
	SignInWithPassword(ctx context.Context, email, password string) (Session, error)
	SignUp(ctx context.Context, email, password string, data map[string]any) (User, error)
	Recover(ctx context.Context, email, redirectTo string) error
	Logout(ctx context.Context, accessToken string) error
}

// SessionStore keeps established recovery sessions between requests.
type SessionStore interface {
	Save(ctx context.Context, key string, session Session, ttl time.Duration) error
	Load(ctx context.Context, key string) (Session, error)
	Delete(ctx context.Context, key string) error
}
