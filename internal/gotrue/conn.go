package gotrue

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/docpilot/portal/internal/model"
)

var _ model.AuthSession = (*Conn)(nil)

// expiryMargin is how close to expiry an access token may get before it is
// refreshed instead of used.
const expiryMargin = 10 * time.Second

// errSessionMissing mirrors the error the backend SDKs raise when a user
// call is made without a session.
var errSessionMissing = &model.AuthError{Status: http.StatusUnauthorized, Message: "Auth session missing!"}

// Conn is one flow's view of the auth API: it holds at most one session and
// sends user-scoped calls with that session's access token.
type Conn struct {
	client *Client

	mu      sync.Mutex
	session *model.Session
}

// SetSession adopts the given tokens. An access token that is still valid is
// verified against the backend; an expired one is exchanged via the refresh
// token.
func (c *Conn) SetSession(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" {
		return &model.AuthError{Status: http.StatusBadRequest, Message: "access token is required"}
	}

	now := c.client.now()
	exp, hasExp := tokenExpiry(accessToken)

	var session model.Session
	if !hasExp || exp.Before(now.Add(expiryMargin)) {
		if refreshToken == "" {
			return &model.AuthError{Status: http.StatusUnauthorized, Message: "token is expired"}
		}
		refreshed, err := c.client.refresh(ctx, refreshToken)
		if err != nil {
			return fmt.Errorf("failed to refresh session: %w", err)
		}
		session = refreshed
	} else {
		user, err := c.client.getUser(ctx, accessToken)
		if err != nil {
			return fmt.Errorf("failed to verify session: %w", err)
		}
		session = model.Session{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    "bearer",
			ExpiresIn:    int(exp.Sub(now).Seconds()),
			ExpiresAt:    exp,
			User:         user,
		}
	}

	c.mu.Lock()
	c.session = &session
	c.mu.Unlock()
	return nil
}

// GetSession returns the current session, refreshing it first when it has
// expired. It returns nil when the handle holds no session.
func (c *Conn) GetSession(ctx context.Context) (*model.Session, error) {
	c.mu.Lock()
	current := c.session
	c.mu.Unlock()

	if current == nil {
		return nil, nil
	}

	if !current.ExpiresAt.IsZero() && current.ExpiresAt.Before(c.client.now().Add(expiryMargin)) && current.RefreshToken != "" {
		refreshed, err := c.client.refresh(ctx, current.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh session: %w", err)
		}
		c.mu.Lock()
		c.session = &refreshed
		c.mu.Unlock()
		current = &refreshed
	}

	out := *current
	return &out, nil
}

// UpdateUser changes attributes of the session's user.
func (c *Conn) UpdateUser(ctx context.Context, attrs model.UserAttributes) error {
	session, err := c.GetSession(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		return errSessionMissing
	}

	user, err := c.client.updateUser(ctx, session.AccessToken, attrs)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.session != nil {
		c.session.User = user
	}
	c.mu.Unlock()
	return nil
}

// SignOut revokes the session upstream and clears it locally. The local
// session is dropped even when the upstream call fails.
func (c *Conn) SignOut(ctx context.Context) error {
	c.mu.Lock()
	current := c.session
	c.session = nil
	c.mu.Unlock()

	if current == nil {
		return nil
	}
	return c.client.Logout(ctx, current.AccessToken)
}

func tokenExpiry(accessToken string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
