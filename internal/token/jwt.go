// Package token verifies access tokens issued by the hosted auth backend.
package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/docpilot/portal/internal/model"
)

// Claims are the access-token claims the backend issues.
type Claims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"session_id,omitempty"`
}

var _ model.TokenVerifier = (*JWT)(nil)

// JWT verifies HS256 tokens signed with the project's JWT secret.
type JWT struct {
	secretKey string
	audience  string
}

// NewJWT creates a verifier. An empty audience disables the aud check.
func NewJWT(secretKey, audience string) *JWT {
	return &JWT{secretKey: secretKey, audience: audience}
}

// VerifyAccessToken validates tokenString and returns the caller identity.
func (j *JWT) VerifyAccessToken(tokenString string) (model.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if j.audience != "" {
		opts = append(opts, jwt.WithAudience(j.audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(j.secretKey), nil
	}, opts...)
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to parse access token: %w", err)
	}
	if !token.Valid {
		return model.Identity{}, errors.New("access token is invalid")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.Identity{}, fmt.Errorf("access token subject is not a user id: %w", err)
	}

	return model.Identity{UserID: userID, Email: claims.Email, Role: claims.Role}, nil
}
