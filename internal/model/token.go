package model

// TokenVerifier validates access tokens issued by the hosted auth backend.
type TokenVerifier interface {
	VerifyAccessToken(token string) (Identity, error)
}
