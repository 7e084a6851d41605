package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/docpilot/portal/internal/model"
)

// TokenVerifier is a mock of model.TokenVerifier.
type TokenVerifier struct {
	mock.Mock
}

func (m *TokenVerifier) VerifyAccessToken(token string) (model.Identity, error) {
	args := m.Called(token)
	return args.Get(0).(model.Identity), args.Error(1)
}

func NewTokenVerifier(t interface {
	mock.TestingT
	Cleanup(func())
}) *TokenVerifier {
	m := &TokenVerifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
