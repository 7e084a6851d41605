package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/docpilot/portal/internal/model"
)

// AuthService is a mock of handler.AuthService.
type AuthService struct {
	mock.Mock
}

func (m *AuthService) SignIn(ctx context.Context, email, password string) (model.Session, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *AuthService) SignUp(ctx context.Context, email, password, fullName string) (model.User, error) {
	args := m.Called(ctx, email, password, fullName)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *AuthService) RequestReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *AuthService) SignOut(ctx context.Context, accessToken string) error {
	return m.Called(ctx, accessToken).Error(0)
}

func NewAuthService(t interface {
	mock.TestingT
	Cleanup(func())
}) *AuthService {
	m := &AuthService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
