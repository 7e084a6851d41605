package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/docpilot/portal/internal/model"
)

// AuthGateway is a mock of model.AuthGateway.
type AuthGateway struct {
	mock.Mock
}

func (m *AuthGateway) Open() model.AuthSession {
	args := m.Called()
	return args.Get(0).(model.AuthSession)
}

func (m *AuthGateway) Restore(session model.Session) model.AuthSession {
	args := m.Called(session)
	return args.Get(0).(model.AuthSession)
}

func (m *AuthGateway) SignInWithPassword(ctx context.Context, email, password string) (model.Session, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *AuthGateway) SignUp(ctx context.Context, email, password string, data map[string]any) (model.User, error) {
	args := m.Called(ctx, email, password, data)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *AuthGateway) Recover(ctx context.Context, email, redirectTo string) error {
	args := m.Called(ctx, email, redirectTo)
	return args.Error(0)
}

func (m *AuthGateway) Logout(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

// NewAuthGateway creates an AuthGateway mock that asserts its expectations
// when the test ends.
func NewAuthGateway(t interface {
	mock.TestingT
	Cleanup(func())
}) *AuthGateway {
	m := &AuthGateway{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
