package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/docpilot/portal/internal/model"
)

// AuthSession is a mock of model.AuthSession.
type AuthSession struct {
	mock.Mock
}

func (m *AuthSession) SetSession(ctx context.Context, accessToken, refreshToken string) error {
	args := m.Called(ctx, accessToken, refreshToken)
	return args.Error(0)
}

func (m *AuthSession) GetSession(ctx context.Context) (*model.Session, error) {
	args := m.Called(ctx)
	var s *model.Session
	if v := args.Get(0); v != nil {
		s = v.(*model.Session)
	}
	return s, args.Error(1)
}

func (m *AuthSession) UpdateUser(ctx context.Context, attrs model.UserAttributes) error {
	args := m.Called(ctx, attrs)
	return args.Error(0)
}

func (m *AuthSession) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func NewAuthSession(t interface {
	mock.TestingT
	Cleanup(func())
}) *AuthSession {
	m := &AuthSession{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
