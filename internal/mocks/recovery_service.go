package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/docpilot/portal/internal/model"
	"github.com/docpilot/portal/internal/password"
)

// RecoveryService is a mock of handler.RecoveryService.
type RecoveryService struct {
	mock.Mock
}

func (m *RecoveryService) Begin(ctx context.Context, rawURL string) (model.RecoveryTicket, error) {
	args := m.Called(ctx, rawURL)
	return args.Get(0).(model.RecoveryTicket), args.Error(1)
}

func (m *RecoveryService) RemainingAttempts(ctx context.Context, sessionKey string) (int, error) {
	args := m.Called(ctx, sessionKey)
	return args.Int(0), args.Error(1)
}

func (m *RecoveryService) UpdatePassword(ctx context.Context, sessionKey string, form password.Form) error {
	return m.Called(ctx, sessionKey, form).Error(0)
}

func NewRecoveryService(t interface {
	mock.TestingT
	Cleanup(func())
}) *RecoveryService {
	m := &RecoveryService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
