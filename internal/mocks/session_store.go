package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/docpilot/portal/internal/model"
)

// SessionStore is a mock of model.SessionStore.
type SessionStore struct {
	mock.Mock
}

func (m *SessionStore) Save(ctx context.Context, key string, session model.Session, ttl time.Duration) error {
	args := m.Called(ctx, key, session, ttl)
	return args.Error(0)
}

func (m *SessionStore) Load(ctx context.Context, key string) (model.Session, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *SessionStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func NewSessionStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *SessionStore {
	m := &SessionStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
