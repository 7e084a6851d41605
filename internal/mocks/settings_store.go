package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/docpilot/portal/internal/model"
)

// SettingsStore is a mock of model.SettingsStore.
type SettingsStore struct {
	mock.Mock
}

func (m *SettingsStore) GetByUserID(ctx context.Context, userID uuid.UUID) (model.AccountSettings, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.AccountSettings), args.Error(1)
}

func (m *SettingsStore) Patch(ctx context.Context, userID uuid.UUID, patch model.SettingsPatch) (model.AccountSettings, error) {
	args := m.Called(ctx, userID, patch)
	return args.Get(0).(model.AccountSettings), args.Error(1)
}

func (m *SettingsStore) SetAvatarKey(ctx context.Context, userID uuid.UUID, key string) (model.AccountSettings, string, error) {
	args := m.Called(ctx, userID, key)
	return args.Get(0).(model.AccountSettings), args.String(1), args.Error(2)
}

func (m *SettingsStore) InsertIfMissing(ctx context.Context, settings model.AccountSettings) (model.AccountSettings, error) {
	args := m.Called(ctx, settings)
	return args.Get(0).(model.AccountSettings), args.Error(1)
}

func NewSettingsStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *SettingsStore {
	m := &SettingsStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
