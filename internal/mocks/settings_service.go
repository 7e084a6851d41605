package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/docpilot/portal/internal/model"
)

// SettingsService is a mock of handler.SettingsService.
type SettingsService struct {
	mock.Mock
}

func (m *SettingsService) Get(ctx context.Context, userID uuid.UUID) (model.AccountSettings, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.AccountSettings), args.Error(1)
}

func (m *SettingsService) Update(ctx context.Context, userID uuid.UUID, patch model.SettingsPatch) (model.AccountSettings, error) {
	args := m.Called(ctx, userID, patch)
	return args.Get(0).(model.AccountSettings), args.Error(1)
}

func (m *SettingsService) UploadAvatar(ctx context.Context, userID uuid.UUID, contentType string, size int64, r io.Reader) (model.AccountSettings, error) {
	args := m.Called(ctx, userID, contentType, size, r)
	return args.Get(0).(model.AccountSettings), args.Error(1)
}

func (m *SettingsService) Avatar(ctx context.Context, userID uuid.UUID) (io.ReadCloser, model.ObjectInfo, error) {
	args := m.Called(ctx, userID)
	var rc io.ReadCloser
	if v := args.Get(0); v != nil {
		rc = v.(io.ReadCloser)
	}
	return rc, args.Get(1).(model.ObjectInfo), args.Error(2)
}

func NewSettingsService(t interface {
	mock.TestingT
	Cleanup(func())
}) *SettingsService {
	m := &SettingsService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
