package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/docpilot/portal/internal/model"
)

// ObjectStorage is a mock of model.ObjectStorage.
type ObjectStorage struct {
	mock.Mock
}

func (m *ObjectStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, key, reader, size, contentType)
	return args.Error(0)
}

func (m *ObjectStorage) Download(ctx context.Context, key string) (io.ReadCloser, model.ObjectInfo, error) {
	args := m.Called(ctx, key)
	var rc io.ReadCloser
	if v := args.Get(0); v != nil {
		rc = v.(io.ReadCloser)
	}
	return rc, args.Get(1).(model.ObjectInfo), args.Error(2)
}

func (m *ObjectStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *ObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func NewObjectStorage(t interface {
	mock.TestingT
	Cleanup(func())
}) *ObjectStorage {
	m := &ObjectStorage{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
