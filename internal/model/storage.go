package model

import (
	"context"
	"io"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key         string
	ContentType string
	Size        int64
}

// ObjectStorage stores account assets such as avatars.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
