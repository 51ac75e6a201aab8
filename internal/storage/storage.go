package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Container    string
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

type PutOptions struct {
	ContentType string
}

// ObjectStore is blob storage addressed by container and key. Ingestion
// requests name the container per call, so the store does not pin one.
type ObjectStore interface {
	Put(ctx context.Context, container, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, container, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, container, key string) (ObjectInfo, error)
	Delete(ctx context.Context, container, key string) error
	EnsureContainer(ctx context.Context, container string) error
}
