package storage

import (
	"context"
	"io"
	"time"
)

// Package storage persists import run snapshots in an S3-compatible
// object store. Implementations must avoid using local disk and rely on
// streaming I/O only.

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key  string
	Size int64
	ETag string
}

// ObjectStore is the minimal object-store surface the snapshot archive
// needs.
type ObjectStore interface {
	// Put uploads an object under the given key. Size should be the
	// exact number of bytes if known; -1 lets the backend chunk.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// PresignGet returns a time-limited URL that can be used to
	// download the object without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
