package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by BlobStore.Get for an absent key.
var ErrNotFound = errors.New("key not found")

// BlobStore is a key-value store of opaque blobs. Every Put overwrites the
// whole value.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
