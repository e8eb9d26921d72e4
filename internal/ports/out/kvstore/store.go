package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound indicates the key is absent. Absence is a valid "empty" state for callers.
var ErrNotFound = errors.New("key not found")

// Store is durable key-scoped storage of opaque values (JSON blobs in practice).
//
// Implementations must be safe for concurrent use. Set overwrites; Delete of an
// absent key is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
