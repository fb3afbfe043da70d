// Package blob stores document binaries. Keys are namespaced by owner scope
// and id, so no two documents ever share a key.
package blob

import (
	"context"
	"io"
	"time"
)

// Store is the boundary to the object store.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
