// Package objectstore abstracts where photo and document bytes live. Keys
// are opaque paths; Put refuses to overwrite so callers can detect path
// collisions and pick a new key.
package objectstore

import (
	"context"
	"io"
)

// Store writes and removes objects. Put returns CodeConflict when the key is
// already taken; callers own retrying with a different key.
type Store interface {
	Put(ctx context.Context, key string, contentType string, body io.Reader) error
	Delete(ctx context.Context, key string) error
}
