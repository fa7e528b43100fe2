// Package storage abstracts the external blob store holding file bytes.
// Keys are opaque strings chosen by the caller; physical storage is fully
// external to the drive core.
package storage

import (
	"context"
	"io"
)

type BlobStore interface {
	// Put streams the payload under key and returns the number of bytes
	// written.
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	// Open returns a reader over the stored payload.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Exists reports whether bytes are present under key.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes the payload. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
