// Package storage provides blob storage for uploaded chart files, with
// a local-disk backend for development and an S3 backend for deployment.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrBlobNotFound is returned when a requested blob does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// Store is a key-addressed blob store.
type Store interface {
	// Put writes the blob under key, overwriting any existing blob.
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	// Get returns the blob's content. Caller must Close it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error
	// Exists reports whether the blob is present.
	Exists(ctx context.Context, key string) (bool, error)
}
