// Package storage defines the Artifact Store used by the pipeline: an object
// store keyed by the deterministic paths in package artifact.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// Store is the external object storage holding videos and derived artifacts.
// Writes overwrite existing objects.
type Store interface {
	// Put writes data to path.
	Put(ctx context.Context, path string, data []byte, contentType string) error

	// Get reads the object at path.
	Get(ctx context.Context, path string) ([]byte, error)

	// Exists reports whether an object is present at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Download copies the object at path to a local file.
	Download(ctx context.Context, path, localPath string) error

	// Upload copies a local file to path.
	Upload(ctx context.Context, localPath, path, contentType string) error

	// URI returns the provider-specific address of path (e.g. gs://bucket/path).
	URI(path string) string
}
