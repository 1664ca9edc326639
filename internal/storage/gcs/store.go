// Package gcs provides the Google Cloud Storage Artifact Store.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"

	store "course-localization-service/internal/storage"
)

// Store reads and writes objects in a single bucket.
type Store struct {
	client *storage.Client
	bucket string
}

// New creates a GCS store.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, bucket string) (*Store, error) {
	if bucket == "" {
		return nil, errors.New("gcs: bucket name is required")
	}
	c, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}
	return &Store{client: c, bucket: bucket}, nil
}

func (s *Store) object(path string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(path)
}

// classify maps a client error for path onto the store's errors.
func classify(op, path string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%s: %w", path, store.ErrNotFound)
	}
	return fmt.Errorf("gcs: %s %s: %w", op, path, err)
}

// Put implements storage.Store.
func (s *Store) Put(ctx context.Context, path string, data []byte, contentType string) error {
	w := s.object(path).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs: write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs: close %s: %w", path, err)
	}
	return nil
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, path string) ([]byte, error) {
	r, err := s.object(path).NewReader(ctx)
	if err != nil {
		return nil, classify("open", path, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Exists implements storage.Store.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.object(path).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, classify("attrs", path, err)
	}
	return true, nil
}

// Download implements storage.Store.
func (s *Store) Download(ctx context.Context, path, localPath string) error {
	r, err := s.object(path).NewReader(ctx)
	if err != nil {
		return classify("open", path, err)
	}
	defer r.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("gcs: download %s: %w", path, err)
	}
	return f.Close()
}

// Upload implements storage.Store.
func (s *Store) Upload(ctx context.Context, localPath, path, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := s.object(path).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs: upload %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs: close %s: %w", path, err)
	}
	return nil
}

// URI implements storage.Store.
func (s *Store) URI(path string) string {
	return "gs://" + s.bucket + "/" + path
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
