// Package fs provides an Artifact Store backed by a local directory, used for
// single-host development with a real ffmpeg.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"course-localization-service/internal/storage"
)

// Store maps object paths onto files below Root.
type Store struct {
	Root string
}

// New creates a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Store{Root: dir}, nil
}

func (s *Store) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if clean == "/" {
		return "", fmt.Errorf("invalid object path %q", path)
	}
	return filepath.Join(s.Root, strings.TrimPrefix(clean, "/")), nil
}

// Put implements storage.Store.
func (s *Store) Put(ctx context.Context, path string, data []byte, contentType string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, storage.ErrNotFound)
	}
	return data, err
}

// Exists implements storage.Store.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	full, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Download implements storage.Store.
func (s *Store) Download(ctx context.Context, path, localPath string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	in, err := os.Open(full)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, storage.ErrNotFound)
	}
	if err != nil {
		return err
	}
	defer in.Close()
	return copyTo(localPath, in)
}

// Upload implements storage.Store.
func (s *Store) Upload(ctx context.Context, localPath, path, contentType string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	in, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer in.Close()
	return copyTo(full, in)
}

// URI implements storage.Store.
func (s *Store) URI(path string) string {
	full, err := s.resolve(path)
	if err != nil {
		return ""
	}
	return "file://" + full
}

func copyTo(dst string, r io.Reader) error {
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return err
	}
	return out.Close()
}
