// Package memory provides an in-process Artifact Store for tests and local
// development without cloud credentials.
package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"course-localization-service/internal/storage"
)

// Object is a stored blob with its content type.
type Object struct {
	Data        []byte
	ContentType string
}

// Store keeps objects in a map guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	objects map[string]Object
	writes  int
	gets    int
}

// New creates an empty store.
func New() *Store {
	return &Store{objects: make(map[string]Object)}
}

// Put implements storage.Store.
func (s *Store) Put(ctx context.Context, path string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
	s.writes++
	return nil
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	obj, ok := s.objects[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, storage.ErrNotFound)
	}
	return append([]byte(nil), obj.Data...), nil
}

// Exists implements storage.Store.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[path]
	return ok, nil
}

// Download implements storage.Store.
func (s *Store) Download(ctx context.Context, path, localPath string) error {
	data, err := s.Get(ctx, path)
	if err != nil {
		return err
	}
	return os.WriteFile(localPath, data, 0o644)
}

// Upload implements storage.Store.
func (s *Store) Upload(ctx context.Context, localPath, path, contentType string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	return s.Put(ctx, path, data, contentType)
}

// URI implements storage.Store.
func (s *Store) URI(path string) string {
	return "mem://" + path
}

// Object returns the stored object at path.
func (s *Store) Object(path string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	return obj, ok
}

// Paths returns every stored path, sorted.
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.objects))
	for p := range s.objects {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Writes returns the number of Put calls, including uploads.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Gets returns the number of Get calls, including downloads.
func (s *Store) Gets() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gets
}
