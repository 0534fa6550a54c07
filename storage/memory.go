package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

// MemoryStorage keeps objects in process memory. Used for tests and throwaway runs.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStorage creates an empty in-memory store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

// Upload stores an object in memory
func (s *MemoryStorage) Upload(ctx context.Context, kind ObjectKind, objectID uuid.UUID, filename string, data io.Reader) (string, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	storagePath := generateStoragePath(kind, objectID, filename)

	s.mu.Lock()
	s.objects[storagePath] = b
	s.mu.Unlock()
	return storagePath, nil
}

// Download returns a reader over a stored object
func (s *MemoryStorage) Download(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	s.mu.RLock()
	b, ok := s.objects[storagePath]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, storagePath)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// Delete removes an object; deleting a missing object is not an error
func (s *MemoryStorage) Delete(ctx context.Context, storagePath string) error {
	s.mu.Lock()
	delete(s.objects, storagePath)
	s.mu.Unlock()
	return nil
}
