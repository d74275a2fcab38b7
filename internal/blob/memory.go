package blob

import (
	"context"
	"sync"
)

// MemoryStore is an in-process [Store] for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	pointer := Address(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[pointer]; !ok {
		s.blobs[pointer] = append([]byte(nil), data...)
	}
	return pointer, nil
}

func (s *MemoryStore) Get(ctx context.Context, pointer string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := digest(pointer); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[pointer]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Len returns the number of distinct blobs held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
