// Package memory is an in-process stand-in for cloud snapshot storage,
// used by tests and by the memory backend.
package memory

import (
	"context"
	"sync"
)

type Store struct {
	mu       sync.Mutex
	data     []byte
	revision string
	uploads  int
}

func New() *Store {
	return &Store{}
}

func (s *Store) Upload(_ context.Context, data []byte, revision string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	s.revision = revision
	s.uploads++
	return "mem:snapshot", nil
}

func (s *Store) Download(_ context.Context) ([]byte, string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, "", false, nil
	}
	return append([]byte(nil), s.data...), s.revision, true, nil
}

// Uploads reports how many times Upload ran, for test assertions.
func (s *Store) Uploads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads
}
