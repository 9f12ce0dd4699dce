package storage

import (
	"bytes"
	"fmt"
	"sync"
)

// FakeStore is an in-memory Store for tests.
type FakeStore struct {
	mu sync.Mutex

	// Files maps catalog names to contents.
	Files map[string][]byte

	// Opened lists every name passed to Open, in order.
	Opened []string

	// OpenError, if set, will be returned by Open for existing files.
	OpenError error
}

// NewFakeStore creates a FakeStore holding files.
func NewFakeStore(files map[string][]byte) *FakeStore {
	if files == nil {
		files = make(map[string][]byte)
	}
	return &FakeStore{Files: files}
}

// Exists reports whether name is present.
func (s *FakeStore) Exists(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Files[name]
	return ok
}

// Open returns a File over a copy of the contents.
func (s *FakeStore) Open(name string) (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Opened = append(s.Opened, name)
	data, ok := s.Files[name]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", name, ErrNotFound)
	}
	if s.OpenError != nil {
		return nil, s.OpenError
	}
	buf := append([]byte(nil), data...)
	return NewFile(bytes.NewReader(buf), nil, int64(len(buf))), nil
}

// Remove deletes name, simulating a card edit between calls.
func (s *FakeStore) Remove(name string) {
	s.mu.Lock()
	delete(s.Files, name)
	s.mu.Unlock()
}
