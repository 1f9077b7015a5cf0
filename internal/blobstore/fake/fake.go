// Package fake provides an in-memory blobstore.Store for tests in other
// packages, grounded on the teacher's hand-rolled in-memory fakes
// (jobs.MemoryStore, artifacts.MemoryRepository).
package fake

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/fieldnote/transcript-router/internal/blobstore"
)

// Store is a mutex-guarded in-memory blobstore.Store.
type Store struct {
	mu      sync.Mutex
	objects map[string][]byte

	// FailAppendTimes, if > 0, makes the next N AppendLine calls on any
	// key fail with blobstore.ErrNotFound (standing in for any store
	// error), to exercise processor failure handling without a real store.
	FailAppendTimes int
}

// New returns an empty Store.
func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, blobstore.ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *Store) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[key] = cp
	return nil
}

func (s *Store) AppendLine(_ context.Context, key string, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailAppendTimes > 0 {
		s.FailAppendTimes--
		return blobstore.ErrNotFound // any error; callers only care that it's non-nil
	}

	s.objects[key] = append(s.objects[key], []byte(line+"\n")...)
	return nil
}

func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Objects returns a snapshot of every stored key, for test assertions.
func (s *Store) Objects() map[string][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]byte, len(s.objects))
	for k, v := range s.objects {
		out[k] = v
	}
	return out
}
