// Package memory is an in-process BlobStore. Nothing survives a restart
// unless the store is seeded from files.
package memory

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"expensetracker/internal/storage"
)

var _ storage.BlobStore = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func New() *Store {
	return &Store{blobs: map[string][]byte{}}
}

// NewFromFiles seeds the store from files named after the persisted keys
// (expenses.json, budget.txt, reminder.json) in base. Missing files are
// skipped.
func NewFromFiles(base string) *Store {
	s := New()
	seeds := map[string]string{
		storage.KeyExpenses: "expenses.json",
		storage.KeyBudget:   "budget.txt",
		storage.KeyReminder: "reminder.json",
	}
	for key, name := range seeds {
		b, err := os.ReadFile(filepath.Join(base, name))
		if err != nil {
			continue
		}
		s.blobs[key] = b
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

// Keys returns the number of stored keys.
func (s *Store) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}
