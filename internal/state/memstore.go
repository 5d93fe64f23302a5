package state

import (
	"fmt"
	"sync"
)

// MemStore keeps completion state in memory. It exists so tests can run the
// pipeline against a synthetic store without touching the filesystem.
type MemStore struct {
	lock  sync.Mutex
	store map[string]struct{}
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		store: make(map[string]struct{}),
	}
}

func key(pkg string, stage Stage) string {
	return fmt.Sprintf("%s/%s", pkg, stage)
}

// HasCompleted reports whether the stage was marked completed for the package.
func (m *MemStore) HasCompleted(pkg string, stage Stage) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	_, ok := m.store[key(pkg, stage)]
	return ok, nil
}

// MarkCompleted records the stage as completed for the package.
func (m *MemStore) MarkCompleted(pkg string, stage Stage) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.store[key(pkg, stage)] = struct{}{}
	return nil
}
