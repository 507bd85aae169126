package meta

import (
	"context"
	"sync"

	"github.com/sir_venger/upload_lite/internal/models"
)

// MemoryStore хранит снапшоты только в оперативной памяти; удобно для тестов.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]models.Snapshot
}

// NewMemoryStore создаёт пустое in-memory хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: map[string]models.Snapshot{}}
}

// Get возвращает снапшот загрузки по id или models.ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, id string) (models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[id]
	if !ok {
		return models.Snapshot{}, models.ErrNotFound
	}
	return snap.Clone(), nil
}

// Save записывает (или перезаписывает) снапшот целиком.
func (s *MemoryStore) Save(_ context.Context, snap models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.ID] = snap.Clone()
	return nil
}

// Delete удаляет снапшот; отсутствие записи ошибкой не считается.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, id)
	return nil
}
