package session

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory. Suitable for single-instance
// deployments; sessions do not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	surveys map[int64]*Survey
	cases   map[int64]*Case
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		surveys: make(map[int64]*Survey),
		cases:   make(map[int64]*Case),
	}
}

func (m *MemoryStore) GetSurvey(_ context.Context, chatID int64) (*Survey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.surveys[chatID], nil
}

func (m *MemoryStore) PutSurvey(_ context.Context, chatID int64, s *Survey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.surveys[chatID] = s
	return nil
}

func (m *MemoryStore) GetCase(_ context.Context, chatID int64) (*Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cases[chatID], nil
}

func (m *MemoryStore) PutCase(_ context.Context, chatID int64, c *Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cases[chatID] = c
	return nil
}

func (m *MemoryStore) Evict(_ context.Context, chatID int64, kind Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case KindSurvey:
		delete(m.surveys, chatID)
	case KindCase:
		delete(m.cases, chatID)
	}
	return nil
}
