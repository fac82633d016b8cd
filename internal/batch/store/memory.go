package store

import (
	"context"
	"sync"

	"pharmachain/internal/batch/models"
	"pharmachain/pkg/platform/sentinel"
)

// InMemory keeps records in a map. Records are cloned on the way in and out
// so callers never share memory with the store.
type InMemory struct {
	mu      sync.RWMutex
	batches map[string]*models.BatchRecord
}

func NewInMemory() *InMemory {
	return &InMemory{batches: make(map[string]*models.BatchRecord)}
}

func (s *InMemory) Create(_ context.Context, rec *models.BatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[rec.BatchID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.batches[rec.BatchID] = rec.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, batchID string) (*models.BatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.batches[batchID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *InMemory) Exists(_ context.Context, batchID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.batches[batchID]
	return ok, nil
}

func (s *InMemory) Update(_ context.Context, rec *models.BatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[rec.BatchID]; !ok {
		return sentinel.ErrNotFound
	}
	s.batches[rec.BatchID] = rec.Clone()
	return nil
}

// Count returns the number of stored batches.
func (s *InMemory) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.batches)
}
