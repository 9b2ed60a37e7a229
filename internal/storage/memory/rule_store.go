package memory

import (
	"context"
	"sync"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
)

// CompensationRuleStore is an in-memory implementation of
// storage.CompensationRuleStore.
type CompensationRuleStore struct {
	mu   sync.RWMutex
	data map[domain.Period]*domain.CompensationRule
}

// NewCompensationRuleStore creates a new in-memory rule store.
func NewCompensationRuleStore() *CompensationRuleStore {
	return &CompensationRuleStore{
		data: make(map[domain.Period]*domain.CompensationRule),
	}
}

// Upsert inserts or replaces the rule for a period. Last write wins.
func (s *CompensationRuleStore) Upsert(_ context.Context, r *domain.CompensationRule) error {
	if r == nil || r.Period == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ruleCopy := *r
	s.data[r.Period] = &ruleCopy
	return nil
}

// GetByPeriod retrieves the rule for a period. Returns ErrNotFound when no
// rule is configured.
func (s *CompensationRuleStore) GetByPeriod(_ context.Context, period domain.Period) (*domain.CompensationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[period]
	if !exists {
		return nil, storage.ErrNotFound
	}

	ruleCopy := *r
	return &ruleCopy, nil
}

// Verify interface compliance at compile time.
var _ storage.CompensationRuleStore = (*CompensationRuleStore)(nil)
