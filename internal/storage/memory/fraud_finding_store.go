package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
)

// findingKey identifies one finding row.
type findingKey struct {
	activityID string
	category   domain.FraudCategory
	period     domain.Period
}

// FraudFindingStore is an in-memory implementation of
// storage.FraudFindingStore.
type FraudFindingStore struct {
	mu   sync.RWMutex
	data map[findingKey]*domain.FraudFinding
}

// NewFraudFindingStore creates a new in-memory finding store.
func NewFraudFindingStore() *FraudFindingStore {
	return &FraudFindingStore{
		data: make(map[findingKey]*domain.FraudFinding),
	}
}

// InsertBulk appends findings, replacing existing rows for the same
// (activity_id, category, period) so re-scans stay idempotent.
func (s *FraudFindingStore) InsertBulk(_ context.Context, findings []*domain.FraudFinding) error {
	for _, f := range findings {
		if f == nil || f.ActivityID == "" || f.Category == "" || f.Period == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range findings {
		findingCopy := *f
		s.data[findingKey{f.ActivityID, f.Category, f.Period}] = &findingCopy
	}
	return nil
}

// GetByPeriod retrieves all findings recorded for a period, ordered by
// activity_id ASC then category ASC.
func (s *FraudFindingStore) GetByPeriod(_ context.Context, period domain.Period) ([]*domain.FraudFinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FraudFinding
	for _, f := range s.data {
		if f.Period == period {
			findingCopy := *f
			result = append(result, &findingCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ActivityID != result[j].ActivityID {
			return result[i].ActivityID < result[j].ActivityID
		}
		return result[i].Category < result[j].Category
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.FraudFindingStore = (*FraudFindingStore)(nil)
