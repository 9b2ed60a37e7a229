package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
)

// ActivityStore is an in-memory implementation of storage.ActivityStore.
type ActivityStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenActivity // keyed by activity_id
}

// NewActivityStore creates a new in-memory activity store.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{
		data: make(map[string]*domain.TokenActivity),
	}
}

// InsertBulk adds multiple activities. Intra-batch duplicates fail with
// ErrDuplicateKey; re-inserting a stored activity_id is a no-op, mirroring
// the ledger's ReplacingMergeTree behavior.
func (s *ActivityStore) InsertBulk(_ context.Context, activities []*domain.TokenActivity) error {
	seen := make(map[string]struct{}, len(activities))
	for _, a := range activities {
		if a == nil || a.ActivityID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[a.ActivityID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[a.ActivityID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range activities {
		// Store a copy to prevent external mutation
		activityCopy := *a
		if a.Comments != nil {
			activityCopy.Comments = append([]string(nil), a.Comments...)
		}
		s.data[a.ActivityID] = &activityCopy
	}
	return nil
}

// GetByWindow retrieves activities with used_at in [startMs, endMs),
// optionally filtered, ordered by used_at ASC then activity_id ASC.
func (s *ActivityStore) GetByWindow(_ context.Context, startMs, endMs int64, filter storage.ActivityFilter) ([]*domain.TokenActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenActivity
	for _, a := range s.data {
		if a.UsedAt < startMs || a.UsedAt >= endMs {
			continue
		}
		if filter.CreatorID != "" && a.CreatorID != filter.CreatorID {
			continue
		}
		if filter.VideoID != "" && a.VideoID != filter.VideoID {
			continue
		}
		activityCopy := *a
		if a.Comments != nil {
			activityCopy.Comments = append([]string(nil), a.Comments...)
		}
		result = append(result, &activityCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].UsedAt != result[j].UsedAt {
			return result[i].UsedAt < result[j].UsedAt
		}
		return result[i].ActivityID < result[j].ActivityID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ActivityStore = (*ActivityStore)(nil)
