package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
)

// PoolStore is an in-memory implementation of storage.PoolStore. The mutex
// makes each settlement write atomic, mirroring the transactional guarantee
// of the PostgreSQL implementation.
type PoolStore struct {
	mu     sync.RWMutex
	nextID int64
	pools  map[domain.Period]*domain.Pool
	shares map[int64][]*domain.PoolShare // keyed by pool_id
}

// NewPoolStore creates a new in-memory pool store.
func NewPoolStore() *PoolStore {
	return &PoolStore{
		nextID: 1,
		pools:  make(map[domain.Period]*domain.Pool),
		shares: make(map[int64][]*domain.PoolShare),
	}
}

// CreateSettlement persists a pool and its shares atomically. Returns
// ErrDuplicateKey if a pool for the period already exists.
func (s *PoolStore) CreateSettlement(_ context.Context, pool *domain.Pool, shares []*domain.PoolShare) (*domain.Pool, error) {
	if pool == nil || pool.Period == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pools[pool.Period]; exists {
		return nil, storage.ErrDuplicateKey
	}

	return s.insertLocked(pool, shares), nil
}

// ReplaceSettlement deletes any existing pool for the period (shares
// included) and persists the new settlement as one atomic step.
func (s *PoolStore) ReplaceSettlement(_ context.Context, pool *domain.Pool, shares []*domain.PoolShare) (*domain.Pool, error) {
	if pool == nil || pool.Period == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.pools[pool.Period]; exists {
		delete(s.shares, existing.PoolID)
		delete(s.pools, pool.Period)
	}

	return s.insertLocked(pool, shares), nil
}

// insertLocked stores copies of the pool and shares under a fresh pool id.
// Caller must hold the write lock.
func (s *PoolStore) insertLocked(pool *domain.Pool, shares []*domain.PoolShare) *domain.Pool {
	poolCopy := *pool
	poolCopy.PoolID = s.nextID
	s.nextID++

	shareCopies := make([]*domain.PoolShare, 0, len(shares))
	for _, share := range shares {
		shareCopy := *share
		shareCopy.PoolID = poolCopy.PoolID
		shareCopies = append(shareCopies, &shareCopy)
	}

	s.pools[poolCopy.Period] = &poolCopy
	s.shares[poolCopy.PoolID] = shareCopies

	result := poolCopy
	return &result
}

// GetByPeriod retrieves the settled pool for a period. Returns ErrNotFound if
// the period has not been settled.
func (s *PoolStore) GetByPeriod(_ context.Context, period domain.Period) (*domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pool, exists := s.pools[period]
	if !exists || !pool.Settled {
		return nil, storage.ErrNotFound
	}

	poolCopy := *pool
	return &poolCopy, nil
}

// GetShares retrieves a pool's shares ordered by payout DESC, creator ASC.
func (s *PoolStore) GetShares(_ context.Context, poolID int64) ([]*domain.PoolShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.shares[poolID]
	result := make([]*domain.PoolShare, 0, len(stored))
	for _, share := range stored {
		shareCopy := *share
		result = append(result, &shareCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].PayoutAmount != result[j].PayoutAmount {
			return result[i].PayoutAmount > result[j].PayoutAmount
		}
		return result[i].CreatorID < result[j].CreatorID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.PoolStore = (*PoolStore)(nil)
