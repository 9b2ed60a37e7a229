package settlement

import (
	"context"
	"fmt"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
)

// Reader serves settled pool summaries without touching the ledger. It is
// the read side behind the HTTP summary endpoint and the report CLI.
type Reader struct {
	poolStore storage.PoolStore
}

// NewReader creates a Reader backed by the given pool store.
func NewReader(poolStore storage.PoolStore) *Reader {
	return &Reader{poolStore: poolStore}
}

// Summary returns the settled pool for a period with shares ordered by
// payout descending. Returns storage.ErrInvalidInput for a malformed period
// key and storage.ErrNotFound for unsettled periods.
func (r *Reader) Summary(ctx context.Context, periodKey string) (*domain.PoolSummary, error) {
	period, err := domain.ParsePeriod(periodKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	pool, err := r.poolStore.GetByPeriod(ctx, period)
	if err != nil {
		return nil, err
	}
	shares, err := r.poolStore.GetShares(ctx, pool.PoolID)
	if err != nil {
		return nil, fmt.Errorf("load pool shares: %w", err)
	}
	return buildSummary(pool, shares), nil
}
