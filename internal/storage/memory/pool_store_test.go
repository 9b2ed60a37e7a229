package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
)

func testPool(period domain.Period) *domain.Pool {
	return &domain.Pool{
		Period:               period,
		BaseAmount:           1000.0,
		TotalEffectiveTokens: 22.0,
		Settled:              true,
		SettledAt:            1738396800000,
	}
}

func testShares() []*domain.PoolShare {
	return []*domain.PoolShare{
		{CreatorID: "creator_b", TokenCount: 10, EffectiveTokens: 10, SharePct: 0.454545, PayoutAmount: 454.55},
		{CreatorID: "creator_a", TokenCount: 10, EffectiveTokens: 12, SharePct: 0.545455, PayoutAmount: 545.45},
	}
}

func TestPoolStore_CreateAndGet(t *testing.T) {
	store := NewPoolStore()
	ctx := context.Background()

	created, err := store.CreateSettlement(ctx, testPool("2025-01"), testShares())
	require.NoError(t, err)
	assert.NotZero(t, created.PoolID)

	got, err := store.GetByPeriod(ctx, "2025-01")
	require.NoError(t, err)
	assert.Equal(t, created.PoolID, got.PoolID)
	assert.Equal(t, 1000.0, got.BaseAmount)

	shares, err := store.GetShares(ctx, created.PoolID)
	require.NoError(t, err)
	require.Len(t, shares, 2)
	// payout DESC
	assert.Equal(t, "creator_a", shares[0].CreatorID)
	assert.Equal(t, "creator_b", shares[1].CreatorID)
	assert.Equal(t, created.PoolID, shares[0].PoolID)
}

func TestPoolStore_DuplicatePeriod(t *testing.T) {
	store := NewPoolStore()
	ctx := context.Background()

	_, err := store.CreateSettlement(ctx, testPool("2025-01"), testShares())
	require.NoError(t, err)

	_, err = store.CreateSettlement(ctx, testPool("2025-01"), nil)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestPoolStore_ReplaceSettlement(t *testing.T) {
	store := NewPoolStore()
	ctx := context.Background()

	old, err := store.CreateSettlement(ctx, testPool("2025-01"), testShares())
	require.NoError(t, err)

	replacement := testPool("2025-01")
	replacement.BaseAmount = 2000.0
	replaced, err := store.ReplaceSettlement(ctx, replacement, []*domain.PoolShare{
		{CreatorID: "creator_a", TokenCount: 10, EffectiveTokens: 12, SharePct: 1, PayoutAmount: 2000.00},
	})
	require.NoError(t, err)
	assert.NotEqual(t, old.PoolID, replaced.PoolID)

	// Old shares are gone with the old pool.
	oldShares, err := store.GetShares(ctx, old.PoolID)
	require.NoError(t, err)
	assert.Empty(t, oldShares)

	got, err := store.GetByPeriod(ctx, "2025-01")
	require.NoError(t, err)
	assert.Equal(t, 2000.0, got.BaseAmount)

	newShares, err := store.GetShares(ctx, replaced.PoolID)
	require.NoError(t, err)
	require.Len(t, newShares, 1)
	assert.Equal(t, 2000.00, newShares[0].PayoutAmount)
}

func TestPoolStore_GetByPeriodNotFound(t *testing.T) {
	store := NewPoolStore()

	_, err := store.GetByPeriod(context.Background(), "2024-12")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPoolStore_CopiesAreIsolated(t *testing.T) {
	store := NewPoolStore()
	ctx := context.Background()

	shares := testShares()
	created, err := store.CreateSettlement(ctx, testPool("2025-01"), shares)
	require.NoError(t, err)

	// Mutating the caller's slice must not reach the stored copies.
	shares[0].PayoutAmount = 0

	got, err := store.GetShares(ctx, created.PoolID)
	require.NoError(t, err)
	assert.Equal(t, 545.45, got[0].PayoutAmount)
	assert.Equal(t, 454.55, got[1].PayoutAmount)
}

func TestPoolStore_InvalidInput(t *testing.T) {
	store := NewPoolStore()
	ctx := context.Background()

	_, err := store.CreateSettlement(ctx, nil, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = store.ReplaceSettlement(ctx, &domain.Pool{}, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
