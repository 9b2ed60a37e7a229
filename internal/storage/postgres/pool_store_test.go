package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
)

func testSettlement(period string) (*domain.Pool, []*domain.PoolShare) {
	pool := &domain.Pool{
		Period:               domain.Period(period),
		BaseAmount:           1000,
		TotalEffectiveTokens: 22,
		Settled:              true,
		SettledAt:            1738396800000,
	}
	shares := []*domain.PoolShare{
		{CreatorID: "creator_a", TokenCount: 10, EffectiveTokens: 12, SharePct: 12.0 / 22.0, PayoutAmount: 545.45},
		{CreatorID: "creator_b", TokenCount: 10, EffectiveTokens: 10, SharePct: 10.0 / 22.0, PayoutAmount: 454.55},
	}
	return pool, shares
}

func TestPoolStore_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPoolStore(pool)

	p, shares := testSettlement("2025-01")
	created, err := store.CreateSettlement(ctx, p, shares)
	require.NoError(t, err)
	assert.NotZero(t, created.PoolID)

	got, err := store.GetByPeriod(ctx, domain.Period("2025-01"))
	require.NoError(t, err)
	assert.Equal(t, created.PoolID, got.PoolID)
	assert.Equal(t, domain.Period("2025-01"), got.Period)
	assert.InDelta(t, 1000.0, got.BaseAmount, 0.0001)
	assert.InDelta(t, 22.0, got.TotalEffectiveTokens, 0.0001)
	assert.True(t, got.Settled)
	assert.Equal(t, int64(1738396800000), got.SettledAt)

	gotShares, err := store.GetShares(ctx, created.PoolID)
	require.NoError(t, err)
	require.Len(t, gotShares, 2)

	// Ordered by payout DESC
	assert.Equal(t, "creator_a", gotShares[0].CreatorID)
	assert.Equal(t, int64(10), gotShares[0].TokenCount)
	assert.InDelta(t, 545.45, gotShares[0].PayoutAmount, 0.0001)
	assert.Equal(t, "creator_b", gotShares[1].CreatorID)
	assert.Equal(t, created.PoolID, gotShares[1].PoolID)
}

func TestPoolStore_DuplicatePeriod(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPoolStore(pool)

	p1, shares1 := testSettlement("2025-01")
	_, err := store.CreateSettlement(ctx, p1, shares1)
	require.NoError(t, err)

	// Second settlement for the same period loses on the unique key.
	p2, shares2 := testSettlement("2025-01")
	_, err = store.CreateSettlement(ctx, p2, shares2)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestPoolStore_ReplaceSettlement(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPoolStore(pool)

	p1, shares1 := testSettlement("2025-01")
	first, err := store.CreateSettlement(ctx, p1, shares1)
	require.NoError(t, err)

	p2 := &domain.Pool{
		Period:               domain.Period("2025-01"),
		BaseAmount:           2000,
		TotalEffectiveTokens: 10,
		Settled:              true,
		SettledAt:            1738500000000,
	}
	second, err := store.ReplaceSettlement(ctx, p2, []*domain.PoolShare{
		{CreatorID: "creator_c", TokenCount: 10, EffectiveTokens: 10, SharePct: 1, PayoutAmount: 2000},
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.PoolID, second.PoolID)

	got, err := store.GetByPeriod(ctx, domain.Period("2025-01"))
	require.NoError(t, err)
	assert.Equal(t, second.PoolID, got.PoolID)
	assert.InDelta(t, 2000.0, got.BaseAmount, 0.0001)

	// Old shares cascade-deleted with the old pool.
	oldShares, err := store.GetShares(ctx, first.PoolID)
	require.NoError(t, err)
	assert.Empty(t, oldShares)

	newShares, err := store.GetShares(ctx, second.PoolID)
	require.NoError(t, err)
	require.Len(t, newShares, 1)
	assert.Equal(t, "creator_c", newShares[0].CreatorID)
}

func TestPoolStore_ReplaceWithoutExisting(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPoolStore(pool)

	p, shares := testSettlement("2025-02")
	created, err := store.ReplaceSettlement(ctx, p, shares)
	require.NoError(t, err)
	assert.NotZero(t, created.PoolID)
}

func TestPoolStore_GetByPeriodNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPoolStore(pool)
	_, err := store.GetByPeriod(context.Background(), domain.Period("2030-01"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPoolStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPoolStore(pool)
	_, err := store.CreateSettlement(context.Background(), nil, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
