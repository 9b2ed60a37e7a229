package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
)

func TestCompensationRuleStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCompensationRuleStore(pool)

	rule := &domain.CompensationRule{
		Period:              domain.Period("2025-01"),
		HumanMultiplier:     1.5,
		SyntheticMultiplier: 0.5,
		DPVBase:             0.01,
	}
	require.NoError(t, store.Upsert(ctx, rule))

	got, err := store.GetByPeriod(ctx, domain.Period("2025-01"))
	require.NoError(t, err)
	assert.Equal(t, domain.Period("2025-01"), got.Period)
	assert.InDelta(t, 1.5, got.HumanMultiplier, 0.0001)
	assert.InDelta(t, 0.5, got.SyntheticMultiplier, 0.0001)
	assert.InDelta(t, 0.01, got.DPVBase, 0.0001)

	// Upsert replaces in place, no history kept.
	rule.HumanMultiplier = 2.0
	require.NoError(t, store.Upsert(ctx, rule))

	got, err = store.GetByPeriod(ctx, domain.Period("2025-01"))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got.HumanMultiplier, 0.0001)
}

func TestCompensationRuleStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCompensationRuleStore(pool)
	_, err := store.GetByPeriod(context.Background(), domain.Period("2030-01"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
