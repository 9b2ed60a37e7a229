package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
)

// PoolStore implements storage.PoolStore using PostgreSQL. Pool and share
// writes always travel together inside one transaction: readers observe
// either the whole settlement or nothing.
type PoolStore struct {
	pool *Pool
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

// CreateSettlement persists a pool and its shares atomically. Returns
// ErrDuplicateKey if a pool for the period already exists; the unique period
// key arbitrates concurrent settlement attempts.
func (s *PoolStore) CreateSettlement(ctx context.Context, pool *domain.Pool, shares []*domain.PoolShare) (*domain.Pool, error) {
	if pool == nil || pool.Period == "" {
		return nil, storage.ErrInvalidInput
	}

	created := *pool
	err := s.pool.withTx(ctx, func(tx pgx.Tx) error {
		return insertSettlement(ctx, tx, &created, shares)
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, storage.ErrDuplicateKey
		}
		return nil, err
	}
	return &created, nil
}

// ReplaceSettlement deletes any existing pool for the period (shares cascade)
// and persists the new settlement, all in one transaction. Forced
// recomputation only.
func (s *PoolStore) ReplaceSettlement(ctx context.Context, pool *domain.Pool, shares []*domain.PoolShare) (*domain.Pool, error) {
	if pool == nil || pool.Period == "" {
		return nil, storage.ErrInvalidInput
	}

	created := *pool
	err := s.pool.withTx(ctx, func(tx pgx.Tx) error {
		// The delete takes a row lock on the existing pool, serializing
		// concurrent forced recomputes for the same period.
		if _, err := tx.Exec(ctx, `DELETE FROM pools WHERE period = $1`, created.Period.String()); err != nil {
			return fmt.Errorf("delete existing pool: %w", err)
		}
		return insertSettlement(ctx, tx, &created, shares)
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, storage.ErrDuplicateKey
		}
		return nil, err
	}
	return &created, nil
}

// insertSettlement inserts the pool row and all share rows on tx, assigning
// the new pool id to pool and shares.
func insertSettlement(ctx context.Context, tx pgx.Tx, pool *domain.Pool, shares []*domain.PoolShare) error {
	query := `
		INSERT INTO pools (period, base_amount, total_effective_tokens, settled, settled_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING pool_id
	`

	err := tx.QueryRow(ctx, query,
		pool.Period.String(),
		pool.BaseAmount,
		pool.TotalEffectiveTokens,
		pool.Settled,
		pool.SettledAt,
	).Scan(&pool.PoolID)
	if err != nil {
		return fmt.Errorf("insert pool: %w", err)
	}

	for _, share := range shares {
		share.PoolID = pool.PoolID
		_, err := tx.Exec(ctx, `
			INSERT INTO pool_shares (pool_id, creator_id, token_count, effective_tokens, share_pct, payout_amount)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			share.PoolID,
			share.CreatorID,
			share.TokenCount,
			share.EffectiveTokens,
			share.SharePct,
			share.PayoutAmount,
		)
		if err != nil {
			return fmt.Errorf("insert pool share: %w", err)
		}
	}

	return nil
}

// GetByPeriod retrieves the settled pool for a period. Returns ErrNotFound if
// the period has not been settled.
func (s *PoolStore) GetByPeriod(ctx context.Context, period domain.Period) (*domain.Pool, error) {
	query := `
		SELECT pool_id, period, base_amount, total_effective_tokens, settled, settled_at
		FROM pools
		WHERE period = $1 AND settled = TRUE
	`

	var p domain.Pool
	var periodStr string
	err := s.pool.QueryRow(ctx, query, period.String()).Scan(
		&p.PoolID,
		&periodStr,
		&p.BaseAmount,
		&p.TotalEffectiveTokens,
		&p.Settled,
		&p.SettledAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool by period: %w", err)
	}

	p.Period = domain.Period(periodStr)
	return &p, nil
}

// GetShares retrieves a pool's shares ordered by payout DESC, creator ASC.
func (s *PoolStore) GetShares(ctx context.Context, poolID int64) ([]*domain.PoolShare, error) {
	query := `
		SELECT pool_id, creator_id, token_count, effective_tokens, share_pct, payout_amount
		FROM pool_shares
		WHERE pool_id = $1
		ORDER BY payout_amount DESC, creator_id ASC
	`

	rows, err := s.pool.Query(ctx, query, poolID)
	if err != nil {
		return nil, fmt.Errorf("get pool shares: %w", err)
	}
	defer rows.Close()

	var shares []*domain.PoolShare
	for rows.Next() {
		var share domain.PoolShare
		err := rows.Scan(
			&share.PoolID,
			&share.CreatorID,
			&share.TokenCount,
			&share.EffectiveTokens,
			&share.SharePct,
			&share.PayoutAmount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pool share row: %w", err)
		}
		shares = append(shares, &share)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool share rows: %w", err)
	}

	return shares, nil
}
