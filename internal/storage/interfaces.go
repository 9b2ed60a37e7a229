package storage

import (
	"context"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
)

// ActivityFilter optionally narrows a ledger window scan. Zero value means no
// filtering.
type ActivityFilter struct {
	CreatorID string
	VideoID   string
}

// ActivityStore provides access to the append-only token_activity ledger.
type ActivityStore interface {
	// InsertBulk adds multiple activities. Intra-batch duplicates fail with
	// ErrDuplicateKey; re-inserting an already-stored activity_id is a no-op
	// (the ledger deduplicates on activity_id).
	InsertBulk(ctx context.Context, activities []*domain.TokenActivity) error

	// GetByWindow retrieves activities with used_at in the half-open window
	// [startMs, endMs), optionally filtered, ordered by used_at ASC then
	// activity_id ASC.
	GetByWindow(ctx context.Context, startMs, endMs int64, filter ActivityFilter) ([]*domain.TokenActivity, error)
}

// AuthenticityScoreStore provides access to authenticity_scores storage.
type AuthenticityScoreStore interface {
	// Upsert inserts or replaces the score for a video. Last write wins.
	Upsert(ctx context.Context, s *domain.AuthenticityScore) error

	// GetByVideoID retrieves the score for a video. Returns ErrNotFound if the
	// video has not been scored.
	GetByVideoID(ctx context.Context, videoID string) (*domain.AuthenticityScore, error)

	// GetByVideoIDs retrieves scores for a set of videos. Unscored videos are
	// simply absent from the result map, never an error.
	GetByVideoIDs(ctx context.Context, videoIDs []string) (map[string]*domain.AuthenticityScore, error)
}

// CompensationRuleStore provides access to compensation_rules storage.
type CompensationRuleStore interface {
	// Upsert inserts or replaces the rule for a period. Last write wins, no
	// history kept.
	Upsert(ctx context.Context, r *domain.CompensationRule) error

	// GetByPeriod retrieves the rule for a period. Returns ErrNotFound when no
	// rule is configured.
	GetByPeriod(ctx context.Context, period domain.Period) (*domain.CompensationRule, error)
}

// PoolStore provides access to pools and pool_shares storage. Shares are
// owned by their pool and never written or deleted independently.
type PoolStore interface {
	// CreateSettlement persists a pool and all its shares as a single atomic
	// unit and returns the pool with its assigned id. Returns ErrDuplicateKey
	// if a pool for the period already exists; the period unique key is the
	// sole mechanism that keeps two concurrent settlements from both
	// succeeding.
	CreateSettlement(ctx context.Context, pool *domain.Pool, shares []*domain.PoolShare) (*domain.Pool, error)

	// ReplaceSettlement deletes any existing pool (and, by cascade, its
	// shares) for the pool's period and persists the new pool and shares, all
	// inside one transaction. Used only for explicit forced recomputation.
	ReplaceSettlement(ctx context.Context, pool *domain.Pool, shares []*domain.PoolShare) (*domain.Pool, error)

	// GetByPeriod retrieves the settled pool for a period. Returns ErrNotFound
	// if the period has not been settled.
	GetByPeriod(ctx context.Context, period domain.Period) (*domain.Pool, error)

	// GetShares retrieves a pool's shares ordered by payout_amount DESC,
	// creator_id ASC.
	GetShares(ctx context.Context, poolID int64) ([]*domain.PoolShare, error)
}

// FraudFindingStore provides access to persisted fraud exclusion markers.
// Findings are audit records; settlement always re-derives exclusions from
// the ledger.
type FraudFindingStore interface {
	// InsertBulk appends findings. Duplicate (activity_id, category, period)
	// rows are replaced, not errored: re-running a scan is idempotent.
	InsertBulk(ctx context.Context, findings []*domain.FraudFinding) error

	// GetByPeriod retrieves all findings recorded for a period, ordered by
	// activity_id ASC then category ASC.
	GetByPeriod(ctx context.Context, period domain.Period) ([]*domain.FraudFinding, error)
}
