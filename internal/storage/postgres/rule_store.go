package postgres

import (
	"context"
	"fmt"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
)

// CompensationRuleStore implements storage.CompensationRuleStore using PostgreSQL.
type CompensationRuleStore struct {
	pool *Pool
}

// NewCompensationRuleStore creates a new CompensationRuleStore.
func NewCompensationRuleStore(pool *Pool) *CompensationRuleStore {
	return &CompensationRuleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CompensationRuleStore = (*CompensationRuleStore)(nil)

// Upsert inserts or replaces the rule for a period. Last write wins.
func (s *CompensationRuleStore) Upsert(ctx context.Context, r *domain.CompensationRule) error {
	if r == nil || r.Period == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO compensation_rules (period, human_multiplier, synthetic_multiplier, dpv_base)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (period) DO UPDATE SET
			human_multiplier = EXCLUDED.human_multiplier,
			synthetic_multiplier = EXCLUDED.synthetic_multiplier,
			dpv_base = EXCLUDED.dpv_base
	`

	_, err := s.pool.Exec(ctx, query,
		r.Period.String(),
		r.HumanMultiplier,
		r.SyntheticMultiplier,
		r.DPVBase,
	)
	if err != nil {
		return fmt.Errorf("upsert compensation rule: %w", err)
	}
	return nil
}

// GetByPeriod retrieves the rule for a period. Returns ErrNotFound when no
// rule is configured.
func (s *CompensationRuleStore) GetByPeriod(ctx context.Context, period domain.Period) (*domain.CompensationRule, error) {
	query := `
		SELECT period, human_multiplier, synthetic_multiplier, dpv_base
		FROM compensation_rules
		WHERE period = $1
	`

	var r domain.CompensationRule
	var periodStr string
	err := s.pool.QueryRow(ctx, query, period.String()).Scan(
		&periodStr,
		&r.HumanMultiplier,
		&r.SyntheticMultiplier,
		&r.DPVBase,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get compensation rule by period: %w", err)
	}

	r.Period = domain.Period(periodStr)
	return &r, nil
}
