package postgres

import (
	"context"
	"fmt"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
)

// FraudFindingStore implements storage.FraudFindingStore using PostgreSQL.
type FraudFindingStore struct {
	pool *Pool
}

// NewFraudFindingStore creates a new FraudFindingStore.
func NewFraudFindingStore(pool *Pool) *FraudFindingStore {
	return &FraudFindingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FraudFindingStore = (*FraudFindingStore)(nil)

// InsertBulk appends findings. Re-scanning a window replaces existing
// (activity_id, category, period) rows so the action stays idempotent.
func (s *FraudFindingStore) InsertBulk(ctx context.Context, findings []*domain.FraudFinding) error {
	if len(findings) == 0 {
		return nil
	}

	query := `
		INSERT INTO fraud_findings (activity_id, category, score, period, detected_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (activity_id, category, period) DO UPDATE SET
			score = EXCLUDED.score,
			detected_at = EXCLUDED.detected_at
	`

	for _, f := range findings {
		if f.ActivityID == "" || f.Category == "" || f.Period == "" {
			return storage.ErrInvalidInput
		}
		_, err := s.pool.Exec(ctx, query,
			f.ActivityID,
			string(f.Category),
			f.Score,
			f.Period.String(),
			f.DetectedAt,
		)
		if err != nil {
			return fmt.Errorf("insert fraud finding: %w", err)
		}
	}

	return nil
}

// GetByPeriod retrieves all findings recorded for a period.
func (s *FraudFindingStore) GetByPeriod(ctx context.Context, period domain.Period) ([]*domain.FraudFinding, error) {
	query := `
		SELECT activity_id, category, score, period, detected_at
		FROM fraud_findings
		WHERE period = $1
		ORDER BY activity_id ASC, category ASC
	`

	rows, err := s.pool.Query(ctx, query, period.String())
	if err != nil {
		return nil, fmt.Errorf("get fraud findings by period: %w", err)
	}
	defer rows.Close()

	var findings []*domain.FraudFinding
	for rows.Next() {
		var f domain.FraudFinding
		var category, periodStr string
		err := rows.Scan(
			&f.ActivityID,
			&category,
			&f.Score,
			&periodStr,
			&f.DetectedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fraud finding row: %w", err)
		}
		f.Category = domain.FraudCategory(category)
		f.Period = domain.Period(periodStr)
		findings = append(findings, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fraud finding rows: %w", err)
	}

	return findings, nil
}
