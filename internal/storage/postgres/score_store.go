package postgres

import (
	"context"
	"fmt"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
)

// AuthenticityScoreStore implements storage.AuthenticityScoreStore using PostgreSQL.
type AuthenticityScoreStore struct {
	pool *Pool
}

// NewAuthenticityScoreStore creates a new AuthenticityScoreStore.
func NewAuthenticityScoreStore(pool *Pool) *AuthenticityScoreStore {
	return &AuthenticityScoreStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AuthenticityScoreStore = (*AuthenticityScoreStore)(nil)

// Upsert inserts or replaces the score for a video. Last write wins.
func (s *AuthenticityScoreStore) Upsert(ctx context.Context, score *domain.AuthenticityScore) error {
	if score == nil || score.VideoID == "" || !score.Valid() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO authenticity_scores (video_id, human_prob, synthetic_prob, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (video_id) DO UPDATE SET
			human_prob = EXCLUDED.human_prob,
			synthetic_prob = EXCLUDED.synthetic_prob,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		score.VideoID,
		score.HumanProb,
		score.SyntheticProb,
		score.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert authenticity score: %w", err)
	}
	return nil
}

// GetByVideoID retrieves the score for a video. Returns ErrNotFound if the
// video has not been scored.
func (s *AuthenticityScoreStore) GetByVideoID(ctx context.Context, videoID string) (*domain.AuthenticityScore, error) {
	query := `
		SELECT video_id, human_prob, synthetic_prob, updated_at
		FROM authenticity_scores
		WHERE video_id = $1
	`

	var score domain.AuthenticityScore
	err := s.pool.QueryRow(ctx, query, videoID).Scan(
		&score.VideoID,
		&score.HumanProb,
		&score.SyntheticProb,
		&score.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get authenticity score by video id: %w", err)
	}
	return &score, nil
}

// GetByVideoIDs retrieves scores for a set of videos. Unscored videos are
// absent from the result map.
func (s *AuthenticityScoreStore) GetByVideoIDs(ctx context.Context, videoIDs []string) (map[string]*domain.AuthenticityScore, error) {
	result := make(map[string]*domain.AuthenticityScore, len(videoIDs))
	if len(videoIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT video_id, human_prob, synthetic_prob, updated_at
		FROM authenticity_scores
		WHERE video_id = ANY($1)
	`

	rows, err := s.pool.Query(ctx, query, videoIDs)
	if err != nil {
		return nil, fmt.Errorf("get authenticity scores by video ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var score domain.AuthenticityScore
		err := rows.Scan(
			&score.VideoID,
			&score.HumanProb,
			&score.SyntheticProb,
			&score.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan authenticity score row: %w", err)
		}
		result[score.VideoID] = &score
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate authenticity score rows: %w", err)
	}

	return result, nil
}
