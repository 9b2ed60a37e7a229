package memory

import (
	"context"
	"sync"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
)

// AuthenticityScoreStore is an in-memory implementation of
// storage.AuthenticityScoreStore.
type AuthenticityScoreStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AuthenticityScore // keyed by video_id
}

// NewAuthenticityScoreStore creates a new in-memory score store.
func NewAuthenticityScoreStore() *AuthenticityScoreStore {
	return &AuthenticityScoreStore{
		data: make(map[string]*domain.AuthenticityScore),
	}
}

// Upsert inserts or replaces the score for a video. Last write wins.
func (s *AuthenticityScoreStore) Upsert(_ context.Context, score *domain.AuthenticityScore) error {
	if score == nil || score.VideoID == "" || !score.Valid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	scoreCopy := *score
	s.data[score.VideoID] = &scoreCopy
	return nil
}

// GetByVideoID retrieves the score for a video. Returns ErrNotFound if the
// video has not been scored.
func (s *AuthenticityScoreStore) GetByVideoID(_ context.Context, videoID string) (*domain.AuthenticityScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score, exists := s.data[videoID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	scoreCopy := *score
	return &scoreCopy, nil
}

// GetByVideoIDs retrieves scores for a set of videos. Unscored videos are
// absent from the result map.
func (s *AuthenticityScoreStore) GetByVideoIDs(_ context.Context, videoIDs []string) (map[string]*domain.AuthenticityScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*domain.AuthenticityScore, len(videoIDs))
	for _, id := range videoIDs {
		if score, exists := s.data[id]; exists {
			scoreCopy := *score
			result[id] = &scoreCopy
		}
	}
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.AuthenticityScoreStore = (*AuthenticityScoreStore)(nil)
