package clickhouse

import (
	"context"
	"fmt"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
)

// ActivityStore implements storage.ActivityStore using ClickHouse. The
// token_activity table is a ReplacingMergeTree keyed on activity_id: replaying
// an already-mirrored activity collapses to one row, so re-ingestion is safe.
type ActivityStore struct {
	conn *Conn
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(conn *Conn) *ActivityStore {
	return &ActivityStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ActivityStore = (*ActivityStore)(nil)

// InsertBulk adds multiple activities. Intra-batch duplicates fail with
// ErrDuplicateKey; duplicates against stored rows are absorbed by the
// ReplacingMergeTree engine.
func (s *ActivityStore) InsertBulk(ctx context.Context, activities []*domain.TokenActivity) error {
	if len(activities) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(activities))
	for _, a := range activities {
		if a == nil || a.ActivityID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[a.ActivityID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[a.ActivityID] = struct{}{}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO token_activity (
			activity_id, creator_id, video_id, actor_id, origin_fingerprint, used_at, source, actor_name, comments
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, a := range activities {
		err = batch.Append(
			a.ActivityID, a.CreatorID, a.VideoID, a.ActorID,
			a.OriginFingerprint, uint64(a.UsedAt), string(a.Source),
			a.ActorName, a.Comments,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByWindow retrieves activities with used_at in [startMs, endMs),
// optionally filtered, ordered by used_at ASC then activity_id ASC. FINAL
// collapses rows not yet merged by ReplacingMergeTree.
func (s *ActivityStore) GetByWindow(ctx context.Context, startMs, endMs int64, filter storage.ActivityFilter) ([]*domain.TokenActivity, error) {
	query := `
		SELECT activity_id, creator_id, video_id, actor_id, origin_fingerprint, used_at, source, actor_name, comments
		FROM token_activity FINAL
		WHERE used_at >= ? AND used_at < ?
	`
	args := []any{uint64(startMs), uint64(endMs)}

	if filter.CreatorID != "" {
		query += " AND creator_id = ?"
		args = append(args, filter.CreatorID)
	}
	if filter.VideoID != "" {
		query += " AND video_id = ?"
		args = append(args, filter.VideoID)
	}
	query += " ORDER BY used_at ASC, activity_id ASC"

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query activity window: %w", err)
	}
	defer rows.Close()

	var activities []*domain.TokenActivity
	for rows.Next() {
		var a domain.TokenActivity
		var usedAt uint64
		var source string

		err := rows.Scan(
			&a.ActivityID, &a.CreatorID, &a.VideoID, &a.ActorID,
			&a.OriginFingerprint, &usedAt, &source, &a.ActorName, &a.Comments,
		)
		if err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}

		a.UsedAt = int64(usedAt)
		a.Source = domain.Source(source)
		activities = append(activities, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity rows: %w", err)
	}

	return activities, nil
}
