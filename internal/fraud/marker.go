package fraud

import (
	"context"
	"fmt"
	"time"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
)

// Marker is the explicit action that persists a report's exclusions as audit
// findings. Kept separate from the engine so analysis stays side-effect free.
type Marker struct {
	findingStore storage.FraudFindingStore
	now          func() time.Time
}

// NewMarker creates a Marker writing to the given finding store.
func NewMarker(findingStore storage.FraudFindingStore) *Marker {
	return &Marker{findingStore: findingStore, now: time.Now}
}

// Persist records one finding per (category, activity) of the report.
// Re-persisting the same report is idempotent.
func (m *Marker) Persist(ctx context.Context, period domain.Period, report *domain.FraudReport) (int, error) {
	if report == nil || len(report.ExcludedIDs) == 0 {
		return 0, nil
	}

	detectedAt := m.now().UTC().UnixMilli()
	var findings []*domain.FraudFinding
	for category, ids := range report.ByCategory {
		scores := report.Scores[category]
		for _, id := range ids {
			findings = append(findings, &domain.FraudFinding{
				ActivityID: id,
				Category:   category,
				Score:      scores[id],
				Period:     period,
				DetectedAt: detectedAt,
			})
		}
	}

	if err := m.findingStore.InsertBulk(ctx, findings); err != nil {
		return 0, fmt.Errorf("persist fraud findings: %w", err)
	}
	return len(findings), nil
}
