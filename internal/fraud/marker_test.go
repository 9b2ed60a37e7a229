package fraud

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage/memory"
)

func TestMarker_PersistCarriesScores(t *testing.T) {
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC).UnixMilli()
	var activities []*domain.TokenActivity
	for i := 0; i < 12; i++ {
		activities = append(activities, makeActivity(
			fmt.Sprintf("cluster-%02d", i), "creator-1", "video-1",
			"", "fp-shared", base+int64(i)*3_600_000,
		))
	}

	report := NewEngine(DefaultConfig()).Analyze(activities)

	store := memory.NewFraudFindingStore()
	marker := NewMarker(store)
	written, err := marker.Persist(context.Background(), "2025-01", report)
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if written != 12 {
		t.Fatalf("persisted %d findings, want 12", written)
	}

	findings, err := store.GetByPeriod(context.Background(), "2025-01")
	if err != nil {
		t.Fatalf("GetByPeriod failed: %v", err)
	}
	for _, f := range findings {
		if f.Category != domain.FraudOriginClustering {
			t.Errorf("finding %s category = %s, want origin_clustering", f.ActivityID, f.Category)
		}
		if f.Score != 12 {
			t.Errorf("finding %s score = %f, want 12 (cluster size)", f.ActivityID, f.Score)
		}
	}
}

func TestMarker_PersistEmptyReport(t *testing.T) {
	marker := NewMarker(memory.NewFraudFindingStore())

	written, err := marker.Persist(context.Background(), "2025-01", &domain.FraudReport{Total: 3})
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if written != 0 {
		t.Errorf("persisted %d findings for a clean report, want 0", written)
	}
}
