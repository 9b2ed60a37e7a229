package fraud

import (
	"fmt"
	"testing"
	"time"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
)

func ptr[T any](v T) *T { return &v }

// makeActivity builds a test activity with sensible defaults.
func makeActivity(id, creator, video, actor, fingerprint string, usedAt int64) *domain.TokenActivity {
	a := &domain.TokenActivity{
		ActivityID:        id,
		CreatorID:         creator,
		VideoID:           video,
		OriginFingerprint: fingerprint,
		UsedAt:            usedAt,
		Source:            domain.SourceTap,
	}
	if actor != "" {
		a.ActorID = ptr(actor)
		a.ActorName = actor
	}
	return a
}

func TestAnalyze_EmptyWindow(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	report := engine.Analyze(nil)

	if report.Total != 0 {
		t.Errorf("Total = %d, want 0", report.Total)
	}
	if len(report.ExcludedIDs) != 0 {
		t.Errorf("ExcludedIDs = %v, want empty", report.ExcludedIDs)
	}
	if report.ExclusionPct != 0 {
		t.Errorf("ExclusionPct = %f, want 0", report.ExclusionPct)
	}
}

func TestAnalyze_OriginClustering(t *testing.T) {
	// 15 activities from one fingerprint within 5 minutes, ceiling 10:
	// the whole cluster is flagged.
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC).UnixMilli()
	var activities []*domain.TokenActivity
	for i := 0; i < 15; i++ {
		activities = append(activities, makeActivity(
			fmt.Sprintf("act-%02d", i), "creator-1", fmt.Sprintf("video-%d", i%5),
			"", "fp-shared", base+int64(i)*20_000,
		))
	}
	// One activity from an unrelated origin stays clean.
	activities = append(activities, makeActivity("act-clean", "creator-1", "video-1", "", "fp-other", base))

	engine := NewEngine(DefaultConfig())
	report := engine.Analyze(activities)

	if got := len(report.ByCategory[domain.FraudOriginClustering]); got != 15 {
		t.Errorf("origin clustering flagged %d, want 15", got)
	}
	for _, id := range report.ExcludedIDs {
		if id == "act-clean" {
			t.Error("unclustered activity was flagged")
		}
	}
}

func TestAnalyze_OriginClustering_Monotonic(t *testing.T) {
	// Adding more activity to an already-flagged cluster never un-flags it.
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC).UnixMilli()
	var activities []*domain.TokenActivity
	for i := 0; i < 11; i++ {
		activities = append(activities, makeActivity(
			fmt.Sprintf("act-%02d", i), "creator-1", "video-1", "", "fp-shared", base+int64(i)*60_000,
		))
	}

	engine := NewEngine(DefaultConfig())
	before := engine.Analyze(activities).Excluded()

	for i := 11; i < 30; i++ {
		activities = append(activities, makeActivity(
			fmt.Sprintf("act-%02d", i), "creator-1", "video-1", "", "fp-shared", base+int64(i)*60_000,
		))
	}
	after := engine.Analyze(activities).Excluded()

	for id := range before {
		if _, still := after[id]; !still {
			t.Errorf("activity %s was un-flagged after the cluster grew", id)
		}
	}
}

func TestAnalyze_TimeProximity_SameVideoPair(t *testing.T) {
	// Same origin, same video, 30 seconds apart: +4 alone reaches the flag
	// score.
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC).UnixMilli()
	activities := []*domain.TokenActivity{
		makeActivity("pair-a", "creator-1", "video-1", "alice", "fp-1", base),
		makeActivity("pair-b", "creator-1", "video-1", "bob", "fp-1", base+30_000),
	}

	engine := NewEngine(DefaultConfig())
	report := engine.Analyze(activities)

	if got := len(report.ByCategory[domain.FraudTimeProximity]); got != 2 {
		t.Fatalf("time proximity flagged %d, want 2", got)
	}
}

func TestAnalyze_TimeProximity_NameSimilarityAloneInsufficient(t *testing.T) {
	// Similar names score +2, below the flag threshold of 4.
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC).UnixMilli()
	activities := []*domain.TokenActivity{
		makeActivity("a", "creator-1", "video-1", "promo_user_01", "fp-1", base),
		makeActivity("b", "creator-1", "video-2", "promo_user_02", "fp-1", base+60_000),
	}

	engine := NewEngine(DefaultConfig())
	report := engine.Analyze(activities)

	if got := len(report.ExcludedIDs); got != 0 {
		t.Errorf("flagged %d activities, want 0 (name similarity alone scores 2)", got)
	}
}

func TestAnalyze_TimeProximity_NameSimilarityPlusSpam(t *testing.T) {
	// Similar names (+2) and spam comments (+3) cross the threshold together.
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC).UnixMilli()
	a := makeActivity("a", "creator-1", "video-1", "promo_user_01", "fp-1", base)
	a.Comments = []string{"subscribe and dm me on telegram"}
	b := makeActivity("b", "creator-1", "video-2", "promo_user_02", "fp-1", base+60_000)

	engine := NewEngine(DefaultConfig())
	report := engine.Analyze([]*domain.TokenActivity{a, b})

	if got := len(report.ByCategory[domain.FraudTimeProximity]); got != 2 {
		t.Errorf("time proximity flagged %d, want 2", got)
	}
}

func TestAnalyze_TimeProximity_DifferentOriginsSkipped(t *testing.T) {
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC).UnixMilli()
	activities := []*domain.TokenActivity{
		makeActivity("a", "creator-1", "video-1", "alice", "fp-1", base),
		makeActivity("b", "creator-1", "video-1", "alice", "fp-2", base+10_000),
	}

	engine := NewEngine(DefaultConfig())
	report := engine.Analyze(activities)

	if got := len(report.ExcludedIDs); got != 0 {
		t.Errorf("flagged %d activities across different origins, want 0", got)
	}
}

func TestAnalyze_TimeProximity_OutsideWindowSkipped(t *testing.T) {
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC).UnixMilli()
	activities := []*domain.TokenActivity{
		makeActivity("a", "creator-1", "video-1", "alice", "fp-1", base),
		// Same origin and video, but 11 minutes apart.
		makeActivity("b", "creator-1", "video-1", "bob", "fp-1", base+11*60_000),
	}

	engine := NewEngine(DefaultConfig())
	report := engine.Analyze(activities)

	if got := len(report.ExcludedIDs); got != 0 {
		t.Errorf("flagged %d activities outside the proximity window, want 0", got)
	}
}

func TestAnalyze_PatternAbuse_ActivityCeiling(t *testing.T) {
	// One actor with 21 activities in the window: all flagged. Spread over
	// distinct fingerprints and videos so no other detection fires.
	base := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC).UnixMilli()
	cfg := DefaultConfig()
	cfg.ActorOriginLimit = 100 // isolate the activity ceiling

	var activities []*domain.TokenActivity
	for i := 0; i < 21; i++ {
		activities = append(activities, makeActivity(
			fmt.Sprintf("act-%02d", i), "creator-1", fmt.Sprintf("video-%d", i),
			"binge-actor", fmt.Sprintf("fp-%d", i), base+int64(i)*3_600_000,
		))
	}

	engine := NewEngine(cfg)
	report := engine.Analyze(activities)

	if got := len(report.ByCategory[domain.FraudPatternAbuse]); got != 21 {
		t.Errorf("pattern abuse flagged %d, want 21", got)
	}
}

func TestAnalyze_PatternAbuse_OriginSpread(t *testing.T) {
	// One actor from 4 distinct fingerprints, ceiling 3: all their activity
	// is flagged.
	base := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC).UnixMilli()
	var activities []*domain.TokenActivity
	for i := 0; i < 4; i++ {
		activities = append(activities, makeActivity(
			fmt.Sprintf("act-%d", i), "creator-1", fmt.Sprintf("video-%d", i),
			"hopper", fmt.Sprintf("fp-%d", i), base+int64(i)*3_600_000,
		))
	}

	engine := NewEngine(DefaultConfig())
	report := engine.Analyze(activities)

	if got := len(report.ByCategory[domain.FraudPatternAbuse]); got != 4 {
		t.Errorf("pattern abuse flagged %d, want 4", got)
	}
}

func TestAnalyze_PatternAbuse_AnonymousSkipped(t *testing.T) {
	// Anonymous activity cannot be attributed to an actor.
	base := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC).UnixMilli()
	var activities []*domain.TokenActivity
	for i := 0; i < 25; i++ {
		activities = append(activities, makeActivity(
			fmt.Sprintf("act-%02d", i), "creator-1", fmt.Sprintf("video-%d", i),
			"", fmt.Sprintf("fp-%d", i), base+int64(i)*3_600_000,
		))
	}

	engine := NewEngine(DefaultConfig())
	report := engine.Analyze(activities)

	if got := len(report.ByCategory[domain.FraudPatternAbuse]); got != 0 {
		t.Errorf("pattern abuse flagged %d anonymous activities, want 0", got)
	}
}

func TestAnalyze_ExclusionPct(t *testing.T) {
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC).UnixMilli()
	activities := []*domain.TokenActivity{
		makeActivity("pair-a", "creator-1", "video-1", "alice", "fp-1", base),
		makeActivity("pair-b", "creator-1", "video-1", "bob", "fp-1", base+30_000),
		makeActivity("clean-1", "creator-1", "video-2", "carol", "fp-2", base),
		makeActivity("clean-2", "creator-2", "video-3", "dave", "fp-3", base),
	}

	engine := NewEngine(DefaultConfig())
	report := engine.Analyze(activities)

	if report.Total != 4 {
		t.Errorf("Total = %d, want 4", report.Total)
	}
	if len(report.ExcludedIDs) != 2 {
		t.Fatalf("excluded %d, want 2", len(report.ExcludedIDs))
	}
	if report.ExclusionPct != 50 {
		t.Errorf("ExclusionPct = %f, want 50", report.ExclusionPct)
	}
}

func TestAnalyze_EvidenceScores(t *testing.T) {
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC).UnixMilli()

	// Cluster of 12 from one fingerprint: score is the cluster size.
	var activities []*domain.TokenActivity
	for i := 0; i < 12; i++ {
		activities = append(activities, makeActivity(
			fmt.Sprintf("cluster-%02d", i), "creator-1", fmt.Sprintf("video-%d", i%4),
			"", "fp-shared", base+int64(i)*20_000,
		))
	}
	// Same-video pair 30 seconds apart: pair score 4.
	activities = append(activities,
		makeActivity("pair-a", "creator-2", "video-x", "alice", "fp-pair", base),
		makeActivity("pair-b", "creator-2", "video-x", "bob", "fp-pair", base+30_000),
	)
	// One actor hopping 4 distinct fingerprints, ceiling 3: score is the
	// origin spread.
	for i := 0; i < 4; i++ {
		activities = append(activities, makeActivity(
			fmt.Sprintf("hop-%d", i), "creator-3", fmt.Sprintf("video-h%d", i),
			"hopper", fmt.Sprintf("fp-hop-%d", i), base+int64(i)*3_600_000,
		))
	}

	engine := NewEngine(DefaultConfig())
	report := engine.Analyze(activities)

	if got := report.Scores[domain.FraudOriginClustering]["cluster-00"]; got != 12 {
		t.Errorf("origin clustering score = %f, want 12 (cluster size)", got)
	}
	if got := report.Scores[domain.FraudTimeProximity]["pair-a"]; got != 4 {
		t.Errorf("time proximity score = %f, want 4 (pair score)", got)
	}
	if got := report.Scores[domain.FraudPatternAbuse]["hop-0"]; got != 4 {
		t.Errorf("pattern abuse score = %f, want 4 (origin spread)", got)
	}
}

func TestAnalyze_MissingSignalsDegrade(t *testing.T) {
	// No actor names, no comments: similarity and spam checks silently skip;
	// the same-video signal still works.
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC).UnixMilli()
	activities := []*domain.TokenActivity{
		makeActivity("a", "creator-1", "video-1", "", "fp-1", base),
		makeActivity("b", "creator-1", "video-1", "", "fp-1", base+30_000),
	}

	engine := NewEngine(DefaultConfig())
	report := engine.Analyze(activities)

	if got := len(report.ByCategory[domain.FraudTimeProximity]); got != 2 {
		t.Errorf("time proximity flagged %d, want 2 (same-video signal alone)", got)
	}
}
