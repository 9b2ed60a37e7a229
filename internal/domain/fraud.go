package domain

// FraudCategory names one of the independent detection heuristics.
type FraudCategory string

const (
	// FraudOriginClustering flags whole origin-fingerprint groups that exceed
	// the cluster ceiling inside the analysis window.
	FraudOriginClustering FraudCategory = "origin_clustering"
	// FraudTimeProximity flags pairs of activities from the same origin whose
	// accumulated collusion score crosses the flag threshold.
	FraudTimeProximity FraudCategory = "time_proximity"
	// FraudPatternAbuse flags all window activity of actors with abusive
	// volume or origin spread.
	FraudPatternAbuse FraudCategory = "pattern_abuse"
)

// FraudFinding records that one detection flagged one activity. Corresponds
// to fraud_findings in PostgreSQL. Findings are only persisted by the explicit
// marker action; analysis itself is pure. Multiple findings may reference the
// same activity, and any single finding excludes it from settlement.
type FraudFinding struct {
	ActivityID string
	Category   FraudCategory
	Score      float64
	Period     Period
	DetectedAt int64 // Unix timestamp in milliseconds
}

// FraudReport is the result of analyzing one activity window.
type FraudReport struct {
	// Total is the number of activities analyzed.
	Total int
	// ExcludedIDs is the union of all flagged activity ids, sorted.
	ExcludedIDs []string
	// ByCategory breaks flagged ids down per detection for audit purposes.
	// An id may appear under more than one category.
	ByCategory map[FraudCategory][]string
	// Scores holds each detection's evidence measure per flagged id: the
	// cluster size for origin clustering, the highest pair score for time
	// proximity, and the actor's activity volume or origin spread for
	// pattern abuse.
	Scores map[FraudCategory]map[string]float64
	// ExclusionPct is len(ExcludedIDs)/Total*100, 0 for an empty window.
	ExclusionPct float64
}

// Excluded returns the flagged ids as a set for O(1) membership checks during
// aggregation.
func (r *FraudReport) Excluded() map[string]struct{} {
	set := make(map[string]struct{}, len(r.ExcludedIDs))
	for _, id := range r.ExcludedIDs {
		set[id] = struct{}{}
	}
	return set
}
