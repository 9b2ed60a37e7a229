// Package fraud analyzes windows of ledger activity for coordinated token
// abuse. Analysis is pure: the engine never mutates settlement state. The
// explicit Marker action persists exclusion markers for audit.
package fraud

import (
	"sort"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
)

// Engine runs the three independent detections over an activity snapshot and
// unions their results.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine with the given thresholds.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Analyze inspects one window of activity and reports the ids to exclude
// from settlement, broken down by detection category. An empty window yields
// a zero report. Missing optional signals (actor names, comments) skip the
// checks that need them; they never error.
//
// The pairwise scan is quadratic in window size. That is acceptable for
// bounded monthly batches; rework to a fingerprint-sorted sliding window
// before pointing this at unbounded streams.
func (e *Engine) Analyze(activities []*domain.TokenActivity) *domain.FraudReport {
	report := &domain.FraudReport{
		Total:      len(activities),
		ByCategory: make(map[domain.FraudCategory][]string),
		Scores:     make(map[domain.FraudCategory]map[string]float64),
	}
	if len(activities) == 0 {
		return report
	}

	excluded := make(map[string]struct{})
	record := func(category domain.FraudCategory, scores map[string]float64) {
		ids := make([]string, 0, len(scores))
		for id := range scores {
			ids = append(ids, id)
			excluded[id] = struct{}{}
		}
		sort.Strings(ids)
		report.ByCategory[category] = ids
		report.Scores[category] = scores
	}

	record(domain.FraudOriginClustering, e.detectOriginClustering(activities))
	record(domain.FraudTimeProximity, e.detectTimeProximity(activities))
	record(domain.FraudPatternAbuse, e.detectPatternAbuse(activities))

	report.ExcludedIDs = make([]string, 0, len(excluded))
	for id := range excluded {
		report.ExcludedIDs = append(report.ExcludedIDs, id)
	}
	sort.Strings(report.ExcludedIDs)
	report.ExclusionPct = float64(len(report.ExcludedIDs)) / float64(report.Total) * 100

	return report
}

// detectOriginClustering flags every activity of an origin fingerprint whose
// group exceeds the cluster ceiling within the window. The evidence score is
// the cluster size.
func (e *Engine) detectOriginClustering(activities []*domain.TokenActivity) map[string]float64 {
	groups := make(map[string][]*domain.TokenActivity)
	for _, a := range activities {
		groups[a.OriginFingerprint] = append(groups[a.OriginFingerprint], a)
	}

	flagged := make(map[string]float64)
	for _, group := range groups {
		if len(group) > e.cfg.OriginClusterLimit {
			for _, a := range group {
				flagged[a.ActivityID] = float64(len(group))
			}
		}
	}
	return flagged
}

// detectTimeProximity scores every same-origin pair inside the proximity
// window and flags both sides of any pair reaching the flag score. The
// evidence score is the highest pair score the activity participated in.
func (e *Engine) detectTimeProximity(activities []*domain.TokenActivity) map[string]float64 {
	actorCounts := countByActor(activities)
	proximityMs := e.cfg.TimeProximityWindow.Milliseconds()
	sameVideoMs := e.cfg.SameVideoWindow.Milliseconds()

	flagged := make(map[string]float64)
	for i := 0; i < len(activities); i++ {
		for j := i + 1; j < len(activities); j++ {
			a, b := activities[i], activities[j]

			if a.OriginFingerprint != b.OriginFingerprint {
				continue
			}
			dt := a.UsedAt - b.UsedAt
			if dt < 0 {
				dt = -dt
			}
			if dt > proximityMs {
				continue
			}

			score := 0

			if similarity(a.ActorName, b.ActorName) >= e.cfg.ActorNameSimilarityThreshold {
				score += 2
			}

			if commentsMatch(a.Comments, b.Comments, e.cfg.CommentSimilarityThreshold) {
				score += 3
			}

			if anySpam(a.Comments) || anySpam(b.Comments) {
				score += 3
			}

			if exceedsLimit(actorCounts, a.ActorID, e.cfg.InteractionLimit) ||
				exceedsLimit(actorCounts, b.ActorID, e.cfg.InteractionLimit) {
				score += 2
			}

			if a.VideoID == b.VideoID && dt < sameVideoMs {
				score += 4
			}

			if score >= e.cfg.PairFlagScore {
				if s := float64(score); s > flagged[a.ActivityID] {
					flagged[a.ActivityID] = s
				}
				if s := float64(score); s > flagged[b.ActivityID] {
					flagged[b.ActivityID] = s
				}
			}
		}
	}

	return flagged
}

// detectPatternAbuse flags all window activity of actors spending beyond the
// activity ceiling or spreading across too many origin fingerprints.
// Anonymous activity has no actor to attribute and is skipped here. The
// evidence score is the measure that tripped: activity count, or the origin
// spread when the volume stayed under its ceiling.
func (e *Engine) detectPatternAbuse(activities []*domain.TokenActivity) map[string]float64 {
	byActor := make(map[string][]*domain.TokenActivity)
	for _, a := range activities {
		if a.ActorID == nil {
			continue
		}
		byActor[*a.ActorID] = append(byActor[*a.ActorID], a)
	}

	flagged := make(map[string]float64)
	for _, group := range byActor {
		origins := make(map[string]struct{})
		for _, a := range group {
			origins[a.OriginFingerprint] = struct{}{}
		}

		if len(group) > e.cfg.ActorActivityLimit || len(origins) > e.cfg.ActorOriginLimit {
			evidence := float64(len(group))
			if len(group) <= e.cfg.ActorActivityLimit {
				evidence = float64(len(origins))
			}
			for _, a := range group {
				flagged[a.ActivityID] = evidence
			}
		}
	}
	return flagged
}

// countByActor tallies window activity per authenticated actor.
func countByActor(activities []*domain.TokenActivity) map[string]int {
	counts := make(map[string]int)
	for _, a := range activities {
		if a.ActorID != nil {
			counts[*a.ActorID]++
		}
	}
	return counts
}

// exceedsLimit reports whether the actor's window count exceeds the ceiling.
func exceedsLimit(counts map[string]int, actorID *string, limit int) bool {
	if actorID == nil {
		return false
	}
	return counts[*actorID] > limit
}

// commentsMatch reports whether any cross pair of comments reaches the
// similarity threshold.
func commentsMatch(a, b []string, threshold float64) bool {
	for _, ca := range a {
		for _, cb := range b {
			if similarity(ca, cb) >= threshold {
				return true
			}
		}
	}
	return false
}

// anySpam reports whether any comment matches the spam lexicon.
func anySpam(comments []string) bool {
	for _, c := range comments {
		if isSpamComment(c) {
			return true
		}
	}
	return false
}
