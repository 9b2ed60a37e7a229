// Package aggregation groups non-fraudulent ledger activity into raw token
// counts per (creator, video) bucket.
package aggregation

import (
	"sort"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
)

// Bucket holds the raw token count for one (creator, video) pair inside a
// settlement window.
type Bucket struct {
	CreatorID string
	VideoID   string
	RawCount  int64
}

// Aggregate groups a window snapshot by (creator, video), skipping any
// activity flagged for exclusion. The snapshot must come from a half-open
// window scan [month start, next month start) so boundary activity is counted
// exactly once; this function trusts the store's windowing and does not
// re-filter timestamps.
//
// Buckets come back ordered by creator then video for deterministic
// settlement math.
func Aggregate(activities []*domain.TokenActivity, excluded map[string]struct{}) []Bucket {
	type key struct {
		creatorID string
		videoID   string
	}

	counts := make(map[key]int64)
	for _, a := range activities {
		if _, isExcluded := excluded[a.ActivityID]; isExcluded {
			continue
		}
		counts[key{a.CreatorID, a.VideoID}]++
	}

	buckets := make([]Bucket, 0, len(counts))
	for k, count := range counts {
		buckets = append(buckets, Bucket{
			CreatorID: k.creatorID,
			VideoID:   k.videoID,
			RawCount:  count,
		})
	}

	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].CreatorID != buckets[j].CreatorID {
			return buckets[i].CreatorID < buckets[j].CreatorID
		}
		return buckets[i].VideoID < buckets[j].VideoID
	})

	return buckets
}

// VideoIDs returns the distinct video ids across buckets, for the
// authenticity score lookup.
func VideoIDs(buckets []Bucket) []string {
	seen := make(map[string]struct{}, len(buckets))
	var ids []string
	for _, b := range buckets {
		if _, ok := seen[b.VideoID]; !ok {
			seen[b.VideoID] = struct{}{}
			ids = append(ids, b.VideoID)
		}
	}
	return ids
}
