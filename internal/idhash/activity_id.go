package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeActivityID computes a deterministic activity_id using SHA256.
// Formula: SHA256(creator_id|video_id|actor_id|origin_fingerprint|used_at)
// Returns hex-encoded hash (64 characters).
//
// actorID may be empty for anonymous activity; the empty string participates
// in the hash so anonymous and authenticated spends never collide.
func ComputeActivityID(
	creatorID string,
	videoID string,
	actorID string,
	originFingerprint string,
	usedAt int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d",
		creatorID,
		videoID,
		actorID,
		originFingerprint,
		usedAt,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
