package fraud

import "time"

// Config holds the detection thresholds. Every component receives its
// thresholds explicitly at construction; there is no ambient configuration.
type Config struct {
	// TimeProximityWindow bounds how far apart two activities from the same
	// origin may be and still be scored as a potential colluding pair.
	TimeProximityWindow time.Duration

	// SameVideoWindow is the tighter sub-window for the same-video signal
	// inside a pair.
	SameVideoWindow time.Duration

	// CommentSimilarityThreshold flags near-identical comment pairs.
	CommentSimilarityThreshold float64

	// ActorNameSimilarityThreshold flags near-identical actor names.
	ActorNameSimilarityThreshold float64

	// InteractionLimit is the per-actor activity ceiling used as a pairwise
	// signal.
	InteractionLimit int

	// OriginClusterLimit is the per-fingerprint group ceiling; larger groups
	// are flagged whole.
	OriginClusterLimit int

	// ActorActivityLimit is the per-actor window ceiling for pattern abuse.
	ActorActivityLimit int

	// ActorOriginLimit is the distinct-fingerprint ceiling per actor for
	// pattern abuse.
	ActorOriginLimit int

	// PairFlagScore is the accumulated pairwise score at which both
	// activities of a pair are flagged.
	PairFlagScore int
}

// DefaultConfig returns the engine-wide detection defaults.
func DefaultConfig() Config {
	return Config{
		TimeProximityWindow:          10 * time.Minute,
		SameVideoWindow:              2 * time.Minute,
		CommentSimilarityThreshold:   0.8,
		ActorNameSimilarityThreshold: 0.8,
		InteractionLimit:             50,
		OriginClusterLimit:           10,
		ActorActivityLimit:           20,
		ActorOriginLimit:             3,
		PairFlagScore:                4,
	}
}
