package domain

// Engine-wide multiplier defaults applied when no rule is configured for a
// period.
const (
	DefaultHumanMultiplier     = 1.2
	DefaultSyntheticMultiplier = 0.7
)

// CompensationRule holds the per-period multipliers applied to human- vs
// synthetic-attributed engagement. Corresponds to compensation_rules in
// PostgreSQL, unique on period. Upsert replaces in place; no history is kept.
type CompensationRule struct {
	Period              Period
	HumanMultiplier     float64
	SyntheticMultiplier float64
	// DPVBase is the informational base value per effective token. It does not
	// participate in settlement math.
	DPVBase float64
}

// Multipliers is the resolved (rule or default) multiplier pair for a period.
type Multipliers struct {
	Human     float64
	Synthetic float64
}

// DefaultMultipliers returns the engine-wide fallback pair.
func DefaultMultipliers() Multipliers {
	return Multipliers{Human: DefaultHumanMultiplier, Synthetic: DefaultSyntheticMultiplier}
}

// ForScore picks the multiplier for a video's authenticity score: the class
// with the higher probability wins, ties resolve toward human. A nil score
// means the video is unscored and settles neutrally.
func (m Multipliers) ForScore(score *AuthenticityScore) float64 {
	if score == nil {
		return 1.0
	}
	if score.HumanProb >= score.SyntheticProb {
		return m.Human
	}
	return m.Synthetic
}
