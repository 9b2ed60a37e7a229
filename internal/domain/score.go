package domain

// AuthenticityScore is the per-video probability pair published by the
// scoring collaborator. Corresponds to authenticity_scores in PostgreSQL.
// HumanProb and SyntheticProb are independent estimators in [0,1] and are not
// required to sum to 1. A video without a score settles at multiplier 1.0.
type AuthenticityScore struct {
	VideoID       string // UNIQUE
	HumanProb     float64
	SyntheticProb float64
	UpdatedAt     int64 // Unix timestamp in milliseconds
}

// Valid reports whether both probabilities are inside [0,1].
func (s *AuthenticityScore) Valid() bool {
	return s.HumanProb >= 0 && s.HumanProb <= 1 &&
		s.SyntheticProb >= 0 && s.SyntheticProb <= 1
}
