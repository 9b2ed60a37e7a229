package domain

// Pool is the settled, immutable distribution record for one period.
// Corresponds to pools in PostgreSQL, unique on period. It only ever changes
// under an explicit forced recomputation, which deletes and replaces the pool
// together with all its shares.
type Pool struct {
	PoolID               int64 // assigned by storage
	Period               Period
	BaseAmount           float64
	TotalEffectiveTokens float64
	Settled              bool
	SettledAt            int64 // Unix timestamp in milliseconds
}

// PoolShare is one creator's portion of a settled pool. Unique on
// (pool_id, creator_id); owned by its pool and cascade-deleted with it.
type PoolShare struct {
	PoolID          int64
	CreatorID       string
	TokenCount      int64   // raw non-fraudulent token count
	EffectiveTokens float64 // raw count scaled by authenticity multipliers
	SharePct        float64 // fraction of the pool's total effective tokens
	PayoutAmount    float64 // rounded to 2 decimals, half to even
}

// PoolSummary is the read model returned by settlement and the reader:
// the pool plus its shares ordered by payout descending.
type PoolSummary struct {
	PoolID               int64       `json:"pool_id"`
	Period               Period      `json:"period"`
	BaseAmount           float64     `json:"base_amount"`
	TotalEffectiveTokens float64     `json:"total_effective_tokens"`
	SettledAt            int64       `json:"settled_at"`
	Shares               []PoolShare `json:"shares"`
}
