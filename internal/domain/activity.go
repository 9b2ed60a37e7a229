package domain

// Source classifies how an appreciation token was earned before it was spent.
type Source string

const (
	// SourceTap is a direct viewer tap on a video.
	SourceTap Source = "tap"
	// SourceAdBoost is a token granted through an ad watch.
	SourceAdBoost Source = "ad_boost"
)

// TokenActivity is one append-only token-spend record from the activity
// ledger. Corresponds to token_activity in ClickHouse. Immutable once written;
// the settlement core only ever reads a time-windowed slice.
type TokenActivity struct {
	ActivityID        string  // PRIMARY KEY, deterministic hash
	CreatorID         string  // creator who owns the video
	VideoID           string  // video the token was spent on
	ActorID           *string // spending viewer (nil for anonymous)
	OriginFingerprint string  // opaque origin-network hash, never a raw address
	UsedAt            int64   // Unix timestamp in milliseconds, UTC
	Source            Source  // tap | ad_boost

	// Optional collaborator signals consumed by fraud detection. Either may be
	// empty; detection degrades to the checks that still have data.
	ActorName string
	Comments  []string
}
