package idhash

import (
	"crypto/sha256"

	"github.com/mr-tron/base58"
)

// ComputeOriginFingerprint derives the opaque origin-network fingerprint
// stored on ledger activity. The raw network address never leaves this
// function: it is salted, hashed with SHA256, and base58-encoded so the
// fingerprint stays comparable (clustering, pairwise scans) without being
// reversible to an address.
func ComputeOriginFingerprint(rawAddress, salt string) string {
	hash := sha256.Sum256([]byte(salt + "|" + rawAddress))
	return base58.Encode(hash[:])
}
