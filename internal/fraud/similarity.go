package fraud

import "strings"

// spamLexicon is the fixed list of promotional/spam phrases matched against
// comment text. Matching is case-insensitive substring containment.
var spamLexicon = []string{
	"free gift", "click here", "visit now", "buy now",
	"subscribe", "win", "prize", "claim reward",
	"whatsapp", "telegram", "dm me", "contact me",
	"check my profile", "follow me", "bitcoin", "crypto",
}

// isSpamComment reports whether a comment contains any spam phrase.
func isSpamComment(comment string) bool {
	if comment == "" {
		return false
	}
	lower := strings.ToLower(comment)
	for _, phrase := range spamLexicon {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// similarity computes a Ratcliff/Obershelp ratio between two strings,
// case-insensitive: 2*M/T where M is the total length of matching blocks and
// T the combined length. Returns 0 when either string is empty, so missing
// signals degrade instead of matching.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	la := strings.ToLower(a)
	lb := strings.ToLower(b)
	if la == lb {
		return 1
	}
	m := matchingChars(la, lb)
	return 2 * float64(m) / float64(len(la)+len(lb))
}

// matchingChars sums matching block lengths: find the longest common
// substring, then recurse into the pieces on each side of it.
func matchingChars(a, b string) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingChars(a[:ai], b[:bi]) +
		matchingChars(a[ai+size:], b[bi+size:])
}

// longestCommonSubstring returns the start offsets and length of the longest
// common substring of a and b. Standard dynamic programming over one row.
func longestCommonSubstring(a, b string) (ai, bi, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > size {
					size = curr[j]
					ai = i - size
					bi = j - size
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}

	return ai, bi, size
}
