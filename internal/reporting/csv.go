package reporting

import (
	"fmt"
	"strings"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
)

// RenderCSV renders a settled pool's shares as CSV string. Row order follows
// the summary: payout descending, creator id ascending on ties.
func RenderCSV(summary *domain.PoolSummary) string {
	var sb strings.Builder

	// Header
	sb.WriteString("creator_id,token_count,effective_tokens,share_pct,payout_amount\n")

	// Rows
	for _, s := range summary.Shares {
		sb.WriteString(fmt.Sprintf("%s,%d,%.6f,%.6f,%.2f\n",
			s.CreatorID,
			s.TokenCount,
			s.EffectiveTokens,
			s.SharePct,
			s.PayoutAmount,
		))
	}

	return sb.String()
}
