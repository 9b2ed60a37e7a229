package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
)

// RenderMarkdown renders a settlement run as a Markdown report for ops
// review. The fraud report may be nil (read-only summaries).
func RenderMarkdown(summary *domain.PoolSummary, fraudReport *domain.FraudReport) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Settlement Report: %s\n\n", summary.Period))
	sb.WriteString(fmt.Sprintf("Settled: %s\n\n",
		time.UnixMilli(summary.SettledAt).UTC().Format(time.RFC3339)))

	// Pool Summary
	sb.WriteString("## Pool\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Pool ID | %d |\n", summary.PoolID))
	sb.WriteString(fmt.Sprintf("| Base Amount | %.2f |\n", summary.BaseAmount))
	sb.WriteString(fmt.Sprintf("| Total Effective Tokens | %.6f |\n", summary.TotalEffectiveTokens))
	sb.WriteString(fmt.Sprintf("| Creators Paid | %d |\n", len(summary.Shares)))
	sb.WriteString("\n")

	// Shares
	sb.WriteString("## Shares\n\n")
	if len(summary.Shares) > 0 {
		sb.WriteString("| Creator | Tokens | Effective | Share | Payout |\n")
		sb.WriteString("|---------|--------|-----------|-------|--------|\n")
		for _, s := range summary.Shares {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.6f | %.4f%% | %.2f |\n",
				s.CreatorID, s.TokenCount, s.EffectiveTokens, s.SharePct*100, s.PayoutAmount))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No eligible activity in window.\n\n")
	}

	// Fraud Analysis
	if fraudReport != nil && fraudReport.Total > 0 {
		sb.WriteString("## Fraud Analysis\n\n")
		sb.WriteString(fmt.Sprintf("Analyzed %d activities, excluded %d (%.2f%%)\n\n",
			fraudReport.Total, len(fraudReport.ExcludedIDs), fraudReport.ExclusionPct))
		if len(fraudReport.ByCategory) > 0 {
			sb.WriteString("| Category | Flagged |\n")
			sb.WriteString("|----------|--------|\n")
			for _, category := range []domain.FraudCategory{
				domain.FraudOriginClustering,
				domain.FraudTimeProximity,
				domain.FraudPatternAbuse,
			} {
				if ids := fraudReport.ByCategory[category]; len(ids) > 0 {
					sb.WriteString(fmt.Sprintf("| %s | %d |\n", category, len(ids)))
				}
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
