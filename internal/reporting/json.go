package reporting

import (
	"encoding/json"
	"fmt"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
)

// RenderJSON renders a settled pool summary as indented JSON.
func RenderJSON(summary *domain.PoolSummary) ([]byte, error) {
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal pool summary: %w", err)
	}
	return out, nil
}
