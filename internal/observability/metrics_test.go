package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_NamespacePrefixesMetricNames(t *testing.T) {
	m := Init("creatorpay")
	require.NotNil(t, m)
	assert.Same(t, m, DefaultMetrics)

	RecordActivitiesStored(3)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["creatorpay_ingestion_activities_stored_total"],
		"metrics should carry the configured namespace")
	assert.False(t, names["pokerdots_ingestion_activities_stored_total"],
		"default namespace should not appear once configured")
}

func TestInit_FirstCallWins(t *testing.T) {
	first := Init("creatorpay")
	assert.Same(t, first, Init("other"))
}
