package prometheus

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/mcbuilder/internal/infrastructure/monitoring/logging"
)

func newTestRunMetrics(t *testing.T) (*RunMetrics, MetricsCollector) {
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "mcbuilder"}, logging.NewNopLogger())
	require.NoError(t, err)
	return NewRunMetrics(c), c
}

func TestNewRunMetrics_AllRegistered(t *testing.T) {
	m, _ := newTestRunMetrics(t)
	require.NotNil(t, m)
	assert.NotNil(t, m.InputChains)
	assert.NotNil(t, m.Clusters)
	assert.NotNil(t, m.EdgesRejected)
	assert.NotNil(t, m.AssemblyDuration)
	assert.NotNil(t, m.RunsTotal)
}

func TestRecordInputsAndClustering(t *testing.T) {
	m, c := newTestRunMetrics(t)
	RecordInputs(m, 2, 1, 5, 2)
	RecordClustering(m, 3, 9)
	RecordTemplates(m, 4, 2)

	expected := `
# HELP mcbuilder_clusters Sequence clusters found
# TYPE mcbuilder_clusters gauge
mcbuilder_clusters 3
# HELP mcbuilder_input_chains Chains read from the inputs
# TYPE mcbuilder_input_chains gauge
mcbuilder_input_chains{kind="sequence"} 2
mcbuilder_input_chains{kind="structure"} 5
# HELP mcbuilder_templates Interaction templates indexed
# TYPE mcbuilder_templates gauge
mcbuilder_templates 4
`
	assert.NoError(t, testutil.GatherAndCompare(c.Gatherer(), strings.NewReader(expected),
		"mcbuilder_clusters", "mcbuilder_input_chains", "mcbuilder_templates"))
}

func TestRecordAssembly(t *testing.T) {
	m, c := newTestRunMetrics(t)
	RecordAssembly(m, AssemblySample{
		Mode:       "greedy",
		States:     4,
		Terminal:   1,
		Attempts:   7,
		Fits:       3,
		Rejections: map[string]int{"clash": 2, "stoichiometry": 1},
		Chains:     4,
		RMSDSum:    0.25,
		Elapsed:    20 * time.Millisecond,
	})

	expected := `
# HELP mcbuilder_edges_rejected_total Template edges rejected
# TYPE mcbuilder_edges_rejected_total counter
mcbuilder_edges_rejected_total{mode="greedy",reason="clash"} 2
mcbuilder_edges_rejected_total{mode="greedy",reason="stoichiometry"} 1
# HELP mcbuilder_model_chains Chains in the returned model
# TYPE mcbuilder_model_chains gauge
mcbuilder_model_chains 4
# HELP mcbuilder_states_explored_total Assembly states created
# TYPE mcbuilder_states_explored_total counter
mcbuilder_states_explored_total{mode="greedy"} 4
`
	assert.NoError(t, testutil.GatherAndCompare(c.Gatherer(), strings.NewReader(expected),
		"mcbuilder_edges_rejected_total", "mcbuilder_model_chains", "mcbuilder_states_explored_total"))

	n, err := testutil.GatherAndCount(c.Gatherer(), "mcbuilder_assembly_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecordCacheStageAndRun(t *testing.T) {
	m, c := newTestRunMetrics(t)
	RecordCache(m, "redis", 5, 2)
	RecordStage(m, "cluster", 30*time.Millisecond)
	RecordRun(m, OutcomeWarning)
	RecordRun(m, OutcomeWarning)

	expected := `
# HELP mcbuilder_alignment_cache_hits_total Alignment cache hits
# TYPE mcbuilder_alignment_cache_hits_total counter
mcbuilder_alignment_cache_hits_total{backend="redis"} 5
# HELP mcbuilder_runs_total Completed runs
# TYPE mcbuilder_runs_total counter
mcbuilder_runs_total{outcome="warning"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(c.Gatherer(), strings.NewReader(expected),
		"mcbuilder_alignment_cache_hits_total", "mcbuilder_runs_total"))

	n, err := testutil.GatherAndCount(c.Gatherer(), "mcbuilder_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
