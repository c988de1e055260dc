package prometheus

import (
	"time"
)

// RunMetrics holds the metrics of one mcbuilder run.
type RunMetrics struct {
	// Inputs
	InputChains GaugeVec
	InputFiles  GaugeVec

	// Clustering
	Clusters         GaugeVec
	AlignmentsTotal  CounterVec
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec
	TemplatesTotal   GaugeVec
	TemplateSources  GaugeVec

	// Assembly
	StatesExplored    CounterVec
	TerminalStates    CounterVec
	EdgeAttemptsTotal CounterVec
	EdgesRejected     CounterVec
	FitsTotal         CounterVec
	AssemblyDuration  HistogramVec
	ModelChains       GaugeVec
	ModelRMSDSum      GaugeVec

	// Run
	StageDuration HistogramVec
	RunsTotal     CounterVec
}

var (
	DefaultStageDurationBuckets    = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300}
	DefaultAssemblyDurationBuckets = []float64{.01, .1, .5, 1, 5, 10, 30, 60, 300, 1800}
)

// Run outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeWarning = "warning"
	OutcomeError   = "error"
)

// NewRunMetrics registers all run metrics on collector.
func NewRunMetrics(collector MetricsCollector) *RunMetrics {
	m := &RunMetrics{}

	m.InputChains = collector.RegisterGauge("input_chains", "Chains read from the inputs", "kind")
	m.InputFiles = collector.RegisterGauge("input_files", "Input files read", "kind")

	m.Clusters = collector.RegisterGauge("clusters", "Sequence clusters found")
	m.AlignmentsTotal = collector.RegisterCounter("alignments_total", "Pairwise sequence comparisons made by the clusterer")
	m.CacheHitsTotal = collector.RegisterCounter("alignment_cache_hits_total", "Alignment cache hits", "backend")
	m.CacheMissesTotal = collector.RegisterCounter("alignment_cache_misses_total", "Alignment cache misses", "backend")
	m.TemplatesTotal = collector.RegisterGauge("templates", "Interaction templates indexed")
	m.TemplateSources = collector.RegisterGauge("template_sources", "Structure files contributing templates")

	m.StatesExplored = collector.RegisterCounter("states_explored_total", "Assembly states created", "mode")
	m.TerminalStates = collector.RegisterCounter("terminal_states_total", "Assembly states without a valid transition", "mode")
	m.EdgeAttemptsTotal = collector.RegisterCounter("edge_attempts_total", "Template edges tried", "mode")
	m.EdgesRejected = collector.RegisterCounter("edges_rejected_total", "Template edges rejected", "mode", "reason")
	m.FitsTotal = collector.RegisterCounter("superpositions_total", "Distinct superpositions computed", "mode")
	m.AssemblyDuration = collector.RegisterHistogram("assembly_duration_seconds", "Assembly search duration", DefaultAssemblyDurationBuckets, "mode")
	m.ModelChains = collector.RegisterGauge("model_chains", "Chains in the returned model")
	m.ModelRMSDSum = collector.RegisterGauge("model_rmsd_sum", "Sum of superposition RMSDs of the returned model")

	m.StageDuration = collector.RegisterHistogram("stage_duration_seconds", "Pipeline stage duration", DefaultStageDurationBuckets, "stage")
	m.RunsTotal = collector.RegisterCounter("runs_total", "Completed runs", "outcome")

	return m
}

// AssemblySample is the assembly outcome reported to RecordAssembly.
type AssemblySample struct {
	Mode       string
	States     int
	Terminal   int
	Attempts   int
	Fits       int
	Rejections map[string]int
	Chains     int
	RMSDSum    float64
	Elapsed    time.Duration
}

// Helpers

func RecordInputs(metrics *RunMetrics, structureFiles, sequenceFiles, structureChains, sequenceChains int) {
	metrics.InputFiles.WithLabelValues("pdb").Set(float64(structureFiles))
	metrics.InputFiles.WithLabelValues("fasta").Set(float64(sequenceFiles))
	metrics.InputChains.WithLabelValues("structure").Set(float64(structureChains))
	metrics.InputChains.WithLabelValues("sequence").Set(float64(sequenceChains))
}

func RecordClustering(metrics *RunMetrics, clusters, comparisons int) {
	metrics.Clusters.WithLabelValues().Set(float64(clusters))
	metrics.AlignmentsTotal.WithLabelValues().Add(float64(comparisons))
}

func RecordCache(metrics *RunMetrics, backend string, hits, misses int64) {
	metrics.CacheHitsTotal.WithLabelValues(backend).Add(float64(hits))
	metrics.CacheMissesTotal.WithLabelValues(backend).Add(float64(misses))
}

func RecordTemplates(metrics *RunMetrics, templates, sources int) {
	metrics.TemplatesTotal.WithLabelValues().Set(float64(templates))
	metrics.TemplateSources.WithLabelValues().Set(float64(sources))
}

func RecordAssembly(metrics *RunMetrics, s AssemblySample) {
	metrics.StatesExplored.WithLabelValues(s.Mode).Add(float64(s.States))
	metrics.TerminalStates.WithLabelValues(s.Mode).Add(float64(s.Terminal))
	metrics.EdgeAttemptsTotal.WithLabelValues(s.Mode).Add(float64(s.Attempts))
	metrics.FitsTotal.WithLabelValues(s.Mode).Add(float64(s.Fits))
	for reason, n := range s.Rejections {
		metrics.EdgesRejected.WithLabelValues(s.Mode, reason).Add(float64(n))
	}
	metrics.AssemblyDuration.WithLabelValues(s.Mode).Observe(s.Elapsed.Seconds())
	metrics.ModelChains.WithLabelValues().Set(float64(s.Chains))
	metrics.ModelRMSDSum.WithLabelValues().Set(s.RMSDSum)
}

func RecordStage(metrics *RunMetrics, stage string, duration time.Duration) {
	metrics.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func RecordRun(metrics *RunMetrics, outcome string) {
	metrics.RunsTotal.WithLabelValues(outcome).Inc()
}
