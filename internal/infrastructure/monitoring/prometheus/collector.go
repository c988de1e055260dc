// Package prometheus records the metrics of one mcbuilder run on a private
// registry.  A run is a batch job, so nothing is scraped: after the run the
// metrics are written to a node-exporter textfile, pushed to a Pushgateway,
// or both.
package prometheus

import (
	"context"
	stderrors "errors"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/turtacn/mcbuilder/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mcbuilder/pkg/errors"
)

// MetricsCollector registers run metrics and exports them once the run is
// over.
type MetricsCollector interface {
	RegisterCounter(name, help string, labels ...string) CounterVec
	RegisterGauge(name, help string, labels ...string) GaugeVec
	// RegisterHistogram uses prometheus.DefBuckets when buckets is nil.
	RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec
	Gatherer() prometheus.Gatherer
	// WriteToTextfile writes every registered metric to path atomically.
	WriteToTextfile(path string) error
	// Push replaces the metrics of job and grouping on the Pushgateway at url.
	Push(ctx context.Context, url, job string, grouping map[string]string) error
}

type CounterVec interface {
	WithLabelValues(lvs ...string) Counter
}

type Counter interface {
	Inc()
	Add(delta float64)
}

type GaugeVec interface {
	WithLabelValues(lvs ...string) Gauge
}

type Gauge interface {
	Set(value float64)
}

type HistogramVec interface {
	WithLabelValues(lvs ...string) Histogram
}

type Histogram interface {
	Observe(value float64)
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Namespace            string
	EnableProcessMetrics bool
	EnableGoMetrics      bool
}

type runCollector struct {
	registry  *prometheus.Registry
	namespace string
	logger    logging.Logger
}

// NewMetricsCollector creates a MetricsCollector backed by its own registry.
func NewMetricsCollector(cfg CollectorConfig, logger logging.Logger) (MetricsCollector, error) {
	if cfg.Namespace == "" {
		return nil, errors.NewValidationError("namespace", "metrics namespace is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	registry := prometheus.NewRegistry()
	if cfg.EnableProcessMetrics {
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: cfg.Namespace}))
	}
	if cfg.EnableGoMetrics {
		registry.MustRegister(collectors.NewGoCollector())
	}
	return &runCollector{registry: registry, namespace: cfg.Namespace, logger: logger}, nil
}

func (c *runCollector) Gatherer() prometheus.Gatherer {
	return c.registry
}

func (c *runCollector) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputWriteFailed, "failed to write metrics").WithDetail(path)
	}
	return nil
}

func (c *runCollector) Push(ctx context.Context, url, job string, grouping map[string]string) error {
	p := push.New(url, job).Gatherer(c.registry)
	keys := make([]string, 0, len(grouping))
	for k := range grouping {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p = p.Grouping(k, grouping[k])
	}
	if err := p.PushContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to push metrics").WithDetail(url)
	}
	return nil
}

// register adds col to the registry.  Registering the same metric twice
// yields the first collector; a conflicting definition yields nil.
func (c *runCollector) register(name string, col prometheus.Collector) prometheus.Collector {
	err := c.registry.Register(col)
	if err == nil {
		return col
	}
	var are prometheus.AlreadyRegisteredError
	if stderrors.As(err, &are) {
		return are.ExistingCollector
	}
	c.logger.Error("failed to register metric", logging.String("name", name), logging.Err(err))
	return nil
}

func (c *runCollector) RegisterCounter(name, help string, labels ...string) CounterVec {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: c.namespace, Name: name, Help: help}, labels)
	if v, ok := c.register(name, vec).(*prometheus.CounterVec); ok {
		return counterVec{v}
	}
	return noopCounterVec{}
}

func (c *runCollector) RegisterGauge(name, help string, labels ...string) GaugeVec {
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: c.namespace, Name: name, Help: help}, labels)
	if v, ok := c.register(name, vec).(*prometheus.GaugeVec); ok {
		return gaugeVec{v}
	}
	return noopGaugeVec{}
}

func (c *runCollector) RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec {
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
	if v, ok := c.register(name, vec).(*prometheus.HistogramVec); ok {
		return histogramVec{v}
	}
	return noopHistogramVec{}
}

type counterVec struct{ vec *prometheus.CounterVec }

func (v counterVec) WithLabelValues(lvs ...string) Counter { return v.vec.WithLabelValues(lvs...) }

type gaugeVec struct{ vec *prometheus.GaugeVec }

func (v gaugeVec) WithLabelValues(lvs ...string) Gauge { return v.vec.WithLabelValues(lvs...) }

type histogramVec struct{ vec *prometheus.HistogramVec }

func (v histogramVec) WithLabelValues(lvs ...string) Histogram { return v.vec.WithLabelValues(lvs...) }

// noop metrics stand in for metrics that failed to register.
type noop struct{}

func (noop) Inc()            {}
func (noop) Add(float64)     {}
func (noop) Set(float64)     {}
func (noop) Observe(float64) {}

type noopCounterVec struct{}

func (noopCounterVec) WithLabelValues(...string) Counter { return noop{} }

type noopGaugeVec struct{}

func (noopGaugeVec) WithLabelValues(...string) Gauge { return noop{} }

type noopHistogramVec struct{}

func (noopHistogramVec) WithLabelValues(...string) Histogram { return noop{} }
