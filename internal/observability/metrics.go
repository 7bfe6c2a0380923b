package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics for the analyzer pipeline and
// provides a ready-to-serve /metrics handler. It satisfies the metrics
// recorder interfaces of the optimizer and the event detector.
type Collector struct {
	gatherer prometheus.Gatherer

	RunsTotal    *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
	EventsTotal  *prometheus.CounterVec
	SkippedTotal prometheus.Counter

	PoolSize            prometheus.Gauge
	CoverageRate        prometheus.Gauge
	OptimizerIterations prometheus.Gauge
}

// NewCollector registers analyzer metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analyzer_runs_total",
		Help: "Total number of analysis runs, labeled by outcome.",
	}, []string{"outcome"})
	runs, err := registerCounterVec(reg, runs, "analyzer_runs_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "analyzer_stage_duration_seconds",
		Help:    "Pipeline stage latency in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"stage"})
	durations, err = registerHistogramVec(reg, durations, "analyzer_stage_duration_seconds")
	if err != nil {
		return nil, err
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analyzer_events_total",
		Help: "Measurement events emitted, labeled by event kind.",
	}, []string{"kind"})
	events, err = registerCounterVec(reg, events, "analyzer_events_total")
	if err != nil {
		return nil, err
	}

	skipped, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analyzer_skipped_comparisons_total",
		Help: "Pairwise comparisons skipped because of malformed samples.",
	}), "analyzer_skipped_comparisons_total")
	if err != nil {
		return nil, err
	}

	poolSize, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "analyzer_pool_size",
		Help: "Number of satellites in the most recent coverage plan.",
	}), "analyzer_pool_size")
	if err != nil {
		return nil, err
	}
	coverageRate, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "analyzer_coverage_rate",
		Help: "Coverage rate achieved by the most recent coverage plan.",
	}), "analyzer_coverage_rate")
	if err != nil {
		return nil, err
	}
	iterations, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "analyzer_optimizer_iterations",
		Help: "Greedy iterations taken by the most recent optimization.",
	}), "analyzer_optimizer_iterations")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:            gatherer,
		RunsTotal:           runs,
		RunDuration:         durations,
		EventsTotal:         events,
		SkippedTotal:        skipped,
		PoolSize:            poolSize,
		CoverageRate:        coverageRate,
		OptimizerIterations: iterations,
	}, nil
}

// RecordPlan satisfies core.PlanMetricsRecorder.
func (c *Collector) RecordPlan(poolSize, iterations int, coverageRate float64) {
	if c == nil {
		return
	}
	if c.PoolSize != nil {
		c.PoolSize.Set(float64(poolSize))
	}
	if c.OptimizerIterations != nil {
		c.OptimizerIterations.Set(float64(iterations))
	}
	if c.CoverageRate != nil {
		c.CoverageRate.Set(coverageRate)
	}
}

// IncEvent satisfies measurement.EventMetricsRecorder.
func (c *Collector) IncEvent(kind string) {
	if c == nil || c.EventsTotal == nil {
		return
	}
	c.EventsTotal.WithLabelValues(kind).Inc()
}

// IncSkippedComparison satisfies measurement.EventMetricsRecorder.
func (c *Collector) IncSkippedComparison() {
	if c == nil || c.SkippedTotal == nil {
		return
	}
	c.SkippedTotal.Inc()
}

// ObserveStage records the duration of one pipeline stage in seconds.
func (c *Collector) ObserveStage(stage string, seconds float64) {
	if c == nil || c.RunDuration == nil {
		return
	}
	c.RunDuration.WithLabelValues(stage).Observe(seconds)
}

// IncRun counts a finished run by outcome ("ok", "caveats", "error").
func (c *Collector) IncRun(outcome string) {
	if c == nil || c.RunsTotal == nil {
		return
	}
	c.RunsTotal.WithLabelValues(outcome).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
