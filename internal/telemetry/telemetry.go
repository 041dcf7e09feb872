// Package telemetry provides OpenTelemetry instrumentation for the feedback classifier.
// It exports Prometheus metrics and provides tracing capabilities.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "feedback-classifier"

// Outcome labels shared by the load and training counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds all feedback classifier Prometheus metrics
type Metrics struct {
	// Engine metrics
	Classifications        *prometheus.CounterVec
	Fallbacks              *prometheus.CounterVec
	ClassificationDuration prometheus.Histogram
	RulesApplied           prometheus.Counter

	// Registry metrics
	ModelLoads         *prometheus.CounterVec
	ModelCacheHits     prometheus.Counter
	TrainingRuns       *prometheus.CounterVec
	TrainingDuration   prometheus.Histogram
	UsageWriteFailures prometheus.Counter

	// Processor metrics
	BatchSize         prometheus.Histogram
	FeedbackCommitted *prometheus.CounterVec
	FeedbackFailed    prometheus.Counter
	ActiveWorkers     prometheus.Gauge
	ThrottleCount     prometheus.Counter
	PollerLag         prometheus.Histogram

	// Maintenance metrics
	MaintenanceActions *prometheus.CounterVec
}

// Provider wraps telemetry providers. Every Provider owns its Prometheus registry, so
// tests can build as many as they need.
type Provider struct {
	Tracer   trace.Tracer
	Metrics  *Metrics
	Registry *prometheus.Registry
}

// NewProvider initializes telemetry with Prometheus metrics
func NewProvider() *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Provider{
		Tracer:   otel.Tracer(serviceName),
		Metrics:  initMetrics(promauto.With(reg)),
		Registry: reg,
	}
}

// Handler returns the Prometheus HTTP handler for /metrics endpoint
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{Registry: p.Registry})
}

func initMetrics(f promauto.Factory) *Metrics {
	m := &Metrics{}
	initEngineMetrics(f, m)
	initRegistryMetrics(f, m)
	initProcessorMetrics(f, m)
	m.MaintenanceActions = f.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_maintenance_actions_total",
		Help: "Model maintenance actions taken by the hourly check",
	}, []string{"action"})
	return m
}

func initEngineMetrics(f promauto.Factory, m *Metrics) {
	m.Classifications = f.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_classifications_total",
		Help: "Classifications by the strategy whose answer was kept",
	}, []string{"strategy"})

	m.Fallbacks = f.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_classification_fallbacks_total",
		Help: "Times the statistical strategy was skipped or rejected",
	}, []string{"reason"})

	m.ClassificationDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedback_classification_duration_seconds",
		Help:    "Time to classify a single feedback text",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	})

	m.RulesApplied = f.NewCounter(prometheus.CounterOpts{
		Name: "feedback_keyword_rules_applied_total",
		Help: "Classifications overridden by an operator keyword rule",
	})
}

func initRegistryMetrics(f promauto.Factory, m *Metrics) {
	m.ModelLoads = f.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_model_loads_total",
		Help: "Model blob loads into the in-process cache",
	}, []string{"outcome"})

	m.ModelCacheHits = f.NewCounter(prometheus.CounterOpts{
		Name: "feedback_model_cache_hits_total",
		Help: "Active model lookups served from cache",
	})

	m.TrainingRuns = f.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_model_training_runs_total",
		Help: "Model training runs",
	}, []string{"outcome"})

	m.TrainingDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedback_model_training_duration_seconds",
		Help:    "Wall time of a training run",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})

	m.UsageWriteFailures = f.NewCounter(prometheus.CounterOpts{
		Name: "feedback_model_usage_write_failures_total",
		Help: "Model usage counter updates that failed",
	})
}

func initProcessorMetrics(f promauto.Factory, m *Metrics) {
	m.BatchSize = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedback_processor_batch_size",
		Help:    "Number of feedback items per batch",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 200, 500},
	})

	m.FeedbackCommitted = f.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_processor_committed_total",
		Help: "Feedback fields written back by the processor",
	}, []string{"field"})

	m.FeedbackFailed = f.NewCounter(prometheus.CounterOpts{
		Name: "feedback_processor_failed_total",
		Help: "Feedback items whose classification could not be stored",
	})

	m.ActiveWorkers = f.NewGauge(prometheus.GaugeOpts{
		Name: "feedback_processor_active_workers",
		Help: "Currently active worker goroutines",
	})

	m.ThrottleCount = f.NewCounter(prometheus.CounterOpts{
		Name: "feedback_processor_throttle_total",
		Help: "Writes delayed by the rate limiter",
	})

	m.PollerLag = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedback_processor_poller_lag_seconds",
		Help:    "Time between feedback submission and classification start",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
	})
}

// RecordClassification records which strategy answered and how long it took.
func (p *Provider) RecordClassification(_ context.Context, strategy string, duration time.Duration) {
	if p == nil {
		return
	}
	p.Metrics.Classifications.WithLabelValues(strategy).Inc()
	p.Metrics.ClassificationDuration.Observe(duration.Seconds())
}

// RecordFallback records why the statistical strategy did not answer.
func (p *Provider) RecordFallback(_ context.Context, reason string) {
	if p == nil {
		return
	}
	p.Metrics.Fallbacks.WithLabelValues(reason).Inc()
}

// RecordRuleApplied counts a keyword rule override.
func (p *Provider) RecordRuleApplied(_ context.Context) {
	if p == nil {
		return
	}
	p.Metrics.RulesApplied.Inc()
}

// RecordModelLoad records a cache fill attempt.
func (p *Provider) RecordModelLoad(_ context.Context, success bool) {
	if p == nil {
		return
	}
	p.Metrics.ModelLoads.WithLabelValues(outcome(success)).Inc()
}

// RecordCacheHit records an active model lookup served from cache.
func (p *Provider) RecordCacheHit(_ context.Context) {
	if p == nil {
		return
	}
	p.Metrics.ModelCacheHits.Inc()
}

// RecordTraining records a finished training run.
func (p *Provider) RecordTraining(_ context.Context, success bool, duration time.Duration) {
	if p == nil {
		return
	}
	p.Metrics.TrainingRuns.WithLabelValues(outcome(success)).Inc()
	p.Metrics.TrainingDuration.Observe(duration.Seconds())
}

// RecordUsageWriteFailure counts a failed usage counter update.
func (p *Provider) RecordUsageWriteFailure(_ context.Context) {
	if p == nil {
		return
	}
	p.Metrics.UsageWriteFailures.Inc()
}

// RecordBatchSize records the size of a processed batch
func (p *Provider) RecordBatchSize(size int) {
	if p == nil {
		return
	}
	p.Metrics.BatchSize.Observe(float64(size))
}

// RecordCommit counts a feedback field written back (category or priority).
func (p *Provider) RecordCommit(_ context.Context, field string) {
	if p == nil {
		return
	}
	p.Metrics.FeedbackCommitted.WithLabelValues(field).Inc()
}

// RecordFeedbackFailure counts a feedback item that could not be stored.
func (p *Provider) RecordFeedbackFailure(_ context.Context) {
	if p == nil {
		return
	}
	p.Metrics.FeedbackFailed.Inc()
}

// RecordPollerLag records the freshness lag
func (p *Provider) RecordPollerLag(_ context.Context, createdAt time.Time) {
	if p == nil {
		return
	}
	p.Metrics.PollerLag.Observe(time.Since(createdAt).Seconds())
}

// RecordMaintenanceAction counts an action taken by the maintenance check.
func (p *Provider) RecordMaintenanceAction(_ context.Context, action string) {
	if p == nil {
		return
	}
	p.Metrics.MaintenanceActions.WithLabelValues(action).Inc()
}

// SetActiveWorkers sets the current active worker count
func (p *Provider) SetActiveWorkers(count int) {
	if p == nil {
		return
	}
	p.Metrics.ActiveWorkers.Set(float64(count))
}

// IncrementThrottleCount increments the throttle counter
func (p *Provider) IncrementThrottleCount() {
	if p == nil {
		return
	}
	p.Metrics.ThrottleCount.Inc()
}

// StartSpan starts a new trace span. A nil Provider returns a no-op span.
// The caller is responsible for ending the span with span.End().
//
//nolint:spancheck // Caller is responsible for ending the span
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if p == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return p.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func outcome(success bool) string {
	if success {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
