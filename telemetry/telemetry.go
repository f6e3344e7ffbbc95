// Package telemetry records store activity as Prometheus metrics and
// OpenTelemetry spans. *Recorder implements entity.Instrumentation.
//
// Metrics collected (namespace "storefront" by default):
//   - storefront_mutations_total: Counter of mutations by key, op and outcome
//   - storefront_mutation_duration_seconds: Histogram of mutation latency by key
//   - storefront_persist_failures_total: Counter of rejected durable writes by key
//   - storefront_observers: Gauge of registered observers by key
//
// Spans come from the global tracer provider, which is a no-op unless the
// binary installs one.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stevemurr/storefront/fault"
)

// Config configures a Recorder.
type Config struct {
	// Namespace is the metrics namespace (default: "storefront").
	Namespace string

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer

	// Buckets are the histogram buckets for mutation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// TracerName names the OpenTelemetry tracer (default: "storefront").
	TracerName string
}

// Option configures a Recorder.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

func defaultConfig() Config {
	return Config{
		Namespace:  "storefront",
		Registry:   prometheus.DefaultRegisterer,
		Buckets:    prometheus.DefBuckets,
		TracerName: "storefront",
	}
}

// Recorder holds the metric collectors and tracer.
type Recorder struct {
	mutations       *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	persistFailures *prometheus.CounterVec
	observers       *prometheus.GaugeVec
	tracer          trace.Tracer
}

// New registers the collectors and resolves the tracer. Registering twice on
// the same registry panics, as with any promauto collector.
func New(opts ...Option) *Recorder {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Recorder{
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "mutations_total",
			Help:      "Total number of store mutations",
		}, []string{"key", "op", "outcome"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "mutation_duration_seconds",
			Help:      "Mutation duration in seconds, including the durable write",
			Buckets:   config.Buckets,
		}, []string{"key"}),

		persistFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "persist_failures_total",
			Help:      "Total number of durable writes the medium rejected",
		}, []string{"key"}),

		observers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "observers",
			Help:      "Number of registered store observers",
		}, []string{"key"}),

		tracer: otel.Tracer(config.TracerName),
	}
}

// Begin starts a span and a timer for one mutation.
func (r *Recorder) Begin(key, op string) func(error) {
	start := time.Now()
	_, span := r.tracer.Start(context.Background(), "storefront."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("storefront.key", key),
			attribute.String("storefront.op", op),
		),
	)
	return func(err error) {
		defer span.End()
		r.duration.WithLabelValues(key).Observe(time.Since(start).Seconds())
		outcome := Outcome(err)
		r.mutations.WithLabelValues(key, op, outcome).Inc()
		if err == nil {
			span.SetStatus(codes.Ok, "")
			return
		}
		if fault.KindOf(err) == fault.KindPersistence {
			r.persistFailures.WithLabelValues(key).Inc()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("storefront.outcome", outcome))
	}
}

// Observers sets the observer gauge for key.
func (r *Recorder) Observers(key string, n int) {
	r.observers.WithLabelValues(key).Set(float64(n))
}

// Outcome maps an error to its metric label: "ok" or the fault kind.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return fault.KindOf(err).String()
}

// ObserverGauge exposes the observer gauge for key.
func (r *Recorder) ObserverGauge(key string) prometheus.Gauge {
	return r.observers.WithLabelValues(key)
}
