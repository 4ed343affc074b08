// Package prometheus exports taskrt pool and worker telemetry to Prometheus.
package prometheus

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rhythmc/taskrt/core"
)

// DefaultNamespace prefixes every metric unless another namespace is given.
const DefaultNamespace = "taskrt"

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors. Install it
// with ThreadPoolBuilder.Metrics or WorkerConfig.Metrics.
type MetricsExporter struct {
	taskDurationSeconds *prom.HistogramVec
	taskPanicTotal      *prom.CounterVec
	taskRejectedTotal   *prom.CounterVec
	queueDepth          *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
// Registering twice on the same registry reuses the existing collectors.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	namespace = normalizeLabel(namespace, DefaultNamespace)
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		// Compile-sized tasks: 100us to ~6.5s.
		buckets = prom.ExponentialBuckets(0.0001, 4, 9)
	}

	m := &MetricsExporter{
		taskDurationSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Task execution duration in seconds.",
			Buckets:   buckets,
		}, []string{"runner"}),
		taskPanicTotal: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "task_panic_total",
			Help:      "Total number of tasks that panicked.",
		}, []string{"runner"}),
		taskRejectedTotal: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "task_rejected_total",
			Help:      "Total number of submissions refused.",
		}, []string{"runner", "reason"}),
		queueDepth: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Queue depth observed at the last submission.",
		}, []string{"runner"}),
	}

	var err error
	if m.taskDurationSeconds, err = registerCollector(reg, m.taskDurationSeconds); err != nil {
		return nil, err
	}
	if m.taskPanicTotal, err = registerCollector(reg, m.taskPanicTotal); err != nil {
		return nil, err
	}
	if m.taskRejectedTotal, err = registerCollector(reg, m.taskRejectedTotal); err != nil {
		return nil, err
	}
	if m.queueDepth, err = registerCollector(reg, m.queueDepth); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordTaskDuration observes how long a task ran.
func (m *MetricsExporter) RecordTaskDuration(runnerName string, duration time.Duration) {
	if m == nil {
		return
	}
	m.taskDurationSeconds.WithLabelValues(normalizeLabel(runnerName, "unknown")).Observe(duration.Seconds())
}

// RecordTaskPanic counts a task panic.
func (m *MetricsExporter) RecordTaskPanic(runnerName string, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(normalizeLabel(runnerName, "unknown")).Inc()
}

// RecordQueueDepth sets the queue depth gauge.
func (m *MetricsExporter) RecordQueueDepth(runnerName string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(normalizeLabel(runnerName, "unknown")).Set(float64(depth))
}

// RecordTaskRejected counts a refused submission.
func (m *MetricsExporter) RecordTaskRejected(runnerName string, reason string) {
	if m == nil {
		return
	}
	m.taskRejectedTotal.WithLabelValues(normalizeLabel(runnerName, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
