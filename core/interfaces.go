package core

import (
	"fmt"
	"os"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called on the worker thread when a task panics, before the
// thread exits. The panic is raised again when the owning pool or worker is closed.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - runnerName: The name of the pool or worker
	// - threadName: The name of the worker thread that ran the task
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(runnerName, threadName string, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler prints panic information to stderr.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stderr.
func (h *DefaultPanicHandler) HandlePanic(runnerName, threadName string, panicInfo any, stackTrace []byte) {
	fmt.Fprintf(os.Stderr, "[%s @ %s] Panic: %v\nStack trace:\n%s", threadName, runnerName, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting task execution metrics.
// Methods should be non-blocking and fast; they run on submitting goroutines
// and worker threads.
type Metrics interface {
	// RecordTaskDuration records how long a task took to execute.
	RecordTaskDuration(runnerName string, duration time.Duration)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(runnerName string, panicInfo any)

	// RecordQueueDepth records the queue depth observed right after a submission.
	RecordQueueDepth(runnerName string, depth int)

	// RecordTaskRejected records that a submission was refused.
	RecordTaskRejected(runnerName string, reason string)
}

// NilMetrics provides a no-op metrics implementation.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskDuration(runnerName string, duration time.Duration) {}
func (m *NilMetrics) RecordTaskPanic(runnerName string, panicInfo any)             {}
func (m *NilMetrics) RecordQueueDepth(runnerName string, depth int)                {}
func (m *NilMetrics) RecordTaskRejected(runnerName string, reason string)          {}

// =============================================================================
// RunnerConfig: hooks shared by ThreadPool and Worker
// =============================================================================

// RunnerConfig holds the observability hooks of a ThreadPool or Worker.
// Nil fields fall back to the defaults of DefaultRunnerConfig.
type RunnerConfig struct {
	// Logger receives lifecycle, rejection and panic events. Defaults to NoOpLogger.
	Logger Logger

	// PanicHandler is called when a task panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics records task execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// HistoryCapacity bounds the execution history kept for RecentTasks.
	// Values below one select defaultTaskHistoryCapacity.
	HistoryCapacity int
}

// DefaultRunnerConfig returns a config with default hooks.
func DefaultRunnerConfig() *RunnerConfig {
	return &RunnerConfig{
		Logger:          NewNoOpLogger(),
		PanicHandler:    &DefaultPanicHandler{},
		Metrics:         &NilMetrics{},
		HistoryCapacity: defaultTaskHistoryCapacity,
	}
}

func (c *RunnerConfig) withDefaults() RunnerConfig {
	out := *DefaultRunnerConfig()
	if c == nil {
		return out
	}
	if c.Logger != nil {
		out.Logger = c.Logger
	}
	if c.PanicHandler != nil {
		out.PanicHandler = c.PanicHandler
	}
	if c.Metrics != nil {
		out.Metrics = c.Metrics
	}
	if c.HistoryCapacity > 0 {
		out.HistoryCapacity = c.HistoryCapacity
	}
	return out
}
