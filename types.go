package taskrt

import "github.com/rhythmc/taskrt/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the taskrt package for most use cases.

// Task is the one-shot unit of work
type Task = core.Task

// ThreadPool runs tasks on a fixed set of OS threads
type ThreadPool = core.ThreadPool

// ThreadPoolBuilder configures a ThreadPool
type ThreadPoolBuilder = core.ThreadPoolBuilder

// Worker runs tasks in order on one dedicated OS thread
type Worker = core.Worker

// WorkerConfig configures a Worker
type WorkerConfig = core.WorkerConfig

// RingBuffer keeps the most recent values pushed to it
type RingBuffer[T any] = core.RingBuffer[T]

// SpinLock is a busy-waiting mutual exclusion lock
type SpinLock = core.SpinLock

// WorkerPanic is raised by Close when a task panicked on a worker thread
type WorkerPanic = core.WorkerPanic

// Sentinel errors
var (
	ErrPoolClosed   = core.ErrPoolClosed
	ErrWorkerClosed = core.ErrWorkerClosed
	ErrTaskConsumed = core.ErrTaskConsumed
)

// Constructors
var (
	NewTask                = core.NewTask
	NewNamedTask           = core.NewNamedTask
	NewThreadPoolBuilder   = core.NewThreadPoolBuilder
	NamedThreadPoolBuilder = core.NamedThreadPoolBuilder
	NewWorker              = core.NewWorker
	NewNamedWorker         = core.NewNamedWorker
	NewWorkerWithConfig    = core.NewWorkerWithConfig
)

// NewRingBuffer creates a RingBuffer holding at most size values.
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	return core.NewRingBuffer[T](size)
}
