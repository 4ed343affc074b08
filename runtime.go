package taskrt

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rhythmc/taskrt/core"
)

// RuntimePoolName names the process-wide pool and prefixes its worker threads.
const RuntimePoolName = "runtime"

// ErrRuntimeStarted is returned by Configure once the runtime pool exists.
var ErrRuntimeStarted = errors.New("taskrt: runtime already started")

// =============================================================================
// Runtime Thread Pool (Singleton)
// =============================================================================

var (
	runtimePool    atomic.Pointer[core.ThreadPool]
	runtimeMu      sync.Mutex
	runtimeBuilder *core.ThreadPoolBuilder
)

// Pool returns the runtime thread pool, building it on first use with one
// worker per logical CPU unless Configure installed another builder.
func Pool() *core.ThreadPool {
	if p := runtimePool.Load(); p != nil {
		return p
	}

	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if p := runtimePool.Load(); p != nil {
		return p
	}
	b := core.NewThreadPoolBuilder()
	if runtimeBuilder != nil {
		// Copy so the caller's builder keeps its own name.
		configured := *runtimeBuilder
		b = &configured
	}
	p := b.Name(RuntimePoolName).Build()
	runtimePool.Store(p)
	return p
}

// Configure installs the builder used to create the runtime pool. The pool
// is built from a copy of b and is always named RuntimePoolName; b itself is
// not modified. A nil builder restores the defaults.
// It returns ErrRuntimeStarted once the pool has been built.
func Configure(b *core.ThreadPoolBuilder) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if runtimePool.Load() != nil {
		return ErrRuntimeStarted
	}
	runtimeBuilder = b
	return nil
}

// Shutdown closes the runtime pool, if any, after it drains. The next use
// builds a fresh pool from the default builder, including uses by tasks still
// draining from the old pool. Like ThreadPool.Close it re-panics a
// *core.WorkerPanic raised on a runtime worker.
func Shutdown() {
	runtimeMu.Lock()
	runtimeBuilder = nil
	p := runtimePool.Swap(nil)
	runtimeMu.Unlock()

	// Closed outside the lock: draining tasks may call back into the runtime.
	if p != nil {
		p.Close()
	}
}

// Submit queues fn on the runtime pool.
func Submit(fn func()) {
	Pool().Submit(fn)
}

// SubmitRaw queues task on the runtime pool.
func SubmitRaw(task *core.Task) {
	Pool().SubmitRaw(task)
}

// TrySubmit queues fn on the runtime pool, returning core.ErrPoolClosed
// instead of panicking when the pool is closing.
func TrySubmit(fn func()) error {
	return Pool().TrySubmit(fn)
}

// Done reports whether the runtime pool has no queued or running task.
func Done() bool {
	return Pool().Done()
}

// WaitIdle blocks until the runtime pool is idle or ctx is done.
func WaitIdle(ctx context.Context) error {
	return Pool().WaitIdle(ctx)
}

// Stats returns a snapshot of the runtime pool.
func Stats() core.PoolStats {
	return Pool().Stats()
}
