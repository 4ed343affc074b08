// Package taskrt is a small task-execution runtime for programs that want to
// push CPU-bound work off the calling goroutine and onto dedicated OS threads.
//
// The building blocks live in the core package:
//
//   - ThreadPool: N worker threads sharing one FIFO queue, built with
//     ThreadPoolBuilder. Tasks start in submission order; they may finish in
//     any order.
//   - Worker: one worker thread fed through a mailbox. Tasks run strictly in
//     submission order.
//   - RingBuffer: a fixed-capacity buffer keeping the most recent values,
//     guarded by a SpinLock.
//
// Every worker goroutine locks itself to its OS thread for its whole life and
// names that thread after the pool or worker, so the threads are visible in
// tools like top -H and perf.
//
// # Quick Start
//
// The package-level functions forward to a process-wide pool named "runtime"
// which is built lazily with one worker per logical CPU:
//
//	taskrt.Submit(func() {
//		compile(module)
//	})
//	for !taskrt.Done() {
//		time.Sleep(time.Millisecond)
//	}
//
// Install a different builder before first use with Configure:
//
//	_ = taskrt.Configure(taskrt.NewThreadPoolBuilder().Workers(2))
//
// # Shutdown
//
// Close on a ThreadPool or Worker stops accepting tasks, runs everything that
// was already accepted and joins the threads. Submitting afterwards panics
// with ErrPoolClosed or ErrWorkerClosed; TrySubmit returns the error instead.
// A panic inside a task terminates the thread it ran on and is re-raised as a
// *WorkerPanic by Close.
//
// # Observability
//
// Pools and workers accept a core.Logger, a core.PanicHandler and a
// core.Metrics sink, keep a short history of executed tasks and expose Stats
// snapshots. The observability/prometheus package exports all of it.
package taskrt
