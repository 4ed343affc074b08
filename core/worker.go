package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

type signalKind int

const (
	signalRun signalKind = iota
	signalClose
)

type workerSignal struct {
	kind signalKind
	task *Task
}

// mailbox is an unbounded FIFO channel of worker signals. Once a close signal
// has been sent, further sends fail.
type mailbox struct {
	mu     sync.Mutex
	ready  *sync.Cond
	items  *queue.Queue
	closed bool
}

func newMailbox() *mailbox {
	m := &mailbox{items: queue.New()}
	m.ready = sync.NewCond(&m.mu)
	return m
}

func (m *mailbox) send(sig workerSignal) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrWorkerClosed
	}
	m.items.Add(sig)
	if sig.kind == signalClose {
		m.closed = true
	}
	m.mu.Unlock()
	m.ready.Signal()
	return nil
}

func (m *mailbox) recv() workerSignal {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.items.Length() == 0 {
		m.ready.Wait()
	}
	return m.items.Remove().(workerSignal)
}

// seal refuses further sends and reports how many tasks were left unread.
func (m *mailbox) seal() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	lost := 0
	for i := 0; i < m.items.Length(); i++ {
		if m.items.Get(i).(workerSignal).kind == signalRun {
			lost++
		}
	}
	return lost
}

// WorkerConfig configures a Worker. The zero value is valid.
type WorkerConfig struct {
	RunnerConfig

	// Name of the worker thread. Defaults to "worker{id}".
	Name string

	// IDSource numbers unnamed workers. Defaults to a process-wide counter.
	IDSource IDSource
}

// Worker runs submitted tasks one at a time, in submission order, on a single
// dedicated OS thread fed through a mailbox.
//
// Close enqueues a close signal behind everything already submitted, so every
// task accepted before Close runs before the thread exits.
type Worker struct {
	name     string
	mailbox  *mailbox
	queued   atomic.Int64
	observer *taskObserver
	logger   Logger

	tid  int
	done chan struct{}

	// Written by the worker goroutine before done is closed.
	panic *WorkerPanic

	active    atomic.Int32
	rejected  atomic.Int64
	panicked  atomic.Int64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewWorker spawns an anonymous worker thread.
func NewWorker() *Worker {
	return NewWorkerWithConfig(nil)
}

// NewNamedWorker spawns a worker thread called name.
func NewNamedWorker(name string) *Worker {
	return NewWorkerWithConfig(&WorkerConfig{Name: name})
}

// NewWorkerWithConfig spawns a worker thread configured by cfg. A nil cfg
// selects the defaults.
func NewWorkerWithConfig(cfg *WorkerConfig) *Worker {
	if cfg == nil {
		cfg = &WorkerConfig{}
	}

	name := cfg.Name
	if name == "" {
		ids := cfg.IDSource
		if ids == nil {
			ids = defaultWorkerIDs
		}
		name = fmt.Sprintf("worker%d", ids.Next())
	}

	config := cfg.RunnerConfig.withDefaults()
	w := &Worker{
		name:     name,
		mailbox:  newMailbox(),
		observer: newTaskObserver(name, RunnerTypeWorker, config),
		logger:   config.Logger,
		done:     make(chan struct{}),
	}

	started := make(chan struct{})
	go w.run(started)
	<-started

	w.logger.Debug("worker started", F("worker", name))
	return w
}

// Submit queues fn for asynchronous execution.
// It panics with ErrWorkerClosed once the worker is closed.
func (w *Worker) Submit(fn func()) {
	w.SubmitRaw(NewTask(fn))
}

// SubmitRaw queues task for asynchronous execution.
// It panics with ErrWorkerClosed once the worker is closed.
func (w *Worker) SubmitRaw(task *Task) {
	if err := w.TrySubmitRaw(task); err != nil {
		panic(err)
	}
}

// TrySubmit is Submit returning ErrWorkerClosed instead of panicking.
func (w *Worker) TrySubmit(fn func()) error {
	return w.TrySubmitRaw(NewTask(fn))
}

// TrySubmitRaw is SubmitRaw returning ErrWorkerClosed instead of panicking.
func (w *Worker) TrySubmitRaw(task *Task) error {
	w.queued.Add(1)
	if err := w.mailbox.send(workerSignal{kind: signalRun, task: task}); err != nil {
		w.queued.Add(-1)
		w.rejected.Add(1)
		w.observer.reject("closed")
		return err
	}
	w.observer.config.Metrics.RecordQueueDepth(w.name, int(w.queued.Load()))
	return nil
}

// Done reports whether every submitted task has finished. Advisory only.
func (w *Worker) Done() bool {
	return w.queued.Load() == 0
}

// WaitIdle polls Done until it reports true or ctx is done.
func (w *Worker) WaitIdle(ctx context.Context) error {
	return waitIdle(ctx, w.Done)
}

// Close runs every task submitted before it, then joins the worker thread.
// If a task panicked, Close panics with the *WorkerPanic after the join.
// Subsequent calls return immediately.
func (w *Worker) Close() {
	var failure *WorkerPanic
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		// Fails only when the thread already exited after a panic.
		_ = w.mailbox.send(workerSignal{kind: signalClose})
		<-w.done
		failure = w.panic
		w.logger.Debug("worker closed", F("worker", w.name))
	})
	if failure != nil {
		panic(failure)
	}
}

func (w *Worker) run(started chan<- struct{}) {
	defer close(w.done)
	w.tid = bindOSThread(w.name, w.logger)
	close(started)

	for {
		sig := w.mailbox.recv()
		if sig.kind == signalClose {
			return
		}

		w.active.Store(1)
		failure := w.observer.run(sig.task, w.name)
		w.active.Store(0)
		w.queued.Add(-1)
		if failure != nil {
			w.panicked.Add(1)
			w.panic = failure
			if lost := w.mailbox.seal(); lost > 0 {
				w.queued.Add(-int64(lost))
				w.logger.Warn("worker exited with unread tasks", F("worker", w.name), F("tasks", lost))
			}
			return
		}
	}
}

// Name returns the worker thread name.
func (w *Worker) Name() string {
	return w.name
}

// ThreadID returns the OS thread ID of the worker, or -1 where the platform
// does not expose one.
func (w *Worker) ThreadID() int {
	return w.tid
}

// IsClosed reports whether Close has been called.
func (w *Worker) IsClosed() bool {
	return w.closed.Load()
}

// Stats returns a snapshot of the worker state.
func (w *Worker) Stats() RunnerStats {
	stats := RunnerStats{
		Name:     w.name,
		Type:     RunnerTypeWorker,
		Pending:  int(w.queued.Load()),
		Running:  int(w.active.Load()),
		Rejected: w.rejected.Load(),
		Panicked: w.panicked.Load(),
		Closed:   w.IsClosed(),
	}
	if last, ok := w.observer.last(); ok {
		stats.LastTaskName = last.Name
		stats.LastTaskAt = last.FinishedAt
	}
	return stats
}

// RecentTasks returns up to n of the latest execution records, newest first.
func (w *Worker) RecentTasks(n int) []TaskExecutionRecord {
	return w.observer.recent(n)
}
