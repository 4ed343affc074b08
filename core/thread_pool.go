package core

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
)

// =============================================================================
// ThreadPoolBuilder
// =============================================================================

// ThreadPoolBuilder configures and spawns a ThreadPool.
type ThreadPoolBuilder struct {
	name    string
	workers int
	ids     IDSource
	config  RunnerConfig
}

// NewThreadPoolBuilder returns an anonymous builder with one worker per logical CPU.
func NewThreadPoolBuilder() *ThreadPoolBuilder {
	return &ThreadPoolBuilder{
		workers: runtime.NumCPU(),
		config:  *DefaultRunnerConfig(),
	}
}

// NamedThreadPoolBuilder returns a builder whose worker threads are prefixed with name.
func NamedThreadPoolBuilder(name string) *ThreadPoolBuilder {
	return NewThreadPoolBuilder().Name(name)
}

// Name sets the worker thread name prefix.
func (b *ThreadPoolBuilder) Name(name string) *ThreadPoolBuilder {
	b.name = name
	return b
}

// Workers overrides the number of worker threads.
func (b *ThreadPoolBuilder) Workers(n int) *ThreadPoolBuilder {
	b.workers = n
	return b
}

// IDSource sets where unnamed pools draw their ID from.
func (b *ThreadPoolBuilder) IDSource(ids IDSource) *ThreadPoolBuilder {
	b.ids = ids
	return b
}

// Logger sets the logger of the pool.
func (b *ThreadPoolBuilder) Logger(l Logger) *ThreadPoolBuilder {
	b.config.Logger = l
	return b
}

// PanicHandler sets the handler called when a task panics.
func (b *ThreadPoolBuilder) PanicHandler(h PanicHandler) *ThreadPoolBuilder {
	b.config.PanicHandler = h
	return b
}

// Metrics sets the metrics sink of the pool.
func (b *ThreadPoolBuilder) Metrics(m Metrics) *ThreadPoolBuilder {
	b.config.Metrics = m
	return b
}

// HistoryCapacity bounds the number of execution records kept for RecentTasks.
func (b *ThreadPoolBuilder) HistoryCapacity(n int) *ThreadPoolBuilder {
	b.config.HistoryCapacity = n
	return b
}

// FromConfig applies the non-zero fields of cfg.
func (b *ThreadPoolBuilder) FromConfig(cfg ThreadPoolConfig) *ThreadPoolBuilder {
	if cfg.Name != "" {
		b.name = cfg.Name
	}
	if cfg.Workers > 0 {
		b.workers = cfg.Workers
	}
	if cfg.HistoryCapacity > 0 {
		b.config.HistoryCapacity = cfg.HistoryCapacity
	}
	return b
}

// Build spawns the worker threads and returns the running pool.
// It panics if the worker count is not positive.
func (b *ThreadPoolBuilder) Build() *ThreadPool {
	if b.workers < 1 {
		panic(fmt.Sprintf("taskrt: thread pool needs at least one worker, got %d", b.workers))
	}

	ids := b.ids
	if ids == nil {
		ids = defaultPoolIDs
	}
	id := ids.Next()

	name := b.name
	if name == "" {
		name = fmt.Sprintf("threadpool%d", id)
	}

	config := b.config.withDefaults()
	shared := newSharedData()
	p := &ThreadPool{
		id:       id,
		name:     name,
		shared:   shared,
		observer: newTaskObserver(name, RunnerTypeThreadPool, config),
		logger:   config.Logger,
		workers:  make([]*poolWorker, b.workers),
	}

	shared.liveWorkers.Store(int32(b.workers))
	started := sync.WaitGroup{}
	started.Add(b.workers)
	for i := range p.workers {
		w := &poolWorker{
			index: i,
			name:  fmt.Sprintf("%s_worker%d", name, i),
			done:  make(chan struct{}),
		}
		p.workers[i] = w
		go p.workerLoop(w, &started)
	}
	started.Wait()

	p.logger.Debug("thread pool started", F("pool", name), F("workers", b.workers))
	return p
}

// =============================================================================
// ThreadPool
// =============================================================================

type poolState int

const (
	statePending poolState = iota
	stateClosing
)

// poolStatus is Pending(pending) until the pool starts closing; Closing is terminal.
type poolStatus struct {
	state   poolState
	pending int
}

const (
	jobQueued int32 = iota
	jobClaimed
	jobRevoked
)

// job is a queued task. A submission that loses the race against Close is
// revoked in place rather than removed from the middle of the queue; whichever
// of claim and revoke happens first wins.
type job struct {
	task  *Task
	state atomic.Int32
}

func (j *job) claim() bool  { return j.state.CompareAndSwap(jobQueued, jobClaimed) }
func (j *job) revoke() bool { return j.state.CompareAndSwap(jobQueued, jobRevoked) }

// sharedData is owned jointly by the pool handle and its worker threads.
// The status and the job queue sit behind separate locks so pushes do not
// contend with the wake and shutdown path.
type sharedData struct {
	statusMu sync.Mutex
	status   poolStatus
	signal   *sync.Cond

	jobsMu sync.Mutex
	jobs   *queue.Queue

	// live counts queued jobs that are neither claimed nor revoked.
	live atomic.Int64

	// runningCount counts claimed tasks that have not finished. Advisory only.
	runningCount atomic.Int64

	// liveWorkers counts worker threads that have not exited.
	liveWorkers atomic.Int32

	completed atomic.Int64
	rejected  atomic.Int64
	panicked  atomic.Int64
}

func newSharedData() *sharedData {
	s := &sharedData{jobs: queue.New()}
	s.signal = sync.NewCond(&s.statusMu)
	return s
}

// pushJob appends j and returns the queue depth after the push.
func (s *sharedData) pushJob(j *job) int {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	s.jobs.Add(j)
	return int(s.live.Add(1))
}

// popJob removes and claims the oldest live job, discarding revoked ones on the way.
func (s *sharedData) popJob() (*job, bool) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	for s.jobs.Length() > 0 {
		j := s.jobs.Remove().(*job)
		if j.claim() {
			s.live.Add(-1)
			return j, true
		}
	}
	return nil, false
}

func (s *sharedData) revokeJob(j *job) bool {
	if !j.revoke() {
		return false
	}
	s.live.Add(-1)
	return true
}

func (s *sharedData) queued() int {
	return int(s.live.Load())
}

type poolWorker struct {
	index int
	name  string
	tid   int
	done  chan struct{}

	// Written by the worker goroutine before done is closed.
	panic *WorkerPanic
}

// ThreadPool runs submitted tasks on a fixed set of dedicated OS threads that
// share one FIFO job queue.
//
// Tasks are dequeued in submission order, but completion order across
// workers is not guaranteed. Close stops accepting work, lets the workers
// drain everything already queued, and joins them.
//
// A task panic terminates the worker thread it ran on. Once every worker has
// terminated, the pool still accepts submissions until Close, but they never
// run and Done stays false; each such submission is logged at Warn level.
type ThreadPool struct {
	id       uint64
	name     string
	shared   *sharedData
	observer *taskObserver
	logger   Logger
	workers  []*poolWorker

	closeOnce sync.Once
}

// Submit queues fn for asynchronous execution.
// It panics with ErrPoolClosed if the pool has begun closing.
func (p *ThreadPool) Submit(fn func()) {
	p.SubmitRaw(NewTask(fn))
}

// SubmitRaw queues task for asynchronous execution.
// It panics with ErrPoolClosed if the pool has begun closing.
func (p *ThreadPool) SubmitRaw(task *Task) {
	if err := p.TrySubmitRaw(task); err != nil {
		panic(err)
	}
}

// TrySubmit is Submit returning ErrPoolClosed instead of panicking.
func (p *ThreadPool) TrySubmit(fn func()) error {
	return p.TrySubmitRaw(NewTask(fn))
}

// TrySubmitRaw is SubmitRaw returning ErrPoolClosed instead of panicking.
// A rejected task is guaranteed never to run.
func (p *ThreadPool) TrySubmitRaw(task *Task) error {
	s := p.shared
	j := &job{task: task}
	depth := s.pushJob(j)

	s.statusMu.Lock()
	if s.status.state == stateClosing {
		s.statusMu.Unlock()
		if !s.revokeJob(j) {
			// A worker claimed it between the push and the status check.
			return nil
		}
		s.rejected.Add(1)
		p.observer.reject("closed")
		return ErrPoolClosed
	}
	s.status.pending++
	s.statusMu.Unlock()
	s.signal.Signal()

	p.observer.config.Metrics.RecordQueueDepth(p.name, depth)
	if s.liveWorkers.Load() == 0 {
		p.logger.Warn("task accepted by pool without live workers",
			F("pool", p.name),
			F("task", task.Name()),
			F("queued", depth),
		)
	}
	return nil
}

// Done reports whether no task is queued or running. The answer is a racy
// snapshot suitable for polling; a task may start right after it returns.
func (p *ThreadPool) Done() bool {
	s := p.shared
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.runningCount.Load() == 0 && s.queued() == 0
}

// WaitIdle polls Done until it reports true or ctx is done.
func (p *ThreadPool) WaitIdle(ctx context.Context) error {
	return waitIdle(ctx, p.Done)
}

// Close stops accepting tasks, waits for the workers to drain the queue and
// joins the worker threads in spawn order. If tasks panicked, Close panics
// after all threads are joined with the *WorkerPanic of the lowest-indexed
// worker that failed. Subsequent calls return immediately.
func (p *ThreadPool) Close() {
	var failure *WorkerPanic
	p.closeOnce.Do(func() {
		s := p.shared
		s.statusMu.Lock()
		s.status.state = stateClosing
		s.statusMu.Unlock()
		s.signal.Broadcast()

		for _, w := range p.workers {
			<-w.done
			if w.panic != nil && failure == nil {
				failure = w.panic
			}
		}
		p.logger.Debug("thread pool closed",
			F("pool", p.name),
			F("completed", s.completed.Load()),
			F("panicked", s.panicked.Load()),
		)
	})
	if failure != nil {
		panic(failure)
	}
}

// workerLoop is the body of every worker thread.
func (p *ThreadPool) workerLoop(w *poolWorker, started *sync.WaitGroup) {
	s := p.shared
	defer close(w.done)
	defer s.liveWorkers.Add(-1)
	w.tid = bindOSThread(w.name, p.logger)
	started.Done()

	for {
		s.statusMu.Lock()
		if s.status.state == stateClosing {
			s.statusMu.Unlock()
			break
		}
		if s.status.pending == 0 {
			s.signal.Wait()
			if s.status.state == stateClosing {
				s.statusMu.Unlock()
				break
			}
			if s.status.pending == 0 {
				// Spurious wake-up.
				s.statusMu.Unlock()
				continue
			}
		}
		s.status.pending--
		s.statusMu.Unlock()

		s.runningCount.Add(1)
		j, ok := s.popJob()
		if !ok {
			// Unreachable: every pending count is backed by a live job.
			s.runningCount.Add(-1)
			continue
		}
		failure := p.execute(w, j)
		s.runningCount.Add(-1)
		if failure != nil {
			w.panic = failure
			return
		}
	}

	p.drain(w)
}

// drain runs whatever is left in the queue once the pool is closing.
func (p *ThreadPool) drain(w *poolWorker) {
	drained := 0
	for {
		j, ok := p.shared.popJob()
		if !ok {
			break
		}
		drained++
		if failure := p.execute(w, j); failure != nil {
			w.panic = failure
			return
		}
	}
	if drained > 0 {
		p.logger.Debug("worker drained queue", F("thread", w.name), F("tasks", drained))
	}
}

func (p *ThreadPool) execute(w *poolWorker, j *job) *WorkerPanic {
	failure := p.observer.run(j.task, w.name)
	if failure != nil {
		p.shared.panicked.Add(1)
	} else {
		p.shared.completed.Add(1)
	}
	return failure
}

// Name returns the pool name, which prefixes every worker thread name.
func (p *ThreadPool) Name() string {
	return p.name
}

// ID returns the identifier drawn from the pool's IDSource.
func (p *ThreadPool) ID() uint64 {
	return p.id
}

// WorkerCount returns the number of worker threads.
func (p *ThreadPool) WorkerCount() int {
	return len(p.workers)
}

// WorkerNames returns the worker thread names in spawn order.
func (p *ThreadPool) WorkerNames() []string {
	names := make([]string, len(p.workers))
	for i, w := range p.workers {
		names[i] = w.name
	}
	return names
}

// WorkerThreadIDs returns the OS thread ID of every worker, or -1 where the
// platform does not expose one.
func (p *ThreadPool) WorkerThreadIDs() []int {
	tids := make([]int, len(p.workers))
	for i, w := range p.workers {
		tids[i] = w.tid
	}
	return tids
}

// QueuedTaskCount returns the number of tasks waiting in the queue.
func (p *ThreadPool) QueuedTaskCount() int {
	return p.shared.queued()
}

// ActiveTaskCount returns the number of tasks currently executing.
func (p *ThreadPool) ActiveTaskCount() int {
	return int(p.shared.runningCount.Load())
}

// IsClosed reports whether Close has been called.
func (p *ThreadPool) IsClosed() bool {
	s := p.shared
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.status.state == stateClosing
}

// Stats returns a snapshot of the pool state.
func (p *ThreadPool) Stats() PoolStats {
	s := p.shared
	return PoolStats{
		ID:        p.name,
		Workers:   len(p.workers),
		Queued:    s.queued(),
		Active:    int(s.runningCount.Load()),
		Completed: s.completed.Load(),
		Rejected:  s.rejected.Load(),
		Panicked:  s.panicked.Load(),
		Running:   !p.IsClosed(),
	}
}

// RecentTasks returns up to n of the latest execution records, newest first.
func (p *ThreadPool) RecentTasks(n int) []TaskExecutionRecord {
	return p.observer.recent(n)
}

const idlePollInterval = time.Millisecond

func waitIdle(ctx context.Context, done func() bool) error {
	if done() {
		return nil
	}
	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if done() {
				return nil
			}
		}
	}
}
