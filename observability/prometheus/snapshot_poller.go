package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rhythmc/taskrt/core"
)

// WorkerSnapshotProvider is satisfied by *core.Worker.
type WorkerSnapshotProvider interface {
	Stats() core.RunnerStats
}

// PoolSnapshotProvider is satisfied by *core.ThreadPool.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// SnapshotPoller periodically copies worker and pool Stats() snapshots into
// Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	mu      sync.RWMutex
	workers map[string]WorkerSnapshotProvider
	pools   map[string]PoolSnapshotProvider

	workerPending  *prom.GaugeVec
	workerRunning  *prom.GaugeVec
	workerRejected *prom.GaugeVec
	workerPanicked *prom.GaugeVec
	workerClosed   *prom.GaugeVec
	workerLastTask *prom.GaugeVec

	poolQueued    *prom.GaugeVec
	poolActive    *prom.GaugeVec
	poolWorkers   *prom.GaugeVec
	poolCompleted *prom.GaugeVec
	poolRejected  *prom.GaugeVec
	poolPanicked  *prom.GaugeVec
	poolRunning   *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors
// under DefaultNamespace. A non-positive interval selects one second.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	p := &SnapshotPoller{
		interval: interval,
		workers:  make(map[string]WorkerSnapshotProvider),
		pools:    make(map[string]PoolSnapshotProvider),
	}

	workerLabels := []string{"worker"}
	poolLabels := []string{"pool"}
	gauges := []struct {
		dst    **prom.GaugeVec
		name   string
		help   string
		labels []string
	}{
		{&p.workerPending, "worker_pending", "Tasks sent to a worker and not yet finished.", workerLabels},
		{&p.workerRunning, "worker_running", "Tasks currently running on a worker.", workerLabels},
		{&p.workerRejected, "worker_rejected", "Worker rejected task count snapshot.", workerLabels},
		{&p.workerPanicked, "worker_panicked", "Worker panicked task count snapshot.", workerLabels},
		{&p.workerClosed, "worker_closed", "Worker closed state (1=closed, 0=open).", workerLabels},
		{&p.workerLastTask, "worker_last_task_timestamp_seconds", "Unix time the last task finished on a worker.", workerLabels},
		{&p.poolQueued, "pool_queued", "Queued tasks per pool.", poolLabels},
		{&p.poolActive, "pool_active", "Running tasks per pool.", poolLabels},
		{&p.poolWorkers, "pool_workers", "Worker thread count per pool.", poolLabels},
		{&p.poolCompleted, "pool_completed", "Pool completed task count snapshot.", poolLabels},
		{&p.poolRejected, "pool_rejected", "Pool rejected task count snapshot.", poolLabels},
		{&p.poolPanicked, "pool_panicked", "Pool panicked task count snapshot.", poolLabels},
		{&p.poolRunning, "pool_running", "Pool running state (1=running, 0=closing).", poolLabels},
	}
	for _, g := range gauges {
		vec := prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: DefaultNamespace,
			Name:      g.name,
			Help:      g.help,
		}, g.labels)
		registered, err := registerCollector(reg, vec)
		if err != nil {
			return nil, err
		}
		*g.dst = registered
	}
	return p, nil
}

// AddWorker adds or replaces a worker snapshot provider by name.
func (p *SnapshotPoller) AddWorker(name string, provider WorkerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.mu.Lock()
	p.workers[normalizeLabel(name, "worker")] = provider
	p.mu.Unlock()
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.mu.Lock()
	p.pools[normalizeLabel(name, "pool")] = provider
	p.mu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.running {
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	go p.loop(pollCtx, p.done)
}

// Stop stops periodic polling and waits for the poll loop to exit.
// Repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()

	cancel()
	<-done
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for name, provider := range p.workers {
		stats := provider.Stats()
		p.workerPending.WithLabelValues(name).Set(float64(stats.Pending))
		p.workerRunning.WithLabelValues(name).Set(float64(stats.Running))
		p.workerRejected.WithLabelValues(name).Set(float64(stats.Rejected))
		p.workerPanicked.WithLabelValues(name).Set(float64(stats.Panicked))
		p.workerClosed.WithLabelValues(name).Set(boolGauge(stats.Closed))
		if !stats.LastTaskAt.IsZero() {
			p.workerLastTask.WithLabelValues(name).Set(float64(stats.LastTaskAt.UnixNano()) / 1e9)
		}
	}

	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolQueued.WithLabelValues(name).Set(float64(stats.Queued))
		p.poolActive.WithLabelValues(name).Set(float64(stats.Active))
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolCompleted.WithLabelValues(name).Set(float64(stats.Completed))
		p.poolRejected.WithLabelValues(name).Set(float64(stats.Rejected))
		p.poolPanicked.WithLabelValues(name).Set(float64(stats.Panicked))
		p.poolRunning.WithLabelValues(name).Set(boolGauge(stats.Running))
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
