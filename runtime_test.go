package taskrt

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rhythmc/taskrt/core"
)

func resetRuntime(t *testing.T) {
	t.Helper()
	Shutdown()
	t.Cleanup(Shutdown)
}

// TestRuntime_RunsEveryTask verifies the runtime pool completes submitted work
// Given: A fresh runtime
// When: 100 tasks incrementing a counter are submitted and Done is polled
// Then: The counter equals 100 once Done reports true
func TestRuntime_RunsEveryTask(t *testing.T) {
	resetRuntime(t)

	// Arrange
	var counter atomic.Int64

	// Act
	for range 100 {
		Submit(func() { counter.Add(1) })
	}
	deadline := time.Now().Add(5 * time.Second)
	for !Done() {
		if time.Now().After(deadline) {
			t.Fatal("runtime did not become idle")
		}
		time.Sleep(time.Millisecond)
	}

	// Assert
	if got := counter.Load(); got != 100 {
		t.Fatalf("counter = %d, want 100", got)
	}
}

func TestRuntime_DefaultPool(t *testing.T) {
	resetRuntime(t)

	pool := Pool()
	if pool != Pool() {
		t.Fatal("Pool() should return the same pool on every call")
	}
	if pool.Name() != RuntimePoolName {
		t.Fatalf("Name() = %q, want %q", pool.Name(), RuntimePoolName)
	}
	if pool.WorkerCount() != runtime.NumCPU() {
		t.Fatalf("WorkerCount() = %d, want %d", pool.WorkerCount(), runtime.NumCPU())
	}
	if names := pool.WorkerNames(); names[0] != "runtime_worker0" {
		t.Fatalf("WorkerNames()[0] = %q, want runtime_worker0", names[0])
	}
}

func TestRuntime_Configure(t *testing.T) {
	resetRuntime(t)

	builder := core.NamedThreadPoolBuilder("ignored").Workers(2)
	if err := Configure(builder); err != nil {
		t.Fatalf("Configure before start failed: %v", err)
	}
	pool := Pool()
	if pool.WorkerCount() != 2 || pool.Name() != RuntimePoolName {
		t.Fatalf("pool = %s/%d, want %s/2", pool.Name(), pool.WorkerCount(), RuntimePoolName)
	}

	// The caller's builder keeps its own name.
	own := builder.Build()
	defer own.Close()
	if own.Name() != "ignored" {
		t.Fatalf("configured builder name = %q, want ignored", own.Name())
	}

	err := Configure(core.NewThreadPoolBuilder().Workers(8))
	if !errors.Is(err, ErrRuntimeStarted) {
		t.Fatalf("Configure after start = %v, want ErrRuntimeStarted", err)
	}
}

// TestRuntime_ShutdownRebuilds verifies Shutdown drains and forgets the pool
// Given: A runtime pool with queued work
// When: Shutdown is called and the runtime is used again
// Then: All queued work ran and a new pool is built with default settings
func TestRuntime_ShutdownRebuilds(t *testing.T) {
	resetRuntime(t)

	// Arrange
	if err := Configure(core.NewThreadPoolBuilder().Workers(1)); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	first := Pool()
	var counter atomic.Int64
	for range 10 {
		Submit(func() { counter.Add(1) })
	}

	// Act
	Shutdown()
	second := Pool()

	// Assert
	if counter.Load() != 10 {
		t.Fatalf("counter after Shutdown = %d, want 10", counter.Load())
	}
	if !first.IsClosed() {
		t.Fatal("old runtime pool should be closed")
	}
	if second == first || second.IsClosed() {
		t.Fatal("runtime should build a fresh pool after Shutdown")
	}
	if second.WorkerCount() != runtime.NumCPU() {
		t.Fatalf("rebuilt WorkerCount() = %d, want default %d", second.WorkerCount(), runtime.NumCPU())
	}
}

func TestRuntime_WaitIdleAndStats(t *testing.T) {
	resetRuntime(t)

	for range 20 {
		if err := TrySubmit(func() { time.Sleep(time.Millisecond) }); err != nil {
			t.Fatalf("TrySubmit failed: %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := WaitIdle(ctx); err != nil {
		t.Fatalf("WaitIdle failed: %v", err)
	}

	stats := Stats()
	if stats.ID != RuntimePoolName || stats.Completed != 20 || stats.Queued != 0 || !stats.Running {
		t.Fatalf("Stats() = %+v, want runtime with 20 completed", stats)
	}
}

// TestRuntime_ShutdownWhileTaskSubmits verifies Shutdown does not hold the
// runtime lock while the old pool drains
// Given: A runtime task blocked until Shutdown has started
// When: The task submits to the runtime while Shutdown drains its pool
// Then: Shutdown returns and the submission lands on a fresh pool
func TestRuntime_ShutdownWhileTaskSubmits(t *testing.T) {
	resetRuntime(t)

	// Arrange
	old := Pool()
	release := make(chan struct{})
	submitted := make(chan error, 1)
	var ran atomic.Bool
	Submit(func() {
		<-release
		submitted <- TrySubmit(func() { ran.Store(true) })
	})

	// Act
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		Shutdown()
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)

	// Assert
	select {
	case <-shutdownDone:
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown did not return while a draining task used the runtime")
	}
	if err := <-submitted; err != nil {
		t.Fatalf("TrySubmit during Shutdown = %v, want nil", err)
	}
	if !old.IsClosed() {
		t.Fatal("old runtime pool should be closed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := WaitIdle(ctx); err != nil {
		t.Fatalf("WaitIdle failed: %v", err)
	}
	if !ran.Load() {
		t.Fatal("task submitted during Shutdown should run on the new pool")
	}
}
