package core

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func newTestWorker() *Worker {
	return NewWorkerWithConfig(&WorkerConfig{
		RunnerConfig: RunnerConfig{PanicHandler: &quietPanicHandler{}},
	})
}

// TestWorker_RunsEveryTask verifies worker liveness and completeness
// Given: A fresh Worker
// When: 100 tasks each incrementing a shared counter are submitted and Done is polled
// Then: The counter equals 100
func TestWorker_RunsEveryTask(t *testing.T) {
	worker := newTestWorker()
	defer worker.Close()

	var counter atomic.Int64
	for range 100 {
		worker.Submit(func() { counter.Add(1) })
	}

	assertEventually(t, 5*time.Second, worker.Done)
	if got := counter.Load(); got != 100 {
		t.Fatalf("counter = %d, want 100", got)
	}
}

func TestWorker_PreservesSubmissionOrder(t *testing.T) {
	worker := newTestWorker()

	var order []int
	for i := range 50 {
		worker.Submit(func() { order = append(order, i) })
	}
	worker.Close()

	if len(order) != 50 {
		t.Fatalf("ran %d tasks, want 50", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want ascending", order)
		}
	}
}

// TestWorker_CloseDrainsMailbox verifies every task accepted before Close runs
// Given: A worker with a blocked task followed by K queued tasks
// When: Close is called while the first task is still blocked
// Then: Close returns only after all K+1 tasks ran
func TestWorker_CloseDrainsMailbox(t *testing.T) {
	const k = 25
	worker := newTestWorker()

	release := make(chan struct{})
	var counter atomic.Int64
	worker.Submit(func() {
		<-release
		counter.Add(1)
	})
	for range k {
		worker.Submit(func() { counter.Add(1) })
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	worker.Close()

	if got := counter.Load(); got != k+1 {
		t.Fatalf("counter after Close = %d, want %d", got, k+1)
	}
	if !worker.Done() {
		t.Fatal("worker should be done after Close")
	}
}

func TestWorker_SubmitAfterClose(t *testing.T) {
	worker := newTestWorker()
	worker.Close()

	r := recoverPanic(func() { worker.Submit(func() {}) })
	err, ok := r.(error)
	if !ok || !errors.Is(err, ErrWorkerClosed) {
		t.Fatalf("Submit after Close panic = %v, want ErrWorkerClosed", r)
	}

	if err := worker.TrySubmit(func() {}); !errors.Is(err, ErrWorkerClosed) {
		t.Fatalf("TrySubmit after Close = %v, want ErrWorkerClosed", err)
	}
	if !worker.Done() {
		t.Fatal("rejected submissions must not count as queued")
	}
	if got := worker.Stats().Rejected; got != 2 {
		t.Fatalf("Stats().Rejected = %d, want 2", got)
	}
}

func TestWorker_Naming(t *testing.T) {
	named := NewNamedWorker("glslang")
	defer named.Close()
	if named.Name() != "glslang" {
		t.Fatalf("Name() = %q, want glslang", named.Name())
	}

	ids := NewCounter(3)
	anon := NewWorkerWithConfig(&WorkerConfig{IDSource: ids})
	defer anon.Close()
	if anon.Name() != "worker3" {
		t.Fatalf("Name() = %q, want worker3", anon.Name())
	}
}

func TestWorker_CloseRepanicsWorkerPanic(t *testing.T) {
	handler := &quietPanicHandler{}
	worker := NewWorkerWithConfig(&WorkerConfig{
		Name:         "faulty",
		RunnerConfig: RunnerConfig{PanicHandler: handler},
	})

	worker.Submit(func() { panic("boom") })
	<-worker.done
	if handler.count() != 1 {
		t.Fatalf("panic handler calls = %d, want 1", handler.count())
	}

	// The thread is gone; later submissions are refused.
	if err := worker.TrySubmit(func() {}); !errors.Is(err, ErrWorkerClosed) {
		t.Fatalf("TrySubmit after worker panic = %v, want ErrWorkerClosed", err)
	}

	r := recoverPanic(worker.Close)
	wp, ok := r.(*WorkerPanic)
	if !ok {
		t.Fatalf("Close panic = %#v, want *WorkerPanic", r)
	}
	if wp.Worker != "faulty" || wp.Value != "boom" {
		t.Fatalf("WorkerPanic = %+v, want worker faulty value boom", wp)
	}
	if !worker.Done() {
		t.Fatal("Done() should be true once the panicked worker exited")
	}
}

func TestWorker_StatsAndHistory(t *testing.T) {
	worker := NewNamedWorker("history")

	worker.SubmitRaw(NewNamedTask("first", func() {}))
	worker.SubmitRaw(NewNamedTask("second", func() {}))
	worker.Close()

	stats := worker.Stats()
	if stats.Name != "history" || stats.Type != RunnerTypeWorker || !stats.Closed {
		t.Fatalf("Stats() = %+v", stats)
	}
	if stats.LastTaskName != "second" || stats.Pending != 0 || stats.Running != 0 {
		t.Fatalf("Stats() = %+v, want LastTaskName=second Pending=0 Running=0", stats)
	}

	recent := worker.RecentTasks(5)
	if len(recent) != 2 || recent[0].Name != "second" || recent[1].Name != "first" {
		t.Fatalf("RecentTasks(5) = %+v, want [second first]", recent)
	}
	if recent[0].ThreadName != "history" {
		t.Fatalf("ThreadName = %q, want history", recent[0].ThreadName)
	}
}
