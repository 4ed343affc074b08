package core

import (
	"sync"
	"testing"
	"time"
)

// quietPanicHandler records panics instead of printing them.
type quietPanicHandler struct {
	mu     sync.Mutex
	panics []any
	names  []string
}

func (h *quietPanicHandler) HandlePanic(runnerName, threadName string, panicInfo any, stackTrace []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panics = append(h.panics, panicInfo)
	h.names = append(h.names, threadName)
}

func (h *quietPanicHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.panics)
}

func assertEventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

// recoverPanic runs fn and returns the value it panicked with, or nil.
func recoverPanic(fn func()) (r any) {
	defer func() { r = recover() }()
	fn()
	return nil
}
