package core

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

// TestSpinLock_MutualExclusion verifies the lock serializes critical sections
// Given: N goroutines each incrementing a shared counter 1000 times under the lock
// When: All goroutines finish
// Then: The counter equals 1000*N exactly
func TestSpinLock_MutualExclusion(t *testing.T) {
	for _, n := range []int{1, 4, 16} {
		t.Run(fmt.Sprintf("goroutines=%d", n), func(t *testing.T) {
			var lock SpinLock
			counter := 0

			var wg sync.WaitGroup
			wg.Add(n)
			for range n {
				go func() {
					defer wg.Done()
					for range 1000 {
						lock.Lock()
						counter++
						lock.Unlock()
					}
				}()
			}
			wg.Wait()

			if counter != 1000*n {
				t.Fatalf("counter = %d, want %d", counter, 1000*n)
			}
		})
	}
}

func TestSpinLock_TryLock(t *testing.T) {
	var lock SpinLock

	if !lock.TryLock() {
		t.Fatal("TryLock on a free lock should succeed")
	}
	if lock.TryLock() {
		t.Fatal("TryLock on a held lock should fail")
	}
	if !lock.locked() {
		t.Fatal("lock should report held")
	}

	lock.Unlock()
	if lock.locked() {
		t.Fatal("lock should report free after Unlock")
	}
}

func TestSpinLock_UnlockOfUnlockedPanics(t *testing.T) {
	var lock SpinLock
	if r := recoverPanic(lock.Unlock); r == nil {
		t.Fatal("Unlock of a free SpinLock should panic")
	}
}

func TestSpinLock_GuardAndDo(t *testing.T) {
	var lock SpinLock

	func() {
		defer lock.Guard()()
		if !lock.locked() {
			t.Fatal("lock should be held inside the guarded scope")
		}
	}()
	if lock.locked() {
		t.Fatal("guard should release the lock at end of scope")
	}

	ran := false
	lock.Do(func() {
		ran = lock.locked()
	})
	if !ran {
		t.Fatal("Do should run fn while holding the lock")
	}
	if lock.locked() {
		t.Fatal("Do should release the lock")
	}
}

// TestSpinLock_BackoffCalledUnderContention verifies the caller-supplied backoff hook
// Given: A held lock with a Backoff that releases it after a few attempts
// When: Lock is called
// Then: Backoff is invoked and Lock eventually acquires the lock
func TestSpinLock_BackoffCalledUnderContention(t *testing.T) {
	var calls atomic.Int32
	lock := &SpinLock{}
	lock.Backoff = func(attempt int) {
		if calls.Add(1) == 3 {
			lock.flag.Store(false)
		}
	}
	lock.Lock()

	lock.Lock()
	defer lock.Unlock()

	if got := calls.Load(); got < 3 {
		t.Fatalf("backoff calls = %d, want at least 3", got)
	}
}
