package core

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// spinBudget is the number of failed CAS attempts before the default backoff
// starts yielding the processor.
const spinBudget = 100

var _ sync.Locker = (*SpinLock)(nil)

// SpinLock is a busy-wait mutual exclusion primitive built on a single atomic flag.
//
// The zero value is an unlocked SpinLock. It is neither fair nor reentrant, and a
// holder that panics leaves it locked forever, so critical sections must be short
// and panic-free.
type SpinLock struct {
	flag atomic.Bool

	// Backoff, if set, is called after every failed acquisition attempt with the
	// number of attempts so far. Defaults to a short busy spin followed by
	// runtime.Gosched.
	Backoff func(attempt int)
}

// Lock blocks until the caller owns the lock.
func (l *SpinLock) Lock() {
	for attempt := 1; !l.flag.CompareAndSwap(false, true); attempt++ {
		if l.Backoff != nil {
			l.Backoff(attempt)
		} else {
			defaultBackoff(attempt)
		}
	}
}

// TryLock acquires the lock if it is free and reports whether it did.
func (l *SpinLock) TryLock() bool {
	return l.flag.CompareAndSwap(false, true)
}

// Unlock releases the lock. Unlocking a free SpinLock panics.
func (l *SpinLock) Unlock() {
	if !l.flag.Swap(false) {
		panic("taskrt: unlock of unlocked SpinLock")
	}
}

// Guard acquires the lock and returns the function that releases it.
//
//	defer l.Guard()()
func (l *SpinLock) Guard() func() {
	l.Lock()
	return l.Unlock
}

// Do runs fn while holding the lock.
func (l *SpinLock) Do(fn func()) {
	l.Lock()
	defer l.Unlock()
	fn()
}

// locked reports whether some goroutine currently holds the lock.
func (l *SpinLock) locked() bool {
	return l.flag.Load()
}

func defaultBackoff(attempt int) {
	if attempt >= spinBudget {
		runtime.Gosched()
	}
}
