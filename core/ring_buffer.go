package core

import "fmt"

// RingBuffer is a fixed-capacity circular buffer that overwrites its oldest
// element once full. Every accessor runs under one SpinLock, so a RingBuffer is
// safe for any number of concurrent producers and consumers.
type RingBuffer[T any] struct {
	lock SpinLock
	size int

	// Guarded by lock. While !filled, len(raw) == front and raw[:front] holds
	// every element in age order. Once filled, raw[front] is the oldest element.
	raw    []T
	front  int
	filled bool
}

// NewRingBuffer creates an empty buffer holding at most size elements.
// It panics if size is less than one.
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	if size < 1 {
		panic(fmt.Sprintf("taskrt: ring buffer size must be positive, got %d", size))
	}
	return &RingBuffer[T]{
		size: size,
		raw:  make([]T, 0, size),
	}
}

// Size returns the fixed capacity.
func (r *RingBuffer[T]) Size() int {
	return r.size
}

// Len returns the number of elements currently retained.
func (r *RingBuffer[T]) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	assertLocked(&r.lock)
	return len(r.raw)
}

// Filled reports whether the buffer has wrapped at least once.
func (r *RingBuffer[T]) Filled() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	assertLocked(&r.lock)
	return r.filled
}

// Push appends value, overwriting the oldest element when the buffer is full.
func (r *RingBuffer[T]) Push(value T) {
	r.lock.Lock()
	defer r.lock.Unlock()
	assertLocked(&r.lock)

	if len(r.raw) < r.size {
		r.raw = append(r.raw, value)
	} else {
		r.raw[r.front] = value
	}
	r.front = (r.front + 1) % r.size
	if r.front == 0 {
		r.filled = true
	}
}

// Get returns up to n of the most recently pushed elements, oldest first.
// Fewer are returned when fewer have been pushed; n <= 0 yields an empty slice.
func (r *RingBuffer[T]) Get(n int) []T {
	if n <= 0 {
		return []T{}
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	return r.getLocked(n)
}

// GetAll returns every retained element, oldest first.
func (r *RingBuffer[T]) GetAll() []T {
	return r.Get(r.size)
}

// GetAndDo performs Get(n) and calls fn before releasing the lock, so fn
// observes the buffer exactly as returned and no Push can interleave.
// fn must not call back into the buffer.
func (r *RingBuffer[T]) GetAndDo(n int, fn func()) []T {
	r.lock.Lock()
	defer r.lock.Unlock()

	out := []T{}
	if n > 0 {
		out = r.getLocked(n)
	}
	fn()
	return out
}

func (r *RingBuffer[T]) getLocked(n int) []T {
	assertLocked(&r.lock)

	fetch := min(n, r.size)
	if !r.filled {
		start := max(0, r.front-fetch)
		out := make([]T, r.front-start)
		copy(out, r.raw[start:r.front])
		return out
	}

	back := r.front - fetch
	if back < 0 {
		back += r.size
	}

	out := make([]T, 0, fetch)
	if back < r.front {
		return append(out, r.raw[back:r.front]...)
	}
	out = append(out, r.raw[back:]...)
	return append(out, r.raw[:r.front]...)
}
