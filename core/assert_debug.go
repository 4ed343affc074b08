//go:build taskrt_debug

package core

// assertLocked panics if l is not held. Only compiled with the taskrt_debug tag.
func assertLocked(l *SpinLock) {
	if !l.locked() {
		panic("taskrt: ring buffer storage accessed without holding its lock")
	}
}
