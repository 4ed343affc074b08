package core

import "runtime"

// bindOSThread wires the calling goroutine to its own OS thread for the rest
// of its life and names the thread. The goroutine never unlocks, so the thread
// is torn down when the goroutine exits.
func bindOSThread(name string, logger Logger) int {
	runtime.LockOSThread()
	if err := setThreadName(name); err != nil {
		logger.Debug("thread name not applied", F("thread", name), F("error", err))
	}
	return threadID()
}
