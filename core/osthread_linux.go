//go:build linux

package core

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// maxThreadNameLen is the kernel's TASK_COMM_LEN minus the trailing NUL.
const maxThreadNameLen = 15

// setThreadName names the calling OS thread. Names longer than the kernel
// limit are truncated.
func setThreadName(name string) error {
	if len(name) > maxThreadNameLen {
		name = name[:maxThreadNameLen]
	}
	p, err := unix.BytePtrFromString(name)
	if err != nil {
		return err
	}
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(p)), 0, 0, 0)
}

func threadID() int {
	return unix.Gettid()
}
