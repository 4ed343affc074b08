//go:build !linux

package core

import "errors"

var errThreadNamesUnsupported = errors.New("taskrt: thread names are not supported on this platform")

func setThreadName(string) error { return errThreadNamesUnsupported }

func threadID() int { return -1 }
