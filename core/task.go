package core

import (
	"reflect"
	"runtime"
	"sync/atomic"
)

// Task is a one-shot unit of work: a captured, argument-less closure that runs
// exactly once.
type Task struct {
	fn       func()
	name     string
	consumed atomic.Bool
}

// NewTask wraps fn in a Task. It panics if fn is nil.
func NewTask(fn func()) *Task {
	return NewNamedTask("", fn)
}

// NewNamedTask wraps fn in a Task carrying name for execution history and logs.
// An empty name is replaced by the function's symbol name.
func NewNamedTask(name string, fn func()) *Task {
	if fn == nil {
		panic("taskrt: nil task function")
	}
	return &Task{fn: fn, name: resolveTaskName(fn, name)}
}

// Name returns the task's display name.
func (t *Task) Name() string {
	return t.name
}

// Invoke runs the task. A second call panics with ErrTaskConsumed.
func (t *Task) Invoke() {
	if !t.consumed.CompareAndSwap(false, true) {
		panic(ErrTaskConsumed)
	}
	fn := t.fn
	// Drop the closure so its captured state can be collected once it returns.
	t.fn = nil
	fn()
}

func resolveTaskName(fn func(), explicit string) string {
	if explicit != "" {
		return explicit
	}

	pc := reflect.ValueOf(fn).Pointer()
	if pc == 0 {
		return "anonymous"
	}

	f := runtime.FuncForPC(pc)
	if f == nil || f.Name() == "" {
		return "anonymous"
	}
	return f.Name()
}
