package core

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolClosed is raised when a task is submitted to a ThreadPool that has begun closing.
	ErrPoolClosed = errors.New("taskrt: attempted to submit task to expired thread pool")

	// ErrWorkerClosed is raised when a task is submitted to a Worker that has been closed.
	ErrWorkerClosed = errors.New("taskrt: attempted to submit task to closed worker")

	// ErrTaskConsumed is raised when a Task is invoked a second time.
	ErrTaskConsumed = errors.New("taskrt: task already invoked")

	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("taskrt: invalid configuration")
)

// WorkerPanic carries a panic recovered on a worker thread. Close re-raises it
// in the closing goroutine.
type WorkerPanic struct {
	Worker string
	Value  any
	Stack  []byte
}

func (p *WorkerPanic) Error() string {
	return fmt.Sprintf("taskrt: worker %s panicked: %v", p.Worker, p.Value)
}

// Unwrap exposes the panic value when it was an error.
func (p *WorkerPanic) Unwrap() error {
	if err, ok := p.Value.(error); ok {
		return err
	}
	return nil
}
