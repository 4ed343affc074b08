package core

import (
	"time"

	"github.com/google/uuid"
)

// Runner types reported in execution records and stats.
const (
	RunnerTypeThreadPool = "threadpool"
	RunnerTypeWorker     = "worker"
)

// TaskID identifies one task execution in the history.
type TaskID uuid.UUID

// GenerateTaskID returns a fresh random TaskID.
func GenerateTaskID() TaskID {
	return TaskID(uuid.New())
}

// IsZero reports whether id is the zero TaskID.
func (id TaskID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id TaskID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText encodes id in its canonical UUID form.
func (id TaskID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// UnmarshalText parses a canonical UUID.
func (id *TaskID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}

// TaskExecutionRecord captures a completed task execution event.
type TaskExecutionRecord struct {
	TaskID     TaskID
	Name       string
	RunnerName string
	RunnerType string
	ThreadName string
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Panicked   bool
}

// RunnerStats represents runtime observability state for a Worker.
type RunnerStats struct {
	Name         string
	Type         string
	Pending      int
	Running      int
	Rejected     int64
	Panicked     int64
	Closed       bool
	LastTaskName string
	LastTaskAt   time.Time
}

// PoolStats represents runtime observability state for a ThreadPool.
type PoolStats struct {
	ID        string
	Workers   int
	Queued    int
	Active    int
	Completed int64
	Rejected  int64
	Panicked  int64
	Running   bool
}
