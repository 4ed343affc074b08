package core

import (
	"runtime/debug"
	"time"
)

const defaultTaskHistoryCapacity = 100

// taskObserver runs tasks on behalf of one pool or worker and reports each
// execution to the configured hooks and the execution history.
type taskObserver struct {
	runnerName string
	runnerType string
	config     RunnerConfig
	history    *RingBuffer[TaskExecutionRecord]
}

func newTaskObserver(runnerName, runnerType string, config RunnerConfig) *taskObserver {
	return &taskObserver{
		runnerName: runnerName,
		runnerType: runnerType,
		config:     config,
		history:    NewRingBuffer[TaskExecutionRecord](config.HistoryCapacity),
	}
}

// run invokes task on the calling thread. A panic is recovered, reported and
// returned so the caller can terminate its thread.
func (o *taskObserver) run(task *Task, threadName string) (wp *WorkerPanic) {
	startedAt := time.Now()

	defer func() {
		rec := recover()
		finishedAt := time.Now()
		record := TaskExecutionRecord{
			TaskID:     GenerateTaskID(),
			Name:       task.Name(),
			RunnerName: o.runnerName,
			RunnerType: o.runnerType,
			ThreadName: threadName,
			StartedAt:  startedAt,
			FinishedAt: finishedAt,
			Duration:   finishedAt.Sub(startedAt),
			Panicked:   rec != nil,
		}
		o.history.Push(record)
		o.config.Metrics.RecordTaskDuration(o.runnerName, record.Duration)

		if rec == nil {
			return
		}
		stack := debug.Stack()
		o.config.Metrics.RecordTaskPanic(o.runnerName, rec)
		o.config.PanicHandler.HandlePanic(o.runnerName, threadName, rec, stack)
		o.config.Logger.Error("task panicked",
			F("runner", o.runnerName),
			F("thread", threadName),
			F("task", record.Name),
			F("panic", rec),
		)
		wp = &WorkerPanic{Worker: threadName, Value: rec, Stack: stack}
	}()

	task.Invoke()
	return nil
}

func (o *taskObserver) reject(reason string) {
	o.config.Metrics.RecordTaskRejected(o.runnerName, reason)
	o.config.Logger.Warn("task rejected", F("runner", o.runnerName), F("reason", reason))
}

// recent returns up to n execution records, newest first.
func (o *taskObserver) recent(n int) []TaskExecutionRecord {
	records := o.history.Get(n)
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records
}

func (o *taskObserver) last() (TaskExecutionRecord, bool) {
	records := o.history.Get(1)
	if len(records) == 0 {
		return TaskExecutionRecord{}, false
	}
	return records[0], true
}
