package typing

import "time"

// Task is a scheduled callback that can be cancelled.
type Task interface {
	// Stop cancels the task. It reports false if the task already ran or was stopped.
	Stop() bool
}

// Scheduler runs a callback once after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Task
	Now() time.Time
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, fn func()) Task {
	return time.AfterFunc(d, fn)
}

func (realScheduler) Now() time.Time {
	return time.Now()
}

// RealScheduler is the Scheduler backed by time.AfterFunc.
var RealScheduler Scheduler = realScheduler{}
