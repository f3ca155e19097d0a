// Copyright 2024 The Vanta Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package workerpool

import (
	"runtime"
	"strings"
	"time"

	"github.com/Westmist/Vanta-sub000/pkg/clock"
	cerrors "github.com/Westmist/Vanta-sub000/pkg/errors"
)

// Kind selects how an Executor maps keys onto goroutines.
type Kind int

const (
	// KindElastic runs every task on a fresh goroutine and serializes tasks
	// of the same key with a per-key mutex.
	KindElastic Kind = iota + 1
	// KindSharded pins every key to one of a fixed number of single
	// goroutine lanes.
	KindSharded
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindElastic:
		return "elastic"
	case KindSharded:
		return "sharded"
	}
	return "unknown"
}

// ParseKind parses "elastic" or "sharded", case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "elastic":
		return KindElastic, nil
	case "sharded":
		return KindSharded, nil
	}
	return 0, cerrors.ErrUnknownExecutorKind.GenWithStackByArgs(s)
}

// TimerID identifies a task registered by ScheduleOnce or SchedulePeriodic.
type TimerID uint64

// InvalidTimerID is never returned for a successfully scheduled task.
const InvalidTimerID TimerID = 0

// Executor runs tasks so that two tasks submitted with the same key never run
// concurrently. Only the sharded executor keeps the submission order of one
// key; callers that need order submit the next task from the running one.
//
// Timers never run a task themselves: when they fire, the task is submitted
// under its key exactly like a Submit call.
type Executor interface {
	// Submit queues task for execution under key. It never blocks.
	// It returns ErrWorkerPoolClosed after Shutdown.
	Submit(key string, task func()) error
	// ScheduleOnce submits task under key after delay.
	// It returns ErrSchedulerRejected after Shutdown.
	ScheduleOnce(key string, delay time.Duration, task func()) (TimerID, error)
	// SchedulePeriodic submits task under key after initialDelay and then
	// every period, until the timer is cancelled or the executor shuts down.
	SchedulePeriodic(key string, initialDelay, period time.Duration, task func()) (TimerID, error)
	// CancelSchedule cancels a timer. It returns false if the timer has
	// already fired (one-shot), been cancelled, or never existed.
	CancelSchedule(id TimerID) bool
	// Shutdown stops all timers and rejects new tasks. Tasks that were
	// already accepted still run.
	Shutdown()
	// AwaitTermination waits for the timers, then the workers, to finish
	// after Shutdown. It returns false if the deadline is exceeded or
	// Shutdown has not been called.
	AwaitTermination(timeout time.Duration) bool
	// Kind returns the implementation kind.
	Kind() Kind
}

type options struct {
	clock clock.Clock
	name  string
}

// Option configures an Executor.
type Option func(*options)

// WithClock sets the clock that drives timers.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithName sets the name used as metrics label and in logs.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// DefaultParallelism is the lane count used by the sharded executor when
// none is given.
func DefaultParallelism() int {
	return runtime.GOMAXPROCS(0)
}

// New creates an Executor of the given kind. parallelism is the number of
// lanes of a sharded executor, a non-positive value means
// DefaultParallelism. It is ignored by the elastic executor.
func New(kind Kind, parallelism int, opts ...Option) (Executor, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	if o.name == "" {
		o.name = kind.String()
	}

	switch kind {
	case KindElastic:
		return newElasticPool(o), nil
	case KindSharded:
		if parallelism <= 0 {
			parallelism = DefaultParallelism()
		}
		return newShardedPool(o, parallelism), nil
	}
	return nil, cerrors.ErrUnknownExecutorKind.GenWithStackByArgs(kind.String())
}

// waitTimeout waits for done until deadline and reports whether it was closed.
func waitTimeout(done <-chan struct{}, deadline time.Time) bool {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
