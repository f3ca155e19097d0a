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
	"sync"
	"time"

	"github.com/Westmist/Vanta-sub000/pkg/clock"
	cerrors "github.com/Westmist/Vanta-sub000/pkg/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

type submitFunc func(key string, task func()) error

type timerEntry struct {
	id     TimerID
	key    string
	task   func()
	period time.Duration
	next   time.Time
	timer  *clock.Timer
}

// scheduler owns the timers of an executor. A fired timer only hands its
// task to submit, so user code always runs on the executor's workers.
type scheduler struct {
	clock   clock.Clock
	submit  submitFunc
	metrics *poolMetrics

	mu     sync.Mutex
	timers map[TimerID]*timerEntry
	nextID TimerID
	closed bool

	// inflight counts fired timers that are handing their task over.
	inflight sync.WaitGroup
}

func newScheduler(c clock.Clock, submit submitFunc, metrics *poolMetrics) *scheduler {
	return &scheduler{
		clock:   c,
		submit:  submit,
		metrics: metrics,
		timers:  make(map[TimerID]*timerEntry),
	}
}

// ScheduleOnce implements Executor.
func (s *scheduler) ScheduleOnce(key string, delay time.Duration, task func()) (TimerID, error) {
	return s.add(key, delay, 0, task)
}

// SchedulePeriodic implements Executor.
func (s *scheduler) SchedulePeriodic(
	key string, initialDelay, period time.Duration, task func(),
) (TimerID, error) {
	if period <= 0 {
		return InvalidTimerID, cerrors.ErrInvalidSchedulePeriod.GenWithStackByArgs(period)
	}
	return s.add(key, initialDelay, period, task)
}

func (s *scheduler) add(key string, delay, period time.Duration, task func()) (TimerID, error) {
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return InvalidTimerID, cerrors.ErrSchedulerRejected.GenWithStackByArgs()
	}

	s.nextID++
	e := &timerEntry{
		id:     s.nextID,
		key:    key,
		task:   task,
		period: period,
		next:   s.clock.Now().Add(delay),
	}
	e.timer = s.clock.AfterFunc(delay, func() { s.fire(e) })
	s.timers[e.id] = e
	s.metrics.scheduledTimers.Inc()
	return e.id, nil
}

func (s *scheduler) fire(e *timerEntry) {
	s.mu.Lock()
	if s.closed || s.timers[e.id] != e {
		// Cancelled while the timer was firing.
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	if e.period == 0 {
		delete(s.timers, e.id)
		s.metrics.scheduledTimers.Dec()
	} else {
		// Fixed rate. A timer that fell behind skips the missed periods
		// instead of firing a burst.
		now := s.clock.Now()
		e.next = e.next.Add(e.period)
		d := e.next.Sub(now)
		if d <= 0 {
			e.next = now.Add(e.period)
			d = e.period
		}
		e.timer = s.clock.AfterFunc(d, func() { s.fire(e) })
	}
	s.mu.Unlock()
	defer s.inflight.Done()

	if err := s.submit(e.key, e.task); err != nil {
		log.Debug("timer task dropped",
			zap.String("key", e.key),
			zap.Uint64("timerID", uint64(e.id)),
			zap.Error(err))
	}
}

// CancelSchedule implements Executor.
func (s *scheduler) CancelSchedule(id TimerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.timers[id]
	if !ok {
		return false
	}
	delete(s.timers, id)
	e.timer.Stop()
	s.metrics.scheduledTimers.Dec()
	return true
}

// shutdown stops every timer. After it returns no timer starts firing.
func (s *scheduler) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, e := range s.timers {
		e.timer.Stop()
		delete(s.timers, id)
	}
	s.metrics.scheduledTimers.Set(0)
}

// awaitTermination waits for fired timers that are still submitting.
func (s *scheduler) awaitTermination(deadline time.Time) bool {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	return waitTimeout(done, deadline)
}

func (s *scheduler) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
