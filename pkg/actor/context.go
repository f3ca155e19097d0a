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

package actor

import (
	"sync"
	"time"

	"github.com/Westmist/Vanta-sub000/pkg/actor/message"
	cerrors "github.com/Westmist/Vanta-sub000/pkg/errors"
	"github.com/Westmist/Vanta-sub000/pkg/workerpool"
	"github.com/pingcap/errors"
	"go.uber.org/zap"
)

// Behavior is the state transition function of an actor. It is never called
// concurrently for one actor. The returned state replaces the current one
// unless an error is returned.
type Behavior[S, M any] func(ctx *Context[M], state S, msg message.Message[M]) (S, error)

// cell is the typed view of an actor needed by its contexts.
type cell[M any] interface {
	process
	post(env *Envelope[M], wait bool) error
	schedules() *scheduleSet
	logger() *zap.Logger
}

// Context is created for every message handed to a behavior. It must not be
// retained after the behavior returns.
type Context[M any] struct {
	cell     cell[M]
	msg      message.Message[M]
	sender   *Ref
	promise  *Promise
	deferred bool
}

func newContext[M any](c cell[M], msg message.Message[M], env *Envelope[M]) *Context[M] {
	ctx := &Context[M]{cell: c, msg: msg}
	if env != nil {
		ctx.sender = env.Sender
		ctx.promise = env.Promise
	}
	return ctx
}

// Self returns a reference to the running actor.
func (c *Context[M]) Self() Ref {
	return Ref{p: c.cell}
}

// System returns the system the actor lives in.
func (c *Context[M]) System() *System {
	return c.cell.system()
}

// Sender returns the actor that sent the current message. It returns false
// if the message was not sent by an actor.
func (c *Context[M]) Sender() (Ref, bool) {
	if c.sender == nil {
		return Ref{}, false
	}
	return *c.sender, true
}

// Message returns the message being processed.
func (c *Context[M]) Message() message.Message[M] {
	return c.msg
}

// IsAsk returns true if the sender waits for a response.
func (c *Context[M]) IsAsk() bool {
	return c.promise != nil
}

// Reply completes the pending ask with v. Only the first reply is kept.
// It returns ErrReplyNotExpected if the message was sent by tell.
func (c *Context[M]) Reply(v any) error {
	if c.promise == nil {
		return cerrors.ErrReplyNotExpected.GenWithStackByArgs()
	}
	c.promise.Complete(v)
	return nil
}

// Future returns the response slot of the current message, nil for tell.
func (c *Context[M]) Future() *Future {
	if c.promise == nil {
		return nil
	}
	return c.promise.Future()
}

// DeferReply takes over the response slot of the current message. The ask
// is no longer completed when the behavior returns; the caller must complete
// the returned promise later. It returns nil for tell.
func (c *Context[M]) DeferReply() *Promise {
	if c.promise == nil {
		return nil
	}
	c.deferred = true
	return c.promise
}

// Tell sends msg to the actor id with the running actor as sender.
func (c *Context[M]) Tell(to ID, msg any) bool {
	self := c.Self()
	return c.System().send(to, msg, &self) == nil
}

// Ask sends msg to the actor id with the running actor as sender.
// The behavior must not block on the returned future if the target may ask
// back.
func (c *Context[M]) Ask(to ID, msg any) *Future {
	self := c.Self()
	return c.System().ask(to, msg, &self)
}

// Logger returns the logger of the running actor.
func (c *Context[M]) Logger() *zap.Logger {
	return c.cell.logger()
}

// ScheduleOnce delivers msg to the running actor after delay, as a
// TypeTimer message.
func (c *Context[M]) ScheduleOnce(msg M, delay time.Duration) (message.ScheduleID, error) {
	return c.schedule(func(sid message.ScheduleID, task func(message.Message[M])) (workerpool.TimerID, error) {
		return c.System().executor.ScheduleOnce(string(c.cell.id()), delay, func() {
			if _, ok := c.cell.schedules().remove(sid); !ok {
				// Cancelled while the task was queued behind the pump.
				return
			}
			task(message.TimerMessage(sid, msg))
		})
	})
}

// SchedulePeriodic delivers msg to the running actor after initialDelay and
// then every period, as TypeTick messages, until it is cancelled or the actor
// stops.
func (c *Context[M]) SchedulePeriodic(
	msg M, initialDelay, period time.Duration,
) (message.ScheduleID, error) {
	return c.schedule(func(sid message.ScheduleID, task func(message.Message[M])) (workerpool.TimerID, error) {
		return c.System().executor.SchedulePeriodic(string(c.cell.id()), initialDelay, period, func() {
			if !c.cell.schedules().contains(sid) {
				return
			}
			task(message.TickMessage(sid, msg))
		})
	})
}

// CancelSchedule cancels a schedule created by this actor. It returns false
// if the schedule has already finished or does not exist.
func (c *Context[M]) CancelSchedule(id message.ScheduleID) bool {
	tid, ok := c.cell.schedules().remove(id)
	if !ok {
		return false
	}
	return c.System().executor.CancelSchedule(tid)
}

type scheduleFunc[M any] func(sid message.ScheduleID, task func(message.Message[M])) (workerpool.TimerID, error)

func (c *Context[M]) schedule(fn scheduleFunc[M]) (message.ScheduleID, error) {
	sys := c.System()
	if sys.IsClosed() {
		return 0, cerrors.ErrSchedulerRejected.GenWithStackByArgs()
	}
	target := c.cell
	deliver := func(msg message.Message[M]) {
		env := &Envelope[M]{Message: msg, Timestamp: sys.clock.Now()}
		// Timers run under the actor's key, waiting for space here would
		// block the worker that drains the mailbox.
		_ = target.post(env, false)
	}

	set := c.cell.schedules()
	set.mu.Lock()
	defer set.mu.Unlock()
	if set.closed {
		return 0, cerrors.ErrActorStopped.GenWithStackByArgs(target.id())
	}
	sid := sys.nextScheduleID()
	tid, err := fn(sid, deliver)
	if err != nil {
		return 0, errors.Trace(err)
	}
	set.timers[sid] = tid
	return sid, nil
}

// scheduleSet tracks the timers owned by one actor, so that they can be
// cancelled when it stops.
type scheduleSet struct {
	mu     sync.Mutex
	timers map[message.ScheduleID]workerpool.TimerID
	closed bool
}

func newScheduleSet() *scheduleSet {
	return &scheduleSet{timers: make(map[message.ScheduleID]workerpool.TimerID)}
}

func (s *scheduleSet) remove(id message.ScheduleID) (workerpool.TimerID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tid, ok := s.timers[id]
	if ok {
		delete(s.timers, id)
	}
	return tid, ok
}

func (s *scheduleSet) contains(id message.ScheduleID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

func (s *scheduleSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// close rejects new schedules and returns the pending ones.
func (s *scheduleSet) close() []workerpool.TimerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	tids := make([]workerpool.TimerID, 0, len(s.timers))
	for sid, tid := range s.timers {
		tids = append(tids, tid)
		delete(s.timers, sid)
	}
	return tids
}
