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
	"github.com/Westmist/Vanta-sub000/pkg/actor/message"
	"github.com/Westmist/Vanta-sub000/pkg/clock"
	cerrors "github.com/Westmist/Vanta-sub000/pkg/errors"
	"github.com/Westmist/Vanta-sub000/pkg/logutil"
	"github.com/pingcap/failpoint"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type status = int32

const (
	// statusActive accepts messages.
	statusActive status = iota
	// statusStopping rejects new messages and drains the queued ones.
	statusStopping
	// statusStopped is terminal.
	statusStopped
)

var _ cell[int] = (*actor[struct{}, int])(nil)

// actor owns a state and a mailbox. Its pump drains the mailbox on the
// executor under the actor's ID, so at most one behavior call is in flight.
type actor[S, M any] struct {
	actorID  ID
	sys      *System
	cfg      *Config
	behavior Behavior[S, M]
	mailbox  *Mailbox[*Envelope[M]]
	timers   *scheduleSet
	log      *zap.Logger

	// state and started are only accessed by the pump.
	state   S
	started bool

	// processing is the drain lock: whoever flips it to true owns the pump.
	processing atomic.Bool
	status     atomic.Int32
	doneCh     chan struct{}
}

func newActor[S, M any](
	sys *System, id ID, initial S, behavior Behavior[S, M], cfg *Config,
) *actor[S, M] {
	return &actor[S, M]{
		actorID:  id,
		sys:      sys,
		cfg:      cfg,
		behavior: behavior,
		mailbox: NewMailbox[*Envelope[M]](
			cfg.MailboxCapacity, cfg.MailboxOfferTimeout, sys.clock),
		timers: newScheduleSet(),
		log:    sys.logger.With(logutil.ActorIDField(string(id))),
		state:  initial,
		doneCh: make(chan struct{}),
	}
}

func (a *actor[S, M]) id() ID {
	return a.actorID
}

func (a *actor[S, M]) system() *System {
	return a.sys
}

func (a *actor[S, M]) schedules() *scheduleSet {
	return a.timers
}

func (a *actor[S, M]) logger() *zap.Logger {
	return a.log
}

func (a *actor[S, M]) done() <-chan struct{} {
	return a.doneCh
}

func (a *actor[S, M]) isStopped() bool {
	return a.status.Load() == statusStopped
}

func (a *actor[S, M]) ref() Ref {
	return Ref{p: a}
}

// deliver implements process.
func (a *actor[S, M]) deliver(msg any, sender *Ref, promise *Promise) error {
	m, ok := a.convert(msg)
	if !ok {
		return cerrors.ErrMessageTypeMismatch.GenWithStackByArgs(a.actorID, msg)
	}
	env := &Envelope[M]{
		Message:   message.ValueMessage(m),
		Sender:    sender,
		Promise:   promise,
		Timestamp: a.sys.clock.Now(),
	}
	return a.post(env, true)
}

func (a *actor[S, M]) convert(msg any) (M, bool) {
	if m, ok := msg.(M); ok {
		return m, true
	}
	var zero M
	// A nil message is accepted by actors whose message type is an interface.
	if msg == nil && any(zero) == nil {
		return zero, true
	}
	return zero, false
}

// post enqueues env and makes sure a pump will see it.
func (a *actor[S, M]) post(env *Envelope[M], wait bool) error {
	if a.isStopped() {
		return cerrors.ErrActorStopped.GenWithStackByArgs(a.actorID)
	}
	var err error
	if wait {
		err = a.mailbox.Enqueue(env)
	} else {
		err = a.mailbox.TryEnqueue(env)
	}
	if err != nil {
		a.sys.onRejected(a.actorID, env.Message.Tp, err)
		return err
	}
	a.schedule()
	return nil
}

// stop implements process.
func (a *actor[S, M]) stop() bool {
	if !a.status.CompareAndSwap(statusActive, statusStopping) {
		return false
	}
	a.mailbox.Close()
	a.schedule()
	return true
}

// schedule submits a pump unless one is already running or about to run.
func (a *actor[S, M]) schedule() {
	if !a.processing.CompareAndSwap(false, true) {
		return
	}
	if err := a.sys.executor.Submit(string(a.actorID), a.pump); err != nil {
		// The executor has been shut down, drain on the caller's goroutine
		// so that queued asks are still answered.
		a.log.Debug("executor rejected the pump, drain inline", zap.Error(err))
		a.pump()
	}
}

// pump drains the mailbox. It is the only place where the behavior is
// called, and it runs only while processing is true.
func (a *actor[S, M]) pump() {
	if !a.started {
		a.started = true
		if !a.processSystem(message.StartMessage[M]()) {
			return
		}
	}

	processed := 0
	for {
		env, ok := a.mailbox.TryDequeue()
		if ok {
			if !a.processMessage(env) {
				return
			}
			processed++
			if processed >= a.cfg.Throughput {
				if a.yield() {
					return
				}
				processed = 0
			}
			continue
		}

		if a.status.Load() == statusStopping {
			a.finish()
			return
		}

		// Release the drain lock, then check again: a producer may have
		// enqueued after TryDequeue failed but before the flag was reset,
		// and it could not schedule a pump because the flag was still set.
		a.processing.Store(false)
		if a.mailbox.IsEmpty() && a.status.Load() == statusActive {
			return
		}
		if !a.processing.CompareAndSwap(false, true) {
			// Another pump has taken over.
			return
		}
	}
}

// yield re-submits the pump so that other keys sharing the worker can run.
// It returns false if the executor refused, in which case the caller keeps
// draining.
func (a *actor[S, M]) yield() bool {
	if a.mailbox.IsEmpty() {
		return false
	}
	failpoint.Inject("ActorSkipYield", func() {
		failpoint.Return(false)
	})
	return a.sys.executor.Submit(string(a.actorID), a.pump) == nil
}

// processMessage handles one envelope. It returns false if the actor stopped
// because of a failure.
func (a *actor[S, M]) processMessage(env *Envelope[M]) bool {
	if env.Message.Tp == message.TypeTick && !a.timers.contains(env.Message.ScheduleID) {
		// The schedule was cancelled after this tick had been queued.
		return true
	}
	ctx := newContext[M](a, env.Message, env)
	newState, err := a.invoke(ctx)
	if err != nil {
		env.fail(err)
		return a.onFailure(err)
	}
	a.state = newState
	if !ctx.deferred {
		// Completes with nil if the behavior did not reply.
		env.complete(nil)
	}
	return true
}

// processSystem handles a lifecycle message. It returns false if the actor
// stopped because of a failure.
func (a *actor[S, M]) processSystem(msg message.Message[M]) bool {
	ctx := newContext[M](a, msg, nil)
	newState, err := a.invoke(ctx)
	if err != nil {
		if msg.Tp == message.TypeStop {
			return true
		}
		return a.onFailure(err)
	}
	if msg.Tp != message.TypeStop {
		a.state = newState
	}
	return true
}

// invoke calls the behavior and turns a returned error or a recovered panic
// into a behavior error.
func (a *actor[S, M]) invoke(ctx *Context[M]) (newState S, err error) {
	start := clock.MonoNow()
	defer func() {
		if r := recover(); r != nil {
			if !a.cfg.SuperviseExceptions {
				a.crash(ctx, r)
				panic(r)
			}
			a.log.Error("actor behavior panicked",
				zap.Stringer("type", ctx.msg.Tp), zap.Any("panic", r), zap.Stack("stack"))
			newState, err = a.state, cerrors.ErrBehaviorPanicked.GenWithStackByArgs(a.actorID, r)
		}
		a.sys.metrics.processDuration.Observe(clock.MonoNow().Sub(start).Seconds())
		a.sys.metrics.processedMessages.WithLabelValues(ctx.msg.Tp.String()).Inc()
		if err != nil {
			a.sys.metrics.behaviorFailures.Inc()
		}
	}()

	failpoint.Inject("ActorBehaviorPanic", func() {
		panic("injected behavior panic")
	})
	newState, err = a.behavior(ctx, a.state, ctx.msg)
	if err != nil {
		a.log.Warn("actor behavior failed",
			zap.Stringer("type", ctx.msg.Tp), zap.Error(err))
		err = cerrors.ErrBehaviorExecution.Wrap(err).GenWithStackByArgs(a.actorID)
	}
	return newState, err
}

// onFailure applies the failure policy. It returns false if the actor
// stopped.
func (a *actor[S, M]) onFailure(err error) bool {
	if a.cfg.ContinueOnException {
		return true
	}
	a.log.Warn("actor stops after a behavior failure", zap.Error(err))
	a.status.Store(statusStopping)
	a.mailbox.Close()
	a.discard()
	a.finish()
	return false
}

// crash tears the actor down before an unsupervised panic unwinds the
// worker.
func (a *actor[S, M]) crash(ctx *Context[M], r any) {
	a.log.Error("actor behavior panicked without supervision",
		zap.Stringer("type", ctx.msg.Tp), zap.Any("panic", r), zap.Stack("stack"))
	if ctx.promise != nil {
		ctx.promise.Fail(cerrors.ErrBehaviorPanicked.GenWithStackByArgs(a.actorID, r))
	}
	a.status.Store(statusStopping)
	a.mailbox.Close()
	a.discard()
	a.terminate()
}

// discard fails every queued ask. The mailbox must be closed.
func (a *actor[S, M]) discard() {
	for {
		env, ok := a.mailbox.TryDequeue()
		if !ok {
			return
		}
		env.fail(cerrors.ErrActorStopped.GenWithStackByArgs(a.actorID))
	}
}

// finish delivers the stop message and terminates the actor. The mailbox
// must be closed and drained.
func (a *actor[S, M]) finish() {
	a.status.Store(statusStopped)
	a.processSystem(message.StopMessage[M]())
	a.terminate()
}

// terminate releases everything the actor holds in the system.
func (a *actor[S, M]) terminate() {
	a.status.Store(statusStopped)
	for _, tid := range a.timers.close() {
		a.sys.executor.CancelSchedule(tid)
	}
	a.sys.remove(a.actorID, a)
	close(a.doneCh)
	a.log.Debug("actor stopped")
}
