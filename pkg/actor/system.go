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
	"github.com/Westmist/Vanta-sub000/pkg/clock"
	cerrors "github.com/Westmist/Vanta-sub000/pkg/errors"
	"github.com/Westmist/Vanta-sub000/pkg/logutil"
	"github.com/Westmist/Vanta-sub000/pkg/workerpool"
	"github.com/pingcap/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// System is a registry of actors sharing one executor.
type System struct {
	name          string
	executor      workerpool.Executor
	clock         clock.Clock
	defaultConfig *Config
	logger        *zap.Logger
	metrics       *systemMetrics
	// rejectLimiter throttles the warnings about rejected messages.
	rejectLimiter *rate.Limiter

	// actors maps ID to process.
	actors sync.Map
	count  atomic.Int64
	nextID atomic.Uint64

	// closeMu makes registration and Shutdown mutually exclusive, so no
	// actor can be registered after Shutdown has stopped the others.
	closeMu sync.RWMutex
	closed  atomic.Bool
}

// SystemOption configures a System.
type SystemOption func(*System)

// WithDefaultConfig sets the config used by GetOrSpawn, and by Spawn when
// it is given a nil config.
func WithDefaultConfig(cfg *Config) SystemOption {
	return func(s *System) {
		s.defaultConfig = cfg.Clone()
	}
}

// WithClock sets the clock used for mailbox waits and envelope timestamps.
// Timers use the executor's clock.
func WithClock(c clock.Clock) SystemOption {
	return func(s *System) {
		s.clock = c
	}
}

// WithLogger sets the logger of the system.
func WithLogger(logger *zap.Logger) SystemOption {
	return func(s *System) {
		s.logger = logger
	}
}

// NewSystem creates an actor system that runs its actors on executor.
// The system owns the executor and shuts it down in Shutdown.
func NewSystem(name string, executor workerpool.Executor, opts ...SystemOption) (*System, error) {
	if executor == nil {
		return nil, cerrors.ErrInvalidActorConfig.GenWithStackByArgs("executor must not be nil")
	}
	s := &System{
		name:          name,
		executor:      executor,
		defaultConfig: DefaultConfig(),
		rejectLimiter: rate.NewLimiter(rate.Every(time.Second*5), 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.defaultConfig.ValidateAndAdjust(); err != nil {
		return nil, errors.Trace(err)
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.logger == nil {
		s.logger = logutil.NewLogger4System(name)
	}
	s.metrics = newSystemMetrics(name)
	s.logger.Info("actor system started",
		zap.Stringer("executor", executor.Kind()),
		zap.Int("defaultMailboxCapacity", s.defaultConfig.MailboxCapacity))
	return s, nil
}

// Name returns the name of the system.
func (s *System) Name() string {
	return s.name
}

// Executor returns the executor the actors run on.
func (s *System) Executor() workerpool.Executor {
	return s.executor
}

// DefaultConfig returns a copy of the default actor config.
func (s *System) DefaultConfig() *Config {
	return s.defaultConfig.Clone()
}

// IsClosed returns true after Shutdown.
func (s *System) IsClosed() bool {
	return s.closed.Load()
}

// Spawn creates an actor with the given initial state and behavior and
// starts it. A nil cfg means the system's default config. It fails with
// ErrDuplicateActorID if a live actor already has the same ID.
func Spawn[S, M any](
	sys *System, id ID, initial S, behavior Behavior[S, M], cfg *Config,
) (Ref, error) {
	a, err := prepare(sys, id, initial, behavior, cfg)
	if err != nil {
		return Ref{}, err
	}
	actual, loaded, err := sys.register(id, a)
	if err != nil {
		return Ref{}, err
	}
	if loaded {
		return Ref{}, cerrors.ErrDuplicateActorID.GenWithStackByArgs(actual.id())
	}
	a.schedule()
	return a.ref(), nil
}

// GetOrSpawn returns the live actor with the given ID, or spawns one with
// the default config. Concurrent calls for the same ID all return the same
// actor.
func GetOrSpawn[S, M any](
	sys *System, id ID, initial S, behavior Behavior[S, M],
) (Ref, error) {
	if ref, ok := sys.Lookup(id); ok {
		return ref, nil
	}
	a, err := prepare(sys, id, initial, behavior, nil)
	if err != nil {
		return Ref{}, err
	}
	actual, loaded, err := sys.register(id, a)
	if err != nil {
		return Ref{}, err
	}
	if loaded {
		return Ref{p: actual}, nil
	}
	a.schedule()
	return a.ref(), nil
}

func prepare[S, M any](
	sys *System, id ID, initial S, behavior Behavior[S, M], cfg *Config,
) (*actor[S, M], error) {
	if behavior == nil {
		return nil, cerrors.ErrInvalidActorConfig.GenWithStackByArgs("behavior must not be nil")
	}
	if cfg == nil {
		cfg = sys.defaultConfig
	}
	cfg = cfg.Clone()
	if err := cfg.ValidateAndAdjust(); err != nil {
		return nil, errors.Trace(err)
	}
	return newActor(sys, id, initial, behavior, cfg), nil
}

// register inserts p unless a live actor holds id. It returns the actor that
// ends up registered and whether it was already there.
func (s *System) register(id ID, p process) (process, bool, error) {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed.Load() {
		return nil, false, cerrors.ErrActorSystemClosed.GenWithStackByArgs(s.name)
	}
	for {
		actual, loaded := s.actors.LoadOrStore(id, p)
		if !loaded {
			break
		}
		old := actual.(process)
		if !old.isStopped() {
			return old, true, nil
		}
		// The previous actor has stopped but has not removed itself yet.
		if s.actors.CompareAndSwap(id, old, p) {
			break
		}
	}
	s.metrics.aliveActors.Set(float64(s.count.Inc()))
	return p, false, nil
}

// remove unregisters p. An actor spawned later with the same ID is kept.
func (s *System) remove(id ID, p process) {
	s.actors.CompareAndDelete(id, p)
	s.metrics.aliveActors.Set(float64(s.count.Dec()))
}

func (s *System) lookup(id ID) (process, bool) {
	v, ok := s.actors.Load(id)
	if !ok {
		return nil, false
	}
	p := v.(process)
	if p.isStopped() {
		return nil, false
	}
	return p, true
}

// Lookup returns the actor with the given ID. It returns false if the actor
// does not exist or has stopped.
func (s *System) Lookup(id ID) (Ref, bool) {
	p, ok := s.lookup(id)
	if !ok {
		return Ref{}, false
	}
	return Ref{p: p}, true
}

// Stop requests a graceful stop of an actor: new messages are rejected and
// the queued ones are still processed. It returns false if no live actor
// has the ID.
func (s *System) Stop(id ID) bool {
	p, ok := s.lookup(id)
	if !ok {
		return false
	}
	p.stop()
	return true
}

// Tell sends msg to an actor without waiting for a response. It returns
// true only if msg has been enqueued.
func (s *System) Tell(id ID, msg any) bool {
	return s.send(id, msg, nil) == nil
}

// Send is like Tell, but it returns the reason of a rejection:
// ErrActorNotFound, ErrActorStopped, ErrMailboxFull, ErrMailboxClosed or
// ErrMessageTypeMismatch.
func (s *System) Send(id ID, msg any) error {
	return s.send(id, msg, nil)
}

func (s *System) send(id ID, msg any, sender *Ref) error {
	p, ok := s.lookup(id)
	if !ok {
		return cerrors.ErrActorNotFound.GenWithStackByArgs(id)
	}
	return p.deliver(msg, sender, nil)
}

// Ask sends msg to an actor and returns a future that is completed by the
// actor's reply, or with nil once the message has been processed without a
// reply. The future fails immediately if msg cannot be enqueued.
//
// Ask has no timeout, use Future.Wait with a deadline to bound the wait.
func (s *System) Ask(id ID, msg any) *Future {
	return s.ask(id, msg, nil)
}

func (s *System) ask(id ID, msg any, sender *Ref) *Future {
	p, ok := s.lookup(id)
	if !ok {
		return FailedFuture(cerrors.ErrActorNotFound.GenWithStackByArgs(id))
	}
	return ask(p, msg, sender)
}

// ActorCount returns the number of actors that have not stopped.
func (s *System) ActorCount() int {
	return int(s.count.Load())
}

// Shutdown stops every actor, clears the registry and shuts the executor
// down. Actors drain their mailboxes before they stop. Use
// AwaitTermination to wait for them.
func (s *System) Shutdown() {
	s.closeMu.Lock()
	if s.closed.Swap(true) {
		s.closeMu.Unlock()
		return
	}
	s.closeMu.Unlock()

	stopped := 0
	s.actors.Range(func(key, value any) bool {
		if value.(process).stop() {
			stopped++
		}
		s.actors.Delete(key)
		return true
	})
	s.executor.Shutdown()
	s.logger.Info("actor system shut down", zap.Int("stoppedActors", stopped))
}

// AwaitTermination waits for the executor to finish after Shutdown. It
// returns false if the timeout expires first.
func (s *System) AwaitTermination(timeout time.Duration) bool {
	ok := s.executor.AwaitTermination(timeout)
	if ok {
		s.metrics.cleanup()
	}
	return ok
}

func (s *System) nextScheduleID() message.ScheduleID {
	return message.ScheduleID(s.nextID.Inc())
}

// onRejected counts a rejected message and logs it, at most once every few
// seconds.
func (s *System) onRejected(id ID, tp message.Type, err error) {
	if cerrors.ErrMailboxFull.Equal(err) {
		s.metrics.rejectionsFull.Inc()
	} else {
		s.metrics.rejectionsClosed.Inc()
	}
	if s.rejectLimiter.Allow() {
		s.logger.Warn("actor rejected a message",
			logutil.ActorIDField(string(id)),
			zap.Stringer("type", tp),
			zap.Error(err))
	}
}
