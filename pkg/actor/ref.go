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
	cerrors "github.com/Westmist/Vanta-sub000/pkg/errors"
)

// ID is ID for actors. It is unique among the live actors of a system.
type ID string

// process is the type-erased view of an actor used by the system and by refs.
type process interface {
	id() ID
	system() *System
	// deliver enqueues a payload. msg must be of the actor's message type.
	deliver(msg any, sender *Ref, promise *Promise) error
	// stop moves the actor from Active to Stopping. It returns false if the
	// actor was not Active.
	stop() bool
	isStopped() bool
	done() <-chan struct{}
}

// Ref is a lightweight handle to an actor. It can be copied and shared
// freely. A Ref keeps pointing at the actor it was created for, even if
// another actor is later spawned with the same ID.
type Ref struct {
	p process
}

// ID returns the ID of the actor.
func (r Ref) ID() ID {
	if r.p == nil {
		return ""
	}
	return r.p.id()
}

// IsZero returns true if r does not refer to any actor.
func (r Ref) IsZero() bool {
	return r.p == nil
}

// Tell sends msg without waiting for a response. It returns false if msg was
// not enqueued.
func (r Ref) Tell(msg any) bool {
	return r.Send(msg) == nil
}

// Send is like Tell, but it returns the reason of a rejection.
func (r Ref) Send(msg any) error {
	if r.p == nil {
		return cerrors.ErrActorNotFound.GenWithStackByArgs("")
	}
	return r.p.deliver(msg, nil, nil)
}

// Ask sends msg and returns a future completed by the actor.
func (r Ref) Ask(msg any) *Future {
	if r.p == nil {
		return FailedFuture(cerrors.ErrActorNotFound.GenWithStackByArgs(""))
	}
	return ask(r.p, msg, nil)
}

// Stop requests a graceful stop. It returns false if the actor was not
// active.
func (r Ref) Stop() bool {
	if r.p == nil {
		return false
	}
	return r.p.stop()
}

// IsStopped returns true once the actor has reached its terminal state.
func (r Ref) IsStopped() bool {
	return r.p == nil || r.p.isStopped()
}

// Done returns a channel that is closed when the actor has stopped.
func (r Ref) Done() <-chan struct{} {
	if r.p == nil {
		return closedCh
	}
	return r.p.done()
}

// String implements fmt.Stringer.
func (r Ref) String() string {
	if r.p == nil {
		return "actor(<nil>)"
	}
	return "actor(" + string(r.p.id()) + "@" + r.p.system().Name() + ")"
}

var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func ask(p process, msg any, sender *Ref) *Future {
	promise := NewPromise()
	if err := p.deliver(msg, sender, promise); err != nil {
		promise.Fail(err)
	}
	return promise.Future()
}
