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

// Package actor provides an actor system for game servers. Every stateful
// entity, a player or a room, is an actor that owns its state and a mailbox,
// and processes its messages one at a time, in order.
//
// The following diagram shows how a message reaches a behavior.
//
//	,--------.        ,------.        ,-------.        ,--------.       ,--------.
//	|Producer|        |System|        |Mailbox|        |Executor|       |Behavior|
//	`---+----'        `--+---'        `---+---'        `---+----'       `---+----'
//	    | Tell(id, msg)  |                |                |                |
//	    |--------------->|                |                |                |
//	    |                |----.           |                |                |
//	    |                |    | lookup(id)|                |                |
//	    |                |<---'           |                |                |
//	    |                | Enqueue(env)   |                |                |
//	    |                |--------------->|                |                |
//	    |                |                |                |                |
//	    |                |----.           |                |                |
//	    |                |    | CAS processing false -> true                |
//	    |                |<---'           |                |                |
//	    |                |   Submit(id, pump)              |                |
//	    |                |-------------------------------->|                |
//	    |                |                |   TryDequeue   |                |
//	    |                |                |<---------------|                |
//	    |                |                |      env       |                |
//	    |                |                |--------------->|                |
//	    |                |                |                | (ctx, state, m)|
//	    |                |                |                |--------------->|
//	    |                |                |                |    new state   |
//	    |                |                |                |<---------------|
//	    |                |                |   TryDequeue   |                |
//	    |                |                |<---------------|                |
//	    |                |                |     empty      |                |
//	    |                |                |--------------->|                |
//	    |                |                |                |----.           |
//	    |                |                |                |    | processing = false,
//	    |                |                |                |    | re-check IsEmpty
//	    |                |                |                |<---'           |
//	,---+----.        ,--+---.        ,---+---.        ,---+----.       ,---+----.
//	|Producer|        |System|        |Mailbox|        |Executor|       |Behavior|
//	`--------'        `------'        `-------'        `--------'       `--------'
//
// An actor is Active, Stopping or Stopped. Stop closes the mailbox; the
// messages that were already queued are still processed, then the behavior
// receives a TypeStop message and the actor is removed from the system.
//
// The executor decides where a pump runs. The elastic executor starts a
// goroutine per pump and serializes the pumps of one actor with a per-actor
// mutex. The sharded executor pins each actor to one of a fixed number of
// single goroutine lanes.
package actor
