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

package server

import (
	"time"

	"github.com/Westmist/Vanta-sub000/pkg/actor"
	"github.com/Westmist/Vanta-sub000/pkg/actor/message"
	"github.com/pingcap/errors"
)

const (
	heartbeatActorID         actor.ID = "vanta-heartbeat"
	defaultHeartbeatInterval          = time.Second
)

// heartbeatQuery asks the heartbeat actor for its status. It is also the
// payload of the periodic tick.
type heartbeatQuery struct{}

type heartbeatState struct {
	ticks    uint64
	lastBeat time.Time
}

// heartbeatStatus is the reply to a heartbeatQuery.
type heartbeatStatus struct {
	Ticks    uint64    `json:"ticks"`
	LastBeat time.Time `json:"last_beat"`
}

// heartbeatBehavior ticks every interval. A server whose heartbeat stalls
// has a starved executor.
func heartbeatBehavior(interval time.Duration) actor.Behavior[heartbeatState, heartbeatQuery] {
	return func(
		ctx *actor.Context[heartbeatQuery], state heartbeatState, msg message.Message[heartbeatQuery],
	) (heartbeatState, error) {
		switch msg.Tp {
		case message.TypeStart:
			state.lastBeat = time.Now()
			_, err := ctx.SchedulePeriodic(heartbeatQuery{}, interval, interval)
			return state, errors.Trace(err)
		case message.TypeTick:
			state.ticks++
			state.lastBeat = time.Now()
		case message.TypeValue:
			if !ctx.IsAsk() {
				return state, nil
			}
			return state, ctx.Reply(heartbeatStatus{
				Ticks:    state.ticks,
				LastBeat: state.lastBeat,
			})
		}
		return state, nil
	}
}
