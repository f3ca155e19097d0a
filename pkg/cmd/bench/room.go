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

package bench

import (
	"github.com/Westmist/Vanta-sub000/pkg/actor"
	"github.com/Westmist/Vanta-sub000/pkg/actor/message"
	"github.com/pingcap/errors"
)

type commandKind int

const (
	commandMove commandKind = iota + 1
	commandReport
)

// roomCommand is sent by players to a room. A move carries the sequence
// number of the player, starting from 1.
type roomCommand struct {
	kind   commandKind
	player int
	seq    int
}

type roomState struct {
	lastSeq    []int
	moves      int64
	outOfOrder int64
}

func newRoomState(players int) *roomState {
	return &roomState{lastSeq: make([]int, players)}
}

// roomReport is the reply to a commandReport.
type roomReport struct {
	moves      int64
	outOfOrder int64
}

// roomBehavior counts the moves of every player and the moves that did not
// arrive in the order the player sent them.
func roomBehavior(
	ctx *actor.Context[roomCommand], state *roomState, msg message.Message[roomCommand],
) (*roomState, error) {
	if msg.Tp != message.TypeValue {
		return state, nil
	}
	cmd := msg.Value
	switch cmd.kind {
	case commandMove:
		if cmd.player < 0 || cmd.player >= len(state.lastSeq) {
			return state, errors.Errorf("unknown player %d", cmd.player)
		}
		if cmd.seq != state.lastSeq[cmd.player]+1 {
			state.outOfOrder++
		}
		state.lastSeq[cmd.player] = cmd.seq
		state.moves++
	case commandReport:
		return state, ctx.Reply(roomReport{
			moves:      state.moves,
			outOfOrder: state.outOfOrder,
		})
	default:
		return state, errors.Errorf("unknown command %d", cmd.kind)
	}
	return state, nil
}
