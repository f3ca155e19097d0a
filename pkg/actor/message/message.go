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

package message

// Type is the type of Message
type Type int

// types of Message
const (
	TypeUnknown Type = iota
	// TypeStart is delivered once, before any other message.
	TypeStart
	// TypeValue carries a payload sent by tell or ask.
	TypeValue
	// TypeTimer carries the payload of a one-shot schedule.
	TypeTimer
	// TypeTick carries the payload of a periodic schedule.
	TypeTick
	// TypeStop is the last message an actor receives.
	TypeStop
)

var typeNames = [...]string{
	TypeUnknown: "unknown",
	TypeStart:   "start",
	TypeValue:   "value",
	TypeTimer:   "timer",
	TypeTick:    "tick",
	TypeStop:    "stop",
}

// String implements fmt.Stringer.
func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return typeNames[TypeUnknown]
	}
	return typeNames[t]
}

// IsSystem returns true for lifecycle messages that carry no payload.
func (t Type) IsSystem() bool {
	return t == TypeStart || t == TypeStop
}

// ScheduleID identifies a scheduled delivery.
type ScheduleID uint64

// Message is a vehicle for transferring information between nodes.
// Payload-carrying messages are TypeValue, TypeTimer and TypeTick; Value is
// the zero value otherwise.
type Message[T any] struct {
	// Tp is the type of Message
	Tp Type
	// Value is the payload.
	Value T
	// ScheduleID is set on TypeTimer and TypeTick messages.
	ScheduleID ScheduleID
}

// StartMessage creates the message that starts an actor.
func StartMessage[T any]() Message[T] {
	return Message[T]{Tp: TypeStart}
}

// StopMessage creates the message that stops an actor.
func StopMessage[T any]() Message[T] {
	return Message[T]{Tp: TypeStop}
}

// ValueMessage creates a message that contains a value.
func ValueMessage[T any](val T) Message[T] {
	return Message[T]{
		Tp:    TypeValue,
		Value: val,
	}
}

// TimerMessage creates the message delivered by a one-shot schedule.
func TimerMessage[T any](id ScheduleID, val T) Message[T] {
	return Message[T]{
		Tp:         TypeTimer,
		Value:      val,
		ScheduleID: id,
	}
}

// TickMessage creates the message delivered by a periodic schedule.
func TickMessage[T any](id ScheduleID, val T) Message[T] {
	return Message[T]{
		Tp:         TypeTick,
		Value:      val,
		ScheduleID: id,
	}
}

// HasValue returns true if the message carries a payload.
func (m Message[T]) HasValue() bool {
	return m.Tp == TypeValue || m.Tp == TypeTimer || m.Tp == TypeTick
}
