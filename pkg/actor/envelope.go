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
	"time"

	"github.com/Westmist/Vanta-sub000/pkg/actor/message"
)

// Envelope is a message plus its delivery metadata.
type Envelope[M any] struct {
	Message message.Message[M]
	// Sender is the actor that sent the message, if any.
	Sender *Ref
	// Promise is set for ask and nil for tell.
	Promise *Promise
	// Timestamp is the time the envelope was created.
	Timestamp time.Time
}

// IsAsk returns true if the sender waits for a response.
func (e *Envelope[M]) IsAsk() bool {
	return e.Promise != nil
}

// complete completes the response slot, if any. A tell envelope ignores it.
func (e *Envelope[M]) complete(v any) bool {
	if e.Promise == nil {
		return false
	}
	return e.Promise.Complete(v)
}

// fail fails the response slot, if any. A tell envelope ignores it.
func (e *Envelope[M]) fail(err error) bool {
	if e.Promise == nil {
		return false
	}
	return e.Promise.Fail(err)
}
