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

package deque

import (
	"github.com/edwingeng/deque"
)

// Deque is a typed FIFO queue backed by edwingeng/deque.
// It is not thread-safe; callers must serialize access.
type Deque[T any] struct {
	deque deque.Deque
}

// New creates a new Deque instance.
func New[T any]() *Deque[T] {
	return &Deque[T]{
		deque: deque.NewDeque(),
	}
}

// Push appends elem to the back of the queue.
func (d *Deque[T]) Push(elem T) {
	d.deque.PushBack(elem)
}

// Pop removes and returns the front element.
func (d *Deque[T]) Pop() (T, bool) {
	if d.deque.Empty() {
		var noVal T
		return noVal, false
	}

	return d.deque.PopFront().(T), true
}

// Peek returns the front element without removing it.
func (d *Deque[T]) Peek() (T, bool) {
	if d.deque.Empty() {
		var noVal T
		return noVal, false
	}

	return d.deque.Front().(T), true
}

// Len returns the number of queued elements.
func (d *Deque[T]) Len() int {
	return d.deque.Len()
}

// Empty reports whether the queue holds no element.
func (d *Deque[T]) Empty() bool {
	return d.deque.Empty()
}
