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

	"github.com/Westmist/Vanta-sub000/pkg/clock"
	"github.com/Westmist/Vanta-sub000/pkg/container/deque"
	cerrors "github.com/Westmist/Vanta-sub000/pkg/errors"
)

var (
	errMailboxFull   = cerrors.ErrMailboxFull.FastGenByArgs()
	errMailboxClosed = cerrors.ErrMailboxClosed.FastGenByArgs()
)

// Mailbox is a FIFO queue of an actor's pending items.
// Mailbox is threadsafe.
//
// A bounded mailbox rejects an item when it is full, after waiting up to its
// offer timeout for space. A closed mailbox rejects every new item, but items
// that were queued before Close are still returned by TryDequeue.
type Mailbox[T any] struct {
	clock        clock.Clock
	capacity     int
	offerTimeout time.Duration

	mu      sync.Mutex
	queue   *deque.Deque[T]
	closed  bool
	waiters int
	// notFull is closed and replaced whenever space is freed while a
	// producer waits, and closed for good by Close.
	notFull chan struct{}
}

// NewMailbox creates a mailbox. A non-positive capacity means unbounded.
func NewMailbox[T any](capacity int, offerTimeout time.Duration, c clock.Clock) *Mailbox[T] {
	if c == nil {
		c = clock.New()
	}
	if capacity < 0 {
		capacity = 0
	}
	return &Mailbox[T]{
		clock:        c,
		capacity:     capacity,
		offerTimeout: offerTimeout,
		queue:        deque.New[T](),
		notFull:      make(chan struct{}),
	}
}

// Enqueue appends v to the mailbox. It returns ErrMailboxClosed if the
// mailbox is closed, and ErrMailboxFull if it is bounded and stays full for
// the whole offer timeout.
func (m *Mailbox[T]) Enqueue(v T) error {
	return m.offer(v, true)
}

// TryEnqueue is like Enqueue, but it never waits for space.
func (m *Mailbox[T]) TryEnqueue(v T) error {
	return m.offer(v, false)
}

func (m *Mailbox[T]) offer(v T, wait bool) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errMailboxClosed
	}
	if !m.isFullLocked() {
		m.queue.Push(v)
		m.mu.Unlock()
		return nil
	}
	if !wait || m.offerTimeout <= 0 {
		m.mu.Unlock()
		return errMailboxFull
	}

	timer := m.clock.Timer(m.offerTimeout)
	defer timer.Stop()
	for {
		m.waiters++
		notFull := m.notFull
		m.mu.Unlock()

		timeout := false
		select {
		case <-notFull:
		case <-timer.C:
			timeout = true
		}

		m.mu.Lock()
		m.waiters--
		if m.closed {
			m.mu.Unlock()
			return errMailboxClosed
		}
		if !m.isFullLocked() {
			m.queue.Push(v)
			m.mu.Unlock()
			return nil
		}
		if timeout {
			m.mu.Unlock()
			return errMailboxFull
		}
	}
}

// TryDequeue removes and returns the oldest item. It never blocks.
func (m *Mailbox[T]) TryDequeue() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.queue.Pop()
	if ok && m.waiters > 0 && !m.closed {
		close(m.notFull)
		m.notFull = make(chan struct{})
	}
	return v, ok
}

// Size returns the number of queued items.
func (m *Mailbox[T]) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}

// IsEmpty returns true if no item is queued.
func (m *Mailbox[T]) IsEmpty() bool {
	return m.Size() == 0
}

// Cap returns the capacity, 0 means unbounded.
func (m *Mailbox[T]) Cap() int {
	return m.capacity
}

// Close stops accepting new items and wakes up waiting producers.
// It returns false if the mailbox was already closed.
func (m *Mailbox[T]) Close() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.closed = true
	close(m.notFull)
	return true
}

// IsClosed returns true if Close has been called.
func (m *Mailbox[T]) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Mailbox[T]) isFullLocked() bool {
	return m.capacity > 0 && m.queue.Len() >= m.capacity
}
