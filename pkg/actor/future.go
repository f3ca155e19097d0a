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
	"context"
	"reflect"

	cerrors "github.com/Westmist/Vanta-sub000/pkg/errors"
	"github.com/pingcap/errors"
	"go.uber.org/atomic"
)

// Future is the read side of an ask. It is completed exactly once, with a
// value or with an error.
type Future struct {
	done      chan struct{}
	completed atomic.Bool

	// value and err are written once before done is closed.
	value any
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Done returns a channel that is closed when the future completes.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// IsCompleted returns true if the future has a result.
func (f *Future) IsCompleted() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future completes or ctx is done.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, errors.Trace(ctx.Err())
	}
}

// Result returns the result without blocking. It returns
// ErrFutureNotCompleted if the future is still pending.
func (f *Future) Result() (any, error) {
	if !f.IsCompleted() {
		return nil, cerrors.ErrFutureNotCompleted.GenWithStackByArgs()
	}
	return f.value, f.err
}

func (f *Future) complete(v any, err error) bool {
	if !f.completed.CompareAndSwap(false, true) {
		return false
	}
	f.value, f.err = v, err
	close(f.done)
	return true
}

// Promise is the write side of a Future.
type Promise struct {
	future *Future
}

// NewPromise creates a pending promise.
func NewPromise() *Promise {
	return &Promise{future: newFuture()}
}

// Future returns the future completed by this promise.
func (p *Promise) Future() *Future {
	return p.future
}

// Complete completes the future with v. It returns false and does nothing if
// the future has already been completed.
func (p *Promise) Complete(v any) bool {
	return p.future.complete(v, nil)
}

// Fail completes the future with err. It returns false and does nothing if
// the future has already been completed.
func (p *Promise) Fail(err error) bool {
	return p.future.complete(nil, err)
}

// IsCompleted returns true if the future has a result.
func (p *Promise) IsCompleted() bool {
	return p.future.IsCompleted()
}

// FailedFuture returns a future that has already failed with err.
func FailedFuture(err error) *Future {
	f := newFuture()
	f.complete(nil, err)
	return f
}

// CompletedFuture returns a future that has already completed with v.
func CompletedFuture(v any) *Future {
	f := newFuture()
	f.complete(v, nil)
	return f
}

// Await waits for f and converts its value to R. A nil value yields the zero
// value of R.
func Await[R any](ctx context.Context, f *Future) (R, error) {
	var zero R
	v, err := f.Wait(ctx)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	r, ok := v.(R)
	if !ok {
		return zero, cerrors.ErrUnexpectedReplyType.GenWithStackByArgs(v, reflect.TypeOf((*R)(nil)).Elem().String())
	}
	return r, nil
}
