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

package retry

import (
	"math"
	"time"
)

const (
	defaultBackoffBase = 10 * time.Millisecond
	defaultBackoffCap  = 100 * time.Millisecond
	defaultMaxTries    = 3
)

// Option configures a retry loop.
type Option func(*retryOptions)

// IsRetryableErr reports whether an operation that failed with err may be
// tried again, e.g. a message rejected by a full mailbox.
type IsRetryableErr func(error) bool

// OnRetry is called before every try except the first one. attempt counts
// from 1 for the first retry.
type OnRetry func(attempt int, lastErr error)

type retryOptions struct {
	// maxTries is +Inf for an unbounded loop.
	maxTries    float64
	backoffBase time.Duration
	backoffCap  time.Duration
	isRetryable IsRetryableErr
	onRetry     OnRetry
}

func newRetryOptions(opts []Option) *retryOptions {
	o := &retryOptions{
		maxTries:    defaultMaxTries,
		backoffBase: defaultBackoffBase,
		backoffCap:  defaultBackoffCap,
		isRetryable: func(error) bool { return true },
		onRetry:     func(int, error) {},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.backoffCap < o.backoffBase {
		o.backoffCap = o.backoffBase
	}
	return o
}

// WithBackoffBaseDelay sets the delay before the first retry.
func WithBackoffBaseDelay(delay time.Duration) Option {
	return func(o *retryOptions) {
		if delay > 0 {
			o.backoffBase = delay
		}
	}
}

// WithBackoffMaxDelay caps the delay between two tries.
func WithBackoffMaxDelay(delay time.Duration) Option {
	return func(o *retryOptions) {
		if delay > 0 {
			o.backoffCap = delay
		}
	}
}

// WithMaxTries bounds the number of tries, the first one included.
func WithMaxTries(tries int64) Option {
	return func(o *retryOptions) {
		if tries > 0 {
			o.maxTries = float64(tries)
		}
	}
}

// WithInfiniteTries retries until the operation succeeds, fails with an
// error that is not retryable, or the context is done.
func WithInfiniteTries() Option {
	return func(o *retryOptions) {
		o.maxTries = math.Inf(1)
	}
}

// WithIsRetryableErr sets the classifier of errors. All errors are
// retryable by default.
func WithIsRetryableErr(f IsRetryableErr) Option {
	return func(o *retryOptions) {
		if f != nil {
			o.isRetryable = f
		}
	}
}

// WithOnRetry sets a callback invoked before every retry.
func WithOnRetry(f OnRetry) Option {
	return func(o *retryOptions) {
		if f != nil {
			o.onRetry = f
		}
	}
}
