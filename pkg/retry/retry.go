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
	"context"
	"math"

	"github.com/cenkalti/backoff/v4"
	"github.com/pingcap/errors"
)

// Operation is the action that needs to be retried.
type Operation func() error

// Do executes the specified function at most maxTries times until it succeeds,
// using exponential backoff with jitter between attempts. The last error is
// returned when all tries fail, the error is not retryable, or ctx is done.
func Do(ctx context.Context, operation Operation, opts ...Option) error {
	o := newRetryOptions(opts)

	var b backoff.BackOff = newBackOff(o)
	if !math.IsInf(o.maxTries, 1) {
		// maxTries counts the first call, WithMaxRetries counts retries only.
		b = backoff.WithMaxRetries(b, uint64(o.maxTries)-1)
	}
	b = backoff.WithContext(b, ctx)

	attempt := 0
	var lastErr error
	err := backoff.Retry(func() error {
		if attempt > 0 {
			o.onRetry(attempt, lastErr)
		}
		attempt++
		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		if !o.isRetryable(lastErr) {
			return backoff.Permanent(lastErr)
		}
		return lastErr
	}, b)
	if err != nil && ctx.Err() != nil && errors.Cause(err) != ctx.Err() {
		return errors.Annotate(err, ctx.Err().Error())
	}
	return errors.Trace(err)
}

func newBackOff(o *retryOptions) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.backoffBase
	b.MaxInterval = o.backoffCap
	// Tries, not elapsed time, bound the loop.
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
