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

package errors

import (
	stdErrors "errors"

	"github.com/pingcap/errors"
)

// WrapError generates a new error based on given `*errors.Error`, wraps the err
// as cause error.
// If given `err` is nil, returns a nil error, which a the different behavior
// against `Wrap` function in pingcap/errors.
func WrapError(rfcError *errors.Error, err error, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return rfcError.Wrap(err).GenWithStackByCause(args...)
}

// mailboxRejections are the errors returned when a mailbox refuses an envelope.
var mailboxRejections = []*errors.Error{
	ErrMailboxFull,
	ErrMailboxClosed,
}

// IsMailboxRejection returns true if the error means that an envelope was
// never enqueued because the mailbox was full or closed.
func IsMailboxRejection(err error) bool {
	for _, e := range mailboxRejections {
		if e.Equal(err) {
			return true
		}
	}
	return false
}

// IsRetryableError returns true if a caller may try to deliver the same
// message again later. Only a full mailbox is transient; everything else
// either means the target is gone or is a programmer error.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	return ErrMailboxFull.Equal(err)
}

// IsActorGone returns true if the error means that the target actor does not
// exist or no longer accepts messages.
func IsActorGone(err error) bool {
	switch {
	case ErrActorNotFound.Equal(err),
		ErrActorStopped.Equal(err),
		ErrMailboxClosed.Equal(err),
		ErrActorSystemClosed.Equal(err):
		return true
	}
	return false
}

// IsBehaviorError returns true if the error was produced by a failing behavior.
// A behavior error keeps the returned error as its cause, so the check walks
// the whole chain instead of comparing the root cause.
func IsBehaviorError(err error) bool {
	if err == nil {
		return false
	}
	return stdErrors.Is(err, ErrBehaviorExecution) || stdErrors.Is(err, ErrBehaviorPanicked)
}

type rfcCoder interface {
	RFCCode() errors.RFCErrorCode
}

// RFCCode returns the RFC code of the first normalized error in the chain
// of err.
func RFCCode(err error) (errors.RFCErrorCode, bool) {
	if err == nil {
		return "", false
	}
	var coder rfcCoder
	if stdErrors.As(err, &coder) {
		return coder.RFCCode(), true
	}
	if coder, ok := errors.Cause(err).(rfcCoder); ok {
		return coder.RFCCode(), true
	}
	return "", false
}
