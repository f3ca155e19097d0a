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
	"github.com/pingcap/errors"
)

// errors
var (
	// actor system related errors
	ErrDuplicateActorID = errors.Normalize(
		"actor already exists, id: %s",
		errors.RFCCodeText("VANTA:ErrDuplicateActorID"),
	)
	ErrActorNotFound = errors.Normalize(
		"actor not found, id: %s",
		errors.RFCCodeText("VANTA:ErrActorNotFound"),
	)
	ErrActorStopped = errors.Normalize(
		"actor has been stopped, id: %s",
		errors.RFCCodeText("VANTA:ErrActorStopped"),
	)
	ErrActorSystemClosed = errors.Normalize(
		"actor system %s has been shut down",
		errors.RFCCodeText("VANTA:ErrActorSystemClosed"),
	)
	ErrInvalidActorConfig = errors.Normalize(
		"invalid actor config: %s",
		errors.RFCCodeText("VANTA:ErrInvalidActorConfig"),
	)
	ErrMessageTypeMismatch = errors.Normalize(
		"actor %s does not accept message of type %T",
		errors.RFCCodeText("VANTA:ErrMessageTypeMismatch"),
	)

	// mailbox related errors
	ErrMailboxFull = errors.Normalize(
		"mailbox is full",
		errors.RFCCodeText("VANTA:ErrMailboxFull"),
	)
	ErrMailboxClosed = errors.Normalize(
		"mailbox has been closed",
		errors.RFCCodeText("VANTA:ErrMailboxClosed"),
	)

	// behavior related errors
	ErrBehaviorExecution = errors.Normalize(
		"behavior of actor %s failed",
		errors.RFCCodeText("VANTA:ErrBehaviorExecution"),
	)
	ErrBehaviorPanicked = errors.Normalize(
		"behavior of actor %s panicked: %v",
		errors.RFCCodeText("VANTA:ErrBehaviorPanicked"),
	)
	ErrReplyNotExpected = errors.Normalize(
		"reply called on a message that was not sent by ask",
		errors.RFCCodeText("VANTA:ErrReplyNotExpected"),
	)

	// future related errors
	ErrFutureNotCompleted = errors.Normalize(
		"future has not been completed",
		errors.RFCCodeText("VANTA:ErrFutureNotCompleted"),
	)
	ErrUnexpectedReplyType = errors.Normalize(
		"unexpected reply type %T, want %s",
		errors.RFCCodeText("VANTA:ErrUnexpectedReplyType"),
	)

	// workerpool related errors
	ErrWorkerPoolClosed = errors.Normalize(
		"worker pool has been shut down",
		errors.RFCCodeText("VANTA:ErrWorkerPoolClosed"),
	)
	ErrSchedulerRejected = errors.Normalize(
		"scheduler rejected the task, the pool has been shut down",
		errors.RFCCodeText("VANTA:ErrSchedulerRejected"),
	)
	ErrInvalidSchedulePeriod = errors.Normalize(
		"invalid schedule period %s, it must be positive",
		errors.RFCCodeText("VANTA:ErrInvalidSchedulePeriod"),
	)
	ErrUnknownExecutorKind = errors.Normalize(
		"unknown executor kind: %s",
		errors.RFCCodeText("VANTA:ErrUnknownExecutorKind"),
	)

	// config related errors
	ErrInvalidServerOption = errors.Normalize(
		"invalid server option: %s",
		errors.RFCCodeText("VANTA:ErrInvalidServerOption"),
	)
	ErrEncodeFailed = errors.Normalize(
		"encode failed",
		errors.RFCCodeText("VANTA:ErrEncodeFailed"),
	)
	ErrDecodeFailed = errors.Normalize(
		"decode failed: %s",
		errors.RFCCodeText("VANTA:ErrDecodeFailed"),
	)
	ErrUnknownConfigOption = errors.Normalize(
		"component %s's config file %s contained unknown configuration options: %s",
		errors.RFCCodeText("VANTA:ErrUnknownConfigOption"),
	)

	// http api related errors
	ErrAPIInvalidParam = errors.Normalize(
		"invalid api parameter",
		errors.RFCCodeText("VANTA:ErrAPIInvalidParam"),
	)

	// cli related errors
	ErrInvalidBenchOption = errors.Normalize(
		"invalid bench option: %s",
		errors.RFCCodeText("VANTA:ErrInvalidBenchOption"),
	)
	ErrBenchVerifyFailed = errors.Normalize(
		"bench verification failed: %s",
		errors.RFCCodeText("VANTA:ErrBenchVerifyFailed"),
	)
)
