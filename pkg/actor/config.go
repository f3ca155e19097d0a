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

	cerrors "github.com/Westmist/Vanta-sub000/pkg/errors"
)

const (
	// DefaultThroughput is the number of envelopes one dispatch drains
	// before it yields its worker.
	DefaultThroughput = 64
)

// Config is the per-actor configuration. It is copied at spawn time and never
// changes afterwards.
//
// Start from DefaultConfig. In the zero value SuperviseExceptions and
// ContinueOnException are false, so a behavior panic crashes the process.
type Config struct {
	// MailboxCapacity bounds the mailbox. 0 means unbounded.
	MailboxCapacity int `toml:"mailbox-capacity" json:"mailbox-capacity"`
	// MailboxOfferTimeout is how long a producer waits for space in a full
	// bounded mailbox. 0 means fail immediately.
	MailboxOfferTimeout time.Duration `toml:"mailbox-offer-timeout" json:"mailbox-offer-timeout"`
	// SuperviseExceptions recovers behavior panics and turns them into
	// behavior errors. When it is false a panic fails the pending ask, stops
	// the actor and is re-raised.
	SuperviseExceptions bool `toml:"supervise-exceptions" json:"supervise-exceptions"`
	// ContinueOnException keeps the actor draining after a behavior error.
	// When it is false the actor stops after the first error.
	ContinueOnException bool `toml:"continue-on-exception" json:"continue-on-exception"`
	// Throughput is the maximum number of envelopes processed by one
	// dispatch before the actor re-submits itself to the executor.
	Throughput int `toml:"throughput" json:"throughput"`
}

// DefaultConfig returns the default actor configuration.
func DefaultConfig() *Config {
	return &Config{
		MailboxCapacity:     0,
		MailboxOfferTimeout: 0,
		SuperviseExceptions: true,
		ContinueOnException: true,
		Throughput:          DefaultThroughput,
	}
}

// ValidateAndAdjust validates the config and fills in default values.
func (c *Config) ValidateAndAdjust() error {
	if c.MailboxCapacity < 0 {
		return cerrors.ErrInvalidActorConfig.GenWithStackByArgs(
			"mailbox-capacity must not be negative")
	}
	if c.MailboxOfferTimeout < 0 {
		return cerrors.ErrInvalidActorConfig.GenWithStackByArgs(
			"mailbox-offer-timeout must not be negative")
	}
	if c.Throughput < 0 {
		return cerrors.ErrInvalidActorConfig.GenWithStackByArgs(
			"throughput must not be negative")
	}
	if c.Throughput == 0 {
		c.Throughput = DefaultThroughput
	}
	return nil
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
