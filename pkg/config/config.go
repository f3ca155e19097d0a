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

package config

import (
	"encoding/json"
	"net"
	"time"

	"github.com/Westmist/Vanta-sub000/pkg/actor"
	cerrors "github.com/Westmist/Vanta-sub000/pkg/errors"
	"github.com/Westmist/Vanta-sub000/pkg/logutil"
	"github.com/Westmist/Vanta-sub000/pkg/workerpool"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

const (
	// DefaultSystemName is the name of the actor system of a server.
	DefaultSystemName = "vanta"
	// DefaultStatusAddr is the address of the status API.
	DefaultStatusAddr = "127.0.0.1:8300"
	// DefaultShutdownTimeout bounds a graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)

// TomlDuration is a duration with a custom json decoder and toml decoder
type TomlDuration time.Duration

// UnmarshalText is the toml decoder
func (d *TomlDuration) UnmarshalText(text []byte) error {
	stdDuration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = TomlDuration(stdDuration)
	return nil
}

// UnmarshalJSON is the json decoder
func (d *TomlDuration) UnmarshalJSON(b []byte) error {
	var stdDuration time.Duration
	if err := json.Unmarshal(b, &stdDuration); err != nil {
		return err
	}
	*d = TomlDuration(stdDuration)
	return nil
}

var defaultServerConfig = &ServerConfig{
	Name:            DefaultSystemName,
	Strategy:        workerpool.KindElastic.String(),
	Parallelism:     0,
	ShutdownTimeout: TomlDuration(DefaultShutdownTimeout),
	StatusAddr:      DefaultStatusAddr,
	Log: &logutil.Config{
		Level: "info",
	},
	Actor: &ActorConfig{
		MailboxCapacity:     0,
		MailboxOfferTimeout: 0,
		SuperviseExceptions: true,
		ContinueOnException: true,
		Throughput:          actor.DefaultThroughput,
	},
}

// ServerConfig is the configuration of a vanta server.
type ServerConfig struct {
	// Name is the name of the actor system.
	Name string `toml:"name" json:"name"`
	// Strategy is "elastic" or "sharded".
	Strategy string `toml:"strategy" json:"strategy"`
	// Parallelism is the number of lanes of the sharded strategy.
	// 0 means GOMAXPROCS.
	Parallelism     int          `toml:"parallelism" json:"parallelism"`
	ShutdownTimeout TomlDuration `toml:"shutdown-timeout" json:"shutdown-timeout"`
	StatusAddr      string       `toml:"status-addr" json:"status-addr"`

	Log   *logutil.Config `toml:"log" json:"log"`
	Actor *ActorConfig    `toml:"actor" json:"actor"`
}

// ActorConfig is the default configuration of the actors of a server.
type ActorConfig struct {
	MailboxCapacity     int          `toml:"mailbox-capacity" json:"mailbox-capacity"`
	MailboxOfferTimeout TomlDuration `toml:"mailbox-offer-timeout" json:"mailbox-offer-timeout"`
	SuperviseExceptions bool         `toml:"supervise-exceptions" json:"supervise-exceptions"`
	ContinueOnException bool         `toml:"continue-on-exception" json:"continue-on-exception"`
	Throughput          int          `toml:"throughput" json:"throughput"`
}

// GetDefaultServerConfig returns the default server config.
func GetDefaultServerConfig() *ServerConfig {
	return defaultServerConfig.Clone()
}

// Marshal returns the json marshal format of a ServerConfig
func (c *ServerConfig) Marshal() (string, error) {
	cfg, err := json.Marshal(c)
	if err != nil {
		return "", cerrors.WrapError(cerrors.ErrEncodeFailed, errors.Annotatef(err, "Marshal data: %v", c))
	}
	return string(cfg), nil
}

// Unmarshal unmarshals into *ServerConfig from json marshal byte slice
func (c *ServerConfig) Unmarshal(data []byte) error {
	err := json.Unmarshal(data, c)
	if err != nil {
		return cerrors.ErrDecodeFailed.Wrap(err).GenWithStackByArgs("server config")
	}
	return nil
}

// Clone clones the server config.
func (c *ServerConfig) Clone() *ServerConfig {
	str, err := c.Marshal()
	if err != nil {
		log.Panic("failed to marshal server config",
			zap.Error(cerrors.WrapError(cerrors.ErrEncodeFailed, err)))
	}
	clone := new(ServerConfig)
	err = clone.Unmarshal([]byte(str))
	if err != nil {
		log.Panic("failed to unmarshal server config",
			zap.Error(cerrors.WrapError(cerrors.ErrDecodeFailed, err)))
	}
	return clone
}

// ValidateAndAdjust validates and adjusts the server configuration
func (c *ServerConfig) ValidateAndAdjust() error {
	if c.Name == "" {
		c.Name = defaultServerConfig.Name
	}
	if c.Strategy == "" {
		c.Strategy = defaultServerConfig.Strategy
	}
	kind, err := workerpool.ParseKind(c.Strategy)
	if err != nil {
		return cerrors.ErrInvalidServerOption.Wrap(err).GenWithStackByArgs("strategy")
	}
	c.Strategy = kind.String()
	if c.Parallelism < 0 {
		return cerrors.ErrInvalidServerOption.GenWithStackByArgs("parallelism must not be negative")
	}
	if kind == workerpool.KindElastic && c.Parallelism != 0 {
		log.Warn("parallelism is ignored by the elastic strategy",
			zap.Int("parallelism", c.Parallelism))
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaultServerConfig.ShutdownTimeout
	}
	if c.ShutdownTimeout < 0 {
		return cerrors.ErrInvalidServerOption.GenWithStackByArgs("shutdown-timeout must be positive")
	}
	if c.StatusAddr == "" {
		c.StatusAddr = defaultServerConfig.StatusAddr
	}
	if _, _, err := net.SplitHostPort(c.StatusAddr); err != nil {
		return cerrors.ErrInvalidServerOption.Wrap(err).GenWithStackByArgs("status-addr")
	}

	if c.Log == nil {
		c.Log = &logutil.Config{}
	}
	c.Log.Adjust()

	if c.Actor == nil {
		c.Actor = defaultServerConfig.Actor.Clone()
	}
	return c.Actor.ValidateAndAdjust()
}

// Kind returns the executor kind of the strategy. It must be called after
// ValidateAndAdjust.
func (c *ServerConfig) Kind() workerpool.Kind {
	kind, err := workerpool.ParseKind(c.Strategy)
	if err != nil {
		return workerpool.KindElastic
	}
	return kind
}

// Clone returns a copy of the actor config.
func (c *ActorConfig) Clone() *ActorConfig {
	clone := *c
	return &clone
}

// ValidateAndAdjust validates the actor config and fills in default values.
func (c *ActorConfig) ValidateAndAdjust() error {
	cfg := c.ToActorConfig()
	if err := cfg.ValidateAndAdjust(); err != nil {
		return errors.Trace(err)
	}
	c.Throughput = cfg.Throughput
	return nil
}

// ToActorConfig converts the config to the one used to spawn actors.
func (c *ActorConfig) ToActorConfig() *actor.Config {
	return &actor.Config{
		MailboxCapacity:     c.MailboxCapacity,
		MailboxOfferTimeout: time.Duration(c.MailboxOfferTimeout),
		SuperviseExceptions: c.SuperviseExceptions,
		ContinueOnException: c.ContinueOnException,
		Throughput:          c.Throughput,
	}
}
