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

package server

import (
	"context"
	"strings"
	"time"

	"github.com/Westmist/Vanta-sub000/pkg/cmd/util"
	"github.com/Westmist/Vanta-sub000/pkg/config"
	"github.com/Westmist/Vanta-sub000/pkg/version"
	"github.com/Westmist/Vanta-sub000/pkg/workerpool"
	"github.com/fatih/color"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// options defines flags for the `server` command.
type options struct {
	serverConfigFilePath string

	serverConfig *config.ServerConfig
}

// newOptions creates new options for the `server` command.
func newOptions() *options {
	return &options{
		serverConfig: config.GetDefaultServerConfig(),
	}
}

// addFlags receives a *cobra.Command reference and binds
// flags related to the server to it.
func (o *options) addFlags(cmd *cobra.Command) {
	defaultServerConfig := config.GetDefaultServerConfig()
	cmd.Flags().StringVar(&o.serverConfig.Name, "name", defaultServerConfig.Name, "Set the name of the actor system")
	cmd.Flags().StringVar(&o.serverConfig.Strategy, "strategy", defaultServerConfig.Strategy, "Set the execution strategy (elastic|sharded)")
	cmd.Flags().IntVar(&o.serverConfig.Parallelism, "parallelism", defaultServerConfig.Parallelism, "Set the number of lanes of the sharded strategy, 0 means GOMAXPROCS")
	cmd.Flags().StringVar(&o.serverConfig.StatusAddr, "status-addr", defaultServerConfig.StatusAddr, "Set the listening address of the status API")
	cmd.Flags().DurationVar((*time.Duration)(&o.serverConfig.ShutdownTimeout), "shutdown-timeout", time.Duration(defaultServerConfig.ShutdownTimeout), "Maximum time to wait for actors to stop on shutdown")
	cmd.Flags().StringVar(&o.serverConfig.Log.File, "log-file", defaultServerConfig.Log.File, "log file path")
	cmd.Flags().StringVar(&o.serverConfig.Log.Level, "log-level", defaultServerConfig.Log.Level, "log level (etc: debug|info|warn|error)")
	cmd.Flags().IntVar(&o.serverConfig.Actor.MailboxCapacity, "mailbox-capacity", defaultServerConfig.Actor.MailboxCapacity, "default mailbox capacity of actors, 0 means unbounded")
	cmd.Flags().IntVar(&o.serverConfig.Actor.Throughput, "throughput", defaultServerConfig.Actor.Throughput, "maximum messages an actor processes before yielding its worker")

	cmd.Flags().StringVar(&o.serverConfigFilePath, "config", "", "Path of the configuration file")
}

// complete loads the configuration file and overrides it with the flags
// that were set explicitly.
func (o *options) complete(cmd *cobra.Command) error {
	conf := config.GetDefaultServerConfig()
	if len(o.serverConfigFilePath) > 0 {
		if err := util.StrictDecodeFile(o.serverConfigFilePath, "vanta server", conf); err != nil {
			return err
		}
	}
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		switch flag.Name {
		case "name":
			conf.Name = o.serverConfig.Name
		case "strategy":
			conf.Strategy = o.serverConfig.Strategy
		case "parallelism":
			conf.Parallelism = o.serverConfig.Parallelism
		case "status-addr":
			conf.StatusAddr = o.serverConfig.StatusAddr
		case "shutdown-timeout":
			conf.ShutdownTimeout = o.serverConfig.ShutdownTimeout
		case "log-file":
			conf.Log.File = o.serverConfig.Log.File
		case "log-level":
			conf.Log.Level = o.serverConfig.Log.Level
		case "mailbox-capacity":
			conf.Actor.MailboxCapacity = o.serverConfig.Actor.MailboxCapacity
		case "throughput":
			conf.Actor.Throughput = o.serverConfig.Actor.Throughput
		case "config":
			// do nothing
		default:
			log.Panic("unknown flag, please report a bug", zap.String("flagName", flag.Name))
		}
	})

	if conf.Parallelism > 0 &&
		!strings.EqualFold(strings.TrimSpace(conf.Strategy), workerpool.KindSharded.String()) {
		cmd.Printf(color.HiYellowString("[WARN] parallelism only applies to the sharded strategy, "+
			"it is ignored by the %s strategy.\n", conf.Strategy))
	}
	if !conf.Actor.SuperviseExceptions {
		cmd.Printf(color.HiYellowString("[WARN] supervise-exceptions is disabled, " +
			"a panicking behavior will crash the server.\n"))
	}

	o.serverConfig = conf
	return nil
}

// validate checks the completed configuration and fills the defaults.
func (o *options) validate() error {
	return errors.Trace(o.serverConfig.ValidateAndAdjust())
}

func (o *options) run(cmd *cobra.Command) error {
	conf := o.serverConfig
	ctx, cancel := util.InitCmd(cmd, conf.Log)
	defer cancel()

	version.LogVersionInfo("vanta server")
	log.Info("vanta server config", zap.Stringer("config", configStringer{conf}))

	srv, err := newServer(conf)
	if err != nil {
		return errors.Annotate(err, "new server")
	}
	util.InitSignalHandling(srv.drain, cancel)

	err = srv.run(ctx)
	if err != nil && errors.Cause(err) != context.Canceled {
		log.Error("run server", zap.String("error", errors.ErrorStack(err)))
		return errors.Annotate(err, "run server")
	}
	log.Info("vanta server exits successfully")
	return nil
}

type configStringer struct {
	conf *config.ServerConfig
}

func (s configStringer) String() string {
	data, err := s.conf.Marshal()
	if err != nil {
		return err.Error()
	}
	return data
}

// NewCmdServer creates the `server` command.
func NewCmdServer() *cobra.Command {
	o := newOptions()

	command := &cobra.Command{
		Use:   "server",
		Short: "Start a vanta actor server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.complete(cmd); err != nil {
				return err
			}
			if err := o.validate(); err != nil {
				return err
			}
			return o.run(cmd)
		},
	}

	o.addFlags(command)

	return command
}
