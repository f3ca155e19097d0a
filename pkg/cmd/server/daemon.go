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
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Westmist/Vanta-sub000/pkg/actor"
	"github.com/Westmist/Vanta-sub000/pkg/config"
	"github.com/Westmist/Vanta-sub000/pkg/util"
	"github.com/Westmist/Vanta-sub000/pkg/workerpool"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const memoryWarnPercent = 90

// server hosts an actor system and its status API.
type server struct {
	conf      *config.ServerConfig
	registry  *prometheus.Registry
	system    *actor.System
	startTime time.Time

	heartbeatInterval time.Duration

	statusServer *http.Server
	// ready is closed once the status API listens on addr.
	ready chan struct{}
	addr  string

	drainOnce sync.Once
	drained   chan struct{}
}

func newServer(conf *config.ServerConfig) (*server, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	actor.InitMetrics(registry)
	workerpool.InitMetrics(registry)

	executor, err := workerpool.New(conf.Kind(), conf.Parallelism, workerpool.WithName(conf.Name))
	if err != nil {
		return nil, errors.Trace(err)
	}
	system, err := actor.NewSystem(conf.Name, executor,
		actor.WithDefaultConfig(conf.Actor.ToActorConfig()))
	if err != nil {
		executor.Shutdown()
		return nil, errors.Trace(err)
	}

	if stats, err := util.ReadMemoryStats(); err != nil {
		log.Warn("failed to read memory stats", zap.Error(err))
	} else {
		log.Info("memory limit",
			zap.Uint64("limit", stats.Limit),
			zap.Bool("fromCgroup", stats.FromCgroup),
			zap.Float64("usedPercent", stats.UsedPercent))
		if !stats.HasHeadroom(memoryWarnPercent) {
			log.Warn("host memory is almost exhausted",
				zap.Float64("usedPercent", stats.UsedPercent))
		}
	}

	return &server{
		conf:              conf,
		registry:          registry,
		system:            system,
		startTime:         time.Now(),
		heartbeatInterval: defaultHeartbeatInterval,
		ready:             make(chan struct{}),
		drained:           make(chan struct{}),
	}, nil
}

// run starts the built-in actors and serves the status API until ctx is
// done, then drains the actor system.
func (s *server) run(ctx context.Context) error {
	_, err := actor.Spawn(s.system, heartbeatActorID, heartbeatState{},
		heartbeatBehavior(s.heartbeatInterval), nil)
	if err != nil {
		<-s.drain()
		return errors.Trace(err)
	}

	ln, err := net.Listen("tcp", s.conf.StatusAddr)
	if err != nil {
		<-s.drain()
		return errors.Annotate(err, "listen status address")
	}
	s.statusServer = &http.Server{
		Handler:           s.newRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.addr = ln.Addr().String()
	close(s.ready)
	log.Info("status http server is running", zap.String("addr", s.addr))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		err := s.statusServer.Serve(ln)
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.Trace(err)
	})
	eg.Go(func() error {
		<-egCtx.Done()
		return s.close()
	})
	return eg.Wait()
}

// drain shuts the actor system down and waits for its actors to stop. It
// never blocks, the returned channel is closed once draining is complete.
func (s *server) drain() <-chan struct{} {
	s.drainOnce.Do(func() {
		go func() {
			defer close(s.drained)
			s.system.Shutdown()
			timeout := time.Duration(s.conf.ShutdownTimeout)
			if !s.system.AwaitTermination(timeout) {
				log.Warn("actor system did not terminate in time",
					zap.String("system", s.system.Name()),
					zap.Duration("timeout", timeout))
				return
			}
			log.Info("actor system terminated", zap.String("system", s.system.Name()))
		}()
	})
	return s.drained
}

func (s *server) close() error {
	<-s.drain()
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.conf.ShutdownTimeout))
	defer cancel()
	return errors.Trace(s.statusServer.Shutdown(ctx))
}
