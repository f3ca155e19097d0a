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
	"encoding/json"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/Westmist/Vanta-sub000/pkg/actor"
	cerrors "github.com/Westmist/Vanta-sub000/pkg/errors"
	"github.com/Westmist/Vanta-sub000/pkg/logutil"
	"github.com/Westmist/Vanta-sub000/pkg/util"
	"github.com/Westmist/Vanta-sub000/pkg/version"
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/pingcap/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const heartbeatAskTimeout = time.Second

// httpError is the body of a failed request.
type httpError struct {
	Error string `json:"error_msg"`
	Code  string `json:"error_code"`
}

func newHTTPError(err error) httpError {
	code, _ := cerrors.RFCCode(err)
	return httpError{
		Error: err.Error(),
		Code:  string(code),
	}
}

// serverStatus is the body of GET /status.
type serverStatus struct {
	Build       version.Info     `json:"build"`
	Name        string           `json:"name"`
	Strategy    string           `json:"strategy"`
	Parallelism int              `json:"parallelism"`
	ActorCount  int              `json:"actor_count"`
	IsClosed    bool             `json:"is_closed"`
	Started     string           `json:"started"`
	Memory      *memoryStatus    `json:"memory,omitempty"`
	Heartbeat   *heartbeatStatus `json:"heartbeat,omitempty"`
}

type memoryStatus struct {
	Limit       string  `json:"limit"`
	FromCgroup  bool    `json:"from_cgroup"`
	Used        string  `json:"used"`
	UsedPercent float64 `json:"used_percent"`
}

// actorStatus is the body of GET /api/v1/actors/:id.
type actorStatus struct {
	ID      string `json:"id"`
	Stopped bool   `json:"stopped"`
}

func (s *server) newRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/status", s.handleStatus)

	actors := router.Group("/api/v1/actors")
	actors.GET("/:id", s.handleGetActor)
	actors.DELETE("/:id", s.handleStopActor)

	router.POST("/admin/log", handleAdminLogLevel)

	pprofGroup := router.Group("/debug/pprof/")
	pprofGroup.GET("", gin.WrapF(pprof.Index))
	pprofGroup.GET("/:any", gin.WrapF(pprof.Index))
	pprofGroup.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	pprofGroup.GET("/profile", gin.WrapF(pprof.Profile))
	pprofGroup.GET("/symbol", gin.WrapF(pprof.Symbol))
	pprofGroup.GET("/trace", gin.WrapF(pprof.Trace))

	router.Any("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	return router
}

func (s *server) handleStatus(c *gin.Context) {
	st := serverStatus{
		Build:       version.GetInfo(),
		Name:        s.system.Name(),
		Strategy:    s.system.Executor().Kind().String(),
		Parallelism: s.conf.Parallelism,
		ActorCount:  s.system.ActorCount(),
		IsClosed:    s.system.IsClosed(),
		Started:     humanize.Time(s.startTime),
	}
	if stats, err := util.ReadMemoryStats(); err != nil {
		log.Debug("memory stats are unavailable", zap.Error(err))
	} else {
		st.Memory = &memoryStatus{
			Limit:       humanize.IBytes(stats.Limit),
			FromCgroup:  stats.FromCgroup,
			Used:        humanize.IBytes(stats.Used),
			UsedPercent: stats.UsedPercent,
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), heartbeatAskTimeout)
	defer cancel()
	hb, err := actor.Await[heartbeatStatus](ctx, s.system.Ask(heartbeatActorID, heartbeatQuery{}))
	if err != nil {
		log.Debug("heartbeat is unavailable", zap.Error(err))
	} else {
		st.Heartbeat = &hb
	}
	c.IndentedJSON(http.StatusOK, st)
}

func (s *server) handleGetActor(c *gin.Context) {
	id := actor.ID(c.Param("id"))
	ref, ok := s.system.Lookup(id)
	if !ok {
		c.IndentedJSON(http.StatusNotFound,
			newHTTPError(cerrors.ErrActorNotFound.GenWithStackByArgs(id)))
		return
	}
	c.IndentedJSON(http.StatusOK, actorStatus{
		ID:      string(ref.ID()),
		Stopped: ref.IsStopped(),
	})
}

func (s *server) handleStopActor(c *gin.Context) {
	id := actor.ID(c.Param("id"))
	if !s.system.Stop(id) {
		c.IndentedJSON(http.StatusNotFound,
			newHTTPError(cerrors.ErrActorNotFound.GenWithStackByArgs(id)))
		return
	}
	log.Info("actor stopped by api", logutil.ActorIDField(string(id)))
	c.Status(http.StatusAccepted)
}

// handleAdminLogLevel changes the log level. The body is a JSON string.
func handleAdminLogLevel(c *gin.Context) {
	var level string
	data, err := c.GetRawData()
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, newHTTPError(err))
		return
	}
	if err := json.Unmarshal(data, &level); err != nil {
		c.IndentedJSON(http.StatusBadRequest,
			newHTTPError(cerrors.ErrAPIInvalidParam.GenWithStack("invalid log level: %s", err)))
		return
	}
	if err := logutil.SetLogLevel(level); err != nil {
		c.IndentedJSON(http.StatusBadRequest,
			newHTTPError(cerrors.ErrAPIInvalidParam.GenWithStack("fail to change log level: %s", err)))
		return
	}
	log.Warn("log level changed", zap.String("level", level))
	c.IndentedJSON(http.StatusOK, struct{}{})
}
