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
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Westmist/Vanta-sub000/pkg/actor"
	"github.com/Westmist/Vanta-sub000/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/pingcap/log"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func newTestServer(t *testing.T) *server {
	conf := config.GetDefaultServerConfig()
	conf.Name = "test"
	conf.StatusAddr = "127.0.0.1:0"
	conf.ShutdownTimeout = config.TomlDuration(5 * time.Second)
	require.NoError(t, conf.ValidateAndAdjust())

	s, err := newServer(conf)
	require.NoError(t, err)
	s.heartbeatInterval = 10 * time.Millisecond
	return s
}

// startTestServer starts the built-in actors without the http listener.
func startTestServer(t *testing.T) (*server, *gin.Engine) {
	s := newTestServer(t)
	_, err := actor.Spawn(s.system, heartbeatActorID, heartbeatState{},
		heartbeatBehavior(s.heartbeatInterval), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		select {
		case <-s.drain():
		case <-time.After(10 * time.Second):
			t.Error("server did not drain")
		}
	})
	return s, s.newRouter()
}

func doRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	router.ServeHTTP(w, req)
	return w
}

func TestStatusAPI(t *testing.T) {
	_, router := startTestServer(t)

	require.Eventually(t, func() bool {
		w := doRequest(router, http.MethodGet, "/status", "")
		if w.Code != http.StatusOK {
			return false
		}
		var st serverStatus
		if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
			return false
		}
		return st.Heartbeat != nil && st.Heartbeat.Ticks > 0
	}, 10*time.Second, 20*time.Millisecond)

	w := doRequest(router, http.MethodGet, "/status", "")
	var st serverStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	require.Equal(t, "test", st.Name)
	require.Equal(t, "elastic", st.Strategy)
	require.Equal(t, 1, st.ActorCount)
	require.False(t, st.IsClosed)
	require.NotNil(t, st.Memory)
	require.NotEmpty(t, st.Memory.Limit)
}

func TestActorAPI(t *testing.T) {
	s, router := startTestServer(t)

	w := doRequest(router, http.MethodGet, "/api/v1/actors/"+string(heartbeatActorID), "")
	require.Equal(t, http.StatusOK, w.Code)
	var as actorStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &as))
	require.Equal(t, actorStatus{ID: string(heartbeatActorID)}, as)

	w = doRequest(router, http.MethodGet, "/api/v1/actors/nobody", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	var herr httpError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &herr))
	require.Equal(t, "VANTA:ErrActorNotFound", herr.Code)
	require.Contains(t, herr.Error, "nobody")

	w = doRequest(router, http.MethodDelete, "/api/v1/actors/"+string(heartbeatActorID), "")
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Eventually(t, func() bool {
		return s.system.ActorCount() == 0
	}, 10*time.Second, 10*time.Millisecond)

	w = doRequest(router, http.MethodDelete, "/api/v1/actors/"+string(heartbeatActorID), "")
	require.Equal(t, http.StatusNotFound, w.Code)

	// Without a heartbeat the status is still served.
	w = doRequest(router, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var st serverStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	require.Nil(t, st.Heartbeat)
}

func TestAdminLogLevel(t *testing.T) {
	_, router := startTestServer(t)
	origin := log.GetLevel()
	defer log.SetLevel(origin)

	w := doRequest(router, http.MethodPost, "/admin/log", `"debug"`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, zapcore.DebugLevel, log.GetLevel())

	w = doRequest(router, http.MethodPost, "/admin/log", `"badlevel"`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "fail to change log level")
	require.Equal(t, zapcore.DebugLevel, log.GetLevel())

	w = doRequest(router, http.MethodPost, "/admin/log", `debug`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "VANTA:ErrAPIInvalidParam")
}

func TestMetricsAPI(t *testing.T) {
	_, router := startTestServer(t)

	w := doRequest(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.Contains(t, body, "vanta_actor_number_of_actors")
	require.Contains(t, body, "go_goroutines")
}

func TestServerRunAndDrain(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.run(ctx)
	}()

	select {
	case <-s.ready:
	case <-time.After(10 * time.Second):
		t.Fatal("server is not ready")
	}

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get(fmt.Sprintf("http://%s/status", s.addr))
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(data), `"actor_count": 1`)

	// A signal handler drains the system before cancelling the context.
	select {
	case <-s.drain():
	case <-time.After(10 * time.Second):
		t.Fatal("server did not drain")
	}
	require.True(t, s.system.IsClosed())
	require.Equal(t, 0, s.system.ActorCount())

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not exit")
	}
}

func TestServerRunFailsOnBusyAddress(t *testing.T) {
	first := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- first.run(ctx)
	}()
	<-first.ready

	second := newTestServer(t)
	second.conf.StatusAddr = first.addr
	err := second.run(context.Background())
	require.Regexp(t, ".*listen status address.*", err)
	require.True(t, second.system.IsClosed())

	cancel()
	require.NoError(t, <-errCh)
}
