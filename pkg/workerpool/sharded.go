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

package workerpool

import (
	"sync"
	"time"

	"github.com/Westmist/Vanta-sub000/pkg/clock"
	"github.com/Westmist/Vanta-sub000/pkg/container/deque"
	cerrors "github.com/Westmist/Vanta-sub000/pkg/errors"
	"github.com/pingcap/failpoint"
	"github.com/zeebo/xxh3"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// shardedPool runs a fixed number of lanes. Every key is bound to the lane
// xxh3(key) mod len(lanes) for its whole life, and a lane runs one task at a
// time, so tasks of one key never overlap.
type shardedPool struct {
	*scheduler

	lanes   []*lane
	metrics *poolMetrics
	running atomic.Int64

	errg        errgroup.Group
	runningLock sync.RWMutex
	closed      atomic.Bool
}

func newShardedPool(o *options, numLanes int) *shardedPool {
	p := &shardedPool{
		lanes:   make([]*lane, numLanes),
		metrics: newPoolMetrics(o.name, KindSharded),
	}
	p.scheduler = newScheduler(o.clock, p.Submit, p.metrics)
	for i := range p.lanes {
		p.lanes[i] = newLane(p)
	}
	for _, l := range p.lanes {
		laneFinal := l
		p.errg.Go(func() error {
			laneFinal.run()
			return nil
		})
	}
	p.metrics.totalWorkers.Set(float64(numLanes))
	return p
}

// laneIndex returns the lane bound to key.
func (p *shardedPool) laneIndex(key string) int {
	return int(xxh3.HashString(key) % uint64(len(p.lanes)))
}

// Submit implements Executor.
func (p *shardedPool) Submit(key string, task func()) error {
	p.runningLock.RLock()
	defer p.runningLock.RUnlock()

	if p.closed.Load() {
		return cerrors.ErrWorkerPoolClosed.GenWithStackByArgs()
	}
	p.lanes[p.laneIndex(key)].push(task)
	return nil
}

// Shutdown implements Executor.
func (p *shardedPool) Shutdown() {
	p.scheduler.shutdown()

	p.runningLock.Lock()
	defer p.runningLock.Unlock()
	if p.closed.Swap(true) {
		return
	}
	for _, l := range p.lanes {
		l.close()
	}
	p.metrics.cleanup()
}

// AwaitTermination implements Executor.
func (p *shardedPool) AwaitTermination(timeout time.Duration) bool {
	if !p.closed.Load() {
		return false
	}
	deadline := time.Now().Add(timeout)
	if !p.scheduler.awaitTermination(deadline) {
		return false
	}

	// The waiter outlives a timed out call and exits once the workers do.
	done := make(chan struct{})
	go func() {
		_ = p.errg.Wait()
		close(done)
	}()
	return waitTimeout(done, deadline)
}

// Kind implements Executor.
func (p *shardedPool) Kind() Kind {
	return KindSharded
}

type lane struct {
	pool *shardedPool

	mu     sync.Mutex
	tasks  *deque.Deque[func()]
	closed bool

	// notifyCh must be buffered, a push never blocks on an idle lane.
	notifyCh chan struct{}
}

func newLane(p *shardedPool) *lane {
	return &lane{
		pool:     p,
		tasks:    deque.New[func()](),
		notifyCh: make(chan struct{}, 1),
	}
}

func (l *lane) push(task func()) {
	l.mu.Lock()
	l.tasks.Push(task)
	l.mu.Unlock()
	l.pool.metrics.pendingTasks.Inc()

	l.notify()
}

func (l *lane) notify() {
	select {
	case l.notifyCh <- struct{}{}:
	default:
	}
}

// close lets the lane exit once its queue is empty.
func (l *lane) close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	l.notify()
}

func (l *lane) run() {
	for {
		l.mu.Lock()
		task, ok := l.tasks.Pop()
		closed := l.closed
		l.mu.Unlock()

		if !ok {
			if closed {
				return
			}
			<-l.notifyCh
			continue
		}

		l.pool.metrics.pendingTasks.Dec()
		l.exec(task)
	}
}

func (l *lane) exec(task func()) {
	m := l.pool.metrics
	m.workingWorkers.Set(float64(l.pool.running.Inc()))
	start := clock.MonoNow()
	defer func() {
		m.workingDuration.Add(clock.MonoNow().Sub(start).Seconds())
		m.workingWorkers.Set(float64(l.pool.running.Dec()))
	}()

	failpoint.Inject("ShardedLaneSlowTask", func() {
		time.Sleep(10 * time.Millisecond)
	})
	task()
}
