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
	cerrors "github.com/Westmist/Vanta-sub000/pkg/errors"
	"go.uber.org/atomic"
)

// elasticPool starts one goroutine per task. Goroutines of the same key
// queue up on a per-key mutex.
type elasticPool struct {
	*scheduler

	locks   *keyedMutex
	metrics *poolMetrics
	running atomic.Int64

	wg          sync.WaitGroup
	runningLock sync.RWMutex
	closed      atomic.Bool
}

func newElasticPool(o *options) *elasticPool {
	p := &elasticPool{
		locks:   newKeyedMutex(),
		metrics: newPoolMetrics(o.name, KindElastic),
	}
	p.scheduler = newScheduler(o.clock, p.Submit, p.metrics)
	return p
}

// Submit implements Executor.
func (p *elasticPool) Submit(key string, task func()) error {
	p.runningLock.RLock()
	defer p.runningLock.RUnlock()

	if p.closed.Load() {
		return cerrors.ErrWorkerPoolClosed.GenWithStackByArgs()
	}

	p.wg.Add(1)
	p.metrics.pendingTasks.Inc()
	go p.run(key, task)
	return nil
}

func (p *elasticPool) run(key string, task func()) {
	defer p.wg.Done()

	p.locks.lock(key)
	defer p.locks.unlock(key)

	p.metrics.pendingTasks.Dec()
	p.metrics.workingWorkers.Set(float64(p.running.Inc()))
	start := clock.MonoNow()
	defer func() {
		p.metrics.workingDuration.Add(clock.MonoNow().Sub(start).Seconds())
		p.metrics.workingWorkers.Set(float64(p.running.Dec()))
	}()

	task()
}

// Shutdown implements Executor.
func (p *elasticPool) Shutdown() {
	p.scheduler.shutdown()

	p.runningLock.Lock()
	defer p.runningLock.Unlock()
	if p.closed.Swap(true) {
		return
	}
	p.metrics.cleanup()
}

// AwaitTermination implements Executor.
func (p *elasticPool) AwaitTermination(timeout time.Duration) bool {
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
		p.wg.Wait()
		close(done)
	}()
	return waitTimeout(done, deadline)
}

// Kind implements Executor.
func (p *elasticPool) Kind() Kind {
	return KindElastic
}
