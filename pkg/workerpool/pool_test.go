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
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	cerrors "github.com/Westmist/Vanta-sub000/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

var allKinds = []Kind{KindElastic, KindSharded}

func newTestExecutor(t *testing.T, kind Kind, opts ...Option) Executor {
	e, err := New(kind, 4, append(opts, WithName(t.Name()))...)
	require.NoError(t, err)
	return e
}

func shutdownAndWait(t *testing.T, e Executor) {
	e.Shutdown()
	require.True(t, e.AwaitTermination(5*time.Second))
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	k, err := ParseKind("elastic")
	require.NoError(t, err)
	require.Equal(t, KindElastic, k)
	k, err = ParseKind(" SHARDED ")
	require.NoError(t, err)
	require.Equal(t, KindSharded, k)
	require.Equal(t, "sharded", k.String())

	_, err = ParseKind("virtual")
	require.True(t, cerrors.ErrUnknownExecutorKind.Equal(err))

	_, err = New(Kind(42), 1)
	require.Error(t, err)
}

func TestSubmitRunsAllTasks(t *testing.T) {
	for _, kind := range allKinds {
		kind := kind
		t.Run(kind.String(), func(t *testing.T) {
			e := newTestExecutor(t, kind)
			defer shutdownAndWait(t, e)
			require.Equal(t, kind, e.Kind())

			var sum atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 100; i++ {
				wg.Add(1)
				finalI := i
				err := e.Submit(fmt.Sprintf("key-%d", i%7), func() {
					sum.Add(int32(finalI + 1))
					wg.Done()
				})
				require.NoError(t, err)
			}
			wg.Wait()
			require.Equal(t, int32(5050), sum.Load())
		})
	}
}

func TestSameKeyIsExclusive(t *testing.T) {
	for _, kind := range allKinds {
		kind := kind
		t.Run(kind.String(), func(t *testing.T) {
			e := newTestExecutor(t, kind)
			defer shutdownAndWait(t, e)

			const (
				numKeys  = 8
				numTasks = 200
			)
			var (
				inFlight [numKeys]atomic.Int32
				maxSeen  atomic.Int32
				wg       sync.WaitGroup
			)
			for i := 0; i < numTasks*numKeys; i++ {
				k := i % numKeys
				wg.Add(1)
				err := e.Submit(fmt.Sprintf("actor-%d", k), func() {
					defer wg.Done()
					n := inFlight[k].Inc()
					if n > maxSeen.Load() {
						maxSeen.Store(n)
					}
					if rand.Intn(16) == 0 {
						time.Sleep(time.Microsecond * 50)
					}
					inFlight[k].Dec()
				})
				require.NoError(t, err)
			}
			wg.Wait()
			require.Equal(t, int32(1), maxSeen.Load())
		})
	}
}

func TestShardedKeepsSubmissionOrder(t *testing.T) {
	e := newTestExecutor(t, KindSharded)
	defer shutdownAndWait(t, e)

	var (
		mu   sync.Mutex
		seen []int
		wg   sync.WaitGroup
	)
	for i := 0; i < 1000; i++ {
		i := i
		wg.Add(1)
		require.NoError(t, e.Submit("room-1", func() {
			mu.Lock()
			seen = append(seen, i)
			mu.Unlock()
			wg.Done()
		}))
	}
	wg.Wait()
	for i, v := range seen {
		require.Equal(t, i, v)
	}
}

func TestShardedLaneIsStable(t *testing.T) {
	e, err := New(KindSharded, 8)
	require.NoError(t, err)
	defer shutdownAndWait(t, e)

	p := e.(*shardedPool)
	require.Len(t, p.lanes, 8)
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("player-%d", i)
		idx := p.laneIndex(key)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 8)
		require.Equal(t, idx, p.laneIndex(key))
	}
}

func TestShardedDefaultParallelism(t *testing.T) {
	e, err := New(KindSharded, 0)
	require.NoError(t, err)
	defer shutdownAndWait(t, e)
	require.Len(t, e.(*shardedPool).lanes, DefaultParallelism())
}

func TestElasticReleasesKeyLocks(t *testing.T) {
	e := newTestExecutor(t, KindElastic)
	defer shutdownAndWait(t, e)

	p := e.(*elasticPool)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		require.NoError(t, e.Submit(fmt.Sprintf("npc-%d", i), wg.Done))
	}
	wg.Wait()
	require.Eventually(t, func() bool {
		return p.locks.len() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestKeyedMutex(t *testing.T) {
	t.Parallel()

	k := newKeyedMutex()
	k.lock("a")
	locked := make(chan struct{})
	go func() {
		k.lock("a")
		close(locked)
		k.unlock("a")
	}()
	select {
	case <-locked:
		t.Fatal("must wait for the first holder")
	case <-time.After(50 * time.Millisecond):
	}
	require.Equal(t, 1, k.len())
	k.unlock("a")
	<-locked
	require.Eventually(t, func() bool { return k.len() == 0 }, time.Second, time.Millisecond)
}

func TestSubmitAfterShutdown(t *testing.T) {
	for _, kind := range allKinds {
		kind := kind
		t.Run(kind.String(), func(t *testing.T) {
			e := newTestExecutor(t, kind)
			shutdownAndWait(t, e)

			err := e.Submit("p1", func() {})
			require.True(t, cerrors.ErrWorkerPoolClosed.Equal(err))

			_, err = e.ScheduleOnce("p1", time.Millisecond, func() {})
			require.True(t, cerrors.ErrSchedulerRejected.Equal(err))
			_, err = e.SchedulePeriodic("p1", 0, time.Millisecond, func() {})
			require.True(t, cerrors.ErrSchedulerRejected.Equal(err))

			// Shutdown is idempotent.
			e.Shutdown()
		})
	}
}

func TestShutdownDrainsAcceptedTasks(t *testing.T) {
	for _, kind := range allKinds {
		kind := kind
		t.Run(kind.String(), func(t *testing.T) {
			e := newTestExecutor(t, kind)
			var done atomic.Int32
			for i := 0; i < 50; i++ {
				require.NoError(t, e.Submit("p1", func() {
					time.Sleep(time.Millisecond)
					done.Inc()
				}))
			}
			e.Shutdown()
			require.True(t, e.AwaitTermination(5*time.Second))
			require.Equal(t, int32(50), done.Load())
		})
	}
}

func TestAwaitTerminationTimeout(t *testing.T) {
	for _, kind := range allKinds {
		kind := kind
		t.Run(kind.String(), func(t *testing.T) {
			e := newTestExecutor(t, kind)
			// Not shut down yet, returns without waiting.
			start := time.Now()
			require.False(t, e.AwaitTermination(time.Hour))
			require.Less(t, time.Since(start), time.Second)

			release := make(chan struct{})
			require.NoError(t, e.Submit("p1", func() { <-release }))
			e.Shutdown()
			require.False(t, e.AwaitTermination(20*time.Millisecond))

			close(release)
			require.True(t, e.AwaitTermination(5*time.Second))
		})
	}
}
