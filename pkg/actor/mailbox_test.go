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
	"sync"
	"testing"
	"time"

	"github.com/Westmist/Vanta-sub000/pkg/clock"
	cerrors "github.com/Westmist/Vanta-sub000/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestMailboxUnbounded(t *testing.T) {
	t.Parallel()

	mb := NewMailbox[int](0, 0, nil)
	require.True(t, mb.IsEmpty())
	_, ok := mb.TryDequeue()
	require.False(t, ok)

	for i := 0; i < 1000; i++ {
		require.NoError(t, mb.Enqueue(i))
	}
	require.Equal(t, 1000, mb.Size())
	require.Equal(t, 0, mb.Cap())
	for i := 0; i < 1000; i++ {
		v, ok := mb.TryDequeue()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	require.True(t, mb.IsEmpty())
}

func TestMailboxBoundedFailFast(t *testing.T) {
	t.Parallel()

	mb := NewMailbox[int](2, 0, nil)
	require.NoError(t, mb.Enqueue(1))
	require.NoError(t, mb.Enqueue(2))
	err := mb.Enqueue(3)
	require.True(t, cerrors.ErrMailboxFull.Equal(err), "%v", err)
	require.Equal(t, 2, mb.Size())

	v, ok := mb.TryDequeue()
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.NoError(t, mb.Enqueue(3))
}

func TestMailboxBoundedWaitsForSpace(t *testing.T) {
	t.Parallel()

	mb := NewMailbox[int](1, time.Minute, nil)
	require.NoError(t, mb.Enqueue(1))

	errCh := make(chan error, 1)
	go func() {
		errCh <- mb.Enqueue(2)
	}()
	select {
	case err := <-errCh:
		t.Fatalf("enqueue must wait, got %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	v, ok := mb.TryDequeue()
	require.True(t, ok)
	require.Equal(t, 1, v)
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("enqueue must be woken up")
	}
	v, ok = mb.TryDequeue()
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestMailboxOfferTimeout(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	mb := NewMailbox[int](1, 100*time.Millisecond, mock)
	require.NoError(t, mb.Enqueue(1))

	errCh := make(chan error, 1)
	go func() {
		errCh <- mb.Enqueue(2)
	}()

	var err error
	require.Eventually(t, func() bool {
		mock.Add(10 * time.Millisecond)
		select {
		case err = <-errCh:
			return true
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	require.True(t, cerrors.ErrMailboxFull.Equal(err), "%v", err)

	// TryEnqueue never waits.
	err = mb.TryEnqueue(3)
	require.True(t, cerrors.ErrMailboxFull.Equal(err), "%v", err)
	require.Equal(t, 1, mb.Size())
}

func TestMailboxClose(t *testing.T) {
	t.Parallel()

	mb := NewMailbox[int](1, time.Minute, nil)
	require.NoError(t, mb.Enqueue(1))

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = mb.Enqueue(i + 10)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)

	require.True(t, mb.Close())
	require.False(t, mb.Close())
	require.True(t, mb.IsClosed())
	wg.Wait()
	for _, err := range errs {
		require.True(t, cerrors.ErrMailboxClosed.Equal(err), "%v", err)
	}

	err := mb.Enqueue(2)
	require.True(t, cerrors.ErrMailboxClosed.Equal(err), "%v", err)

	// Items queued before Close are still retrievable.
	v, ok := mb.TryDequeue()
	require.True(t, ok)
	require.Equal(t, 1, v)
	_, ok = mb.TryDequeue()
	require.False(t, ok)
}

func TestMailboxConcurrentProducers(t *testing.T) {
	t.Parallel()

	const (
		producers = 8
		perProd   = 500
	)
	mb := NewMailbox[[2]int](16, time.Minute, nil)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProd; i++ {
				require.NoError(t, mb.Enqueue([2]int{p, i}))
			}
		}(p)
	}

	// Items of one producer come out in the order they were enqueued.
	next := make([]int, producers)
	for received := 0; received < producers*perProd; {
		v, ok := mb.TryDequeue()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		require.Equal(t, next[v[0]], v[1])
		next[v[0]]++
		received++
	}
	wg.Wait()
	require.True(t, mb.IsEmpty())
}
