package element

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocksSerializeSameKey(t *testing.T) {
	l := NewLocks()
	var active, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Do(context.Background(), 1, func(context.Context) error {
				n := active.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				active.Add(-1)
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, peak.Load())
	require.Zero(t, l.Len(), "idle keys are removed")
}

func TestLocksKeysAreIndependent(t *testing.T) {
	l := NewLocks()
	hold := make(chan struct{})
	entered := make(chan struct{})
	go l.Do(context.Background(), 1, func(context.Context) error {
		close(entered)
		<-hold
		return nil
	})
	<-entered

	done := make(chan error, 1)
	go func() { done <- l.Do(context.Background(), 2, func(context.Context) error { return nil }) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatalf("key 2 was blocked by key 1")
	}
	close(hold)
}

func TestLocksPreemptWaiter(t *testing.T) {
	l := NewLocks()
	hold := make(chan struct{})
	entered := make(chan struct{})
	go l.Do(context.Background(), 1, func(context.Context) error {
		close(entered)
		<-hold
		return nil
	})
	<-entered

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	ran := false
	go func() {
		done <- l.Do(ctx, 1, func(context.Context) error { ran = true; return nil })
	}()
	cancel()
	require.ErrorIs(t, <-done, ErrPreempted)
	require.False(t, ran)
	close(hold)
}

func TestLocksPropagateErrorsAndPanics(t *testing.T) {
	l := NewLocks()
	boom := errors.New("boom")
	require.ErrorIs(t, l.Do(context.Background(), 3, func(context.Context) error { return boom }), boom)

	require.Panics(t, func() {
		_ = l.Do(context.Background(), 3, func(context.Context) error { panic("bad") })
	})
	// The lock was released by the panic.
	require.NoError(t, l.Do(context.Background(), 3, func(context.Context) error { return nil }))
	require.Zero(t, l.Len())
}
