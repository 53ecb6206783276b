package queue

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func waitPending(t *testing.T, s *Service, n int64) {
	t.Helper()

	require.Eventually(t, func() bool {
		return s.Pending() == n
	}, time.Second, time.Millisecond)
}

func TestExclusive_RunsInAdmissionOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewSerializer()
	gate := make(chan struct{})

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = Exclusive(s, func() (struct{}, error) {
			<-gate
			mu.Lock()
			order = append(order, 0)
			mu.Unlock()
			return struct{}{}, nil
		})
	}()
	waitPending(t, s, 1)

	const n = 10
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = Exclusive(s, func() (struct{}, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return struct{}{}, nil
			})
		}()
		waitPending(t, s, int64(i+1))
	}

	close(gate)
	wg.Wait()

	expected := make([]int, 0, n+1)
	for i := 0; i <= n; i++ {
		expected = append(expected, i)
	}
	assert.Equal(t, expected, order)
	assert.Zero(t, s.Pending())
}

func TestExclusive_NeverOverlaps(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewSerializer()

	var (
		running atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = Exclusive(s, func() (int, error) {
				cur := running.Add(1)
				for {
					prev := maxSeen.Load()
					if cur <= prev || maxSeen.CompareAndSwap(prev, cur) {
						break
					}
				}
				time.Sleep(100 * time.Microsecond)
				running.Add(-1)
				return 0, nil
			})
		}()
	}

	wg.Wait()
	assert.Equal(t, int32(1), maxSeen.Load())
}

func TestExclusive_ErrorReleasesSlot(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewSerializer()
	boom := errors.New("boom")

	_, err := Exclusive(s, func() (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)

	got, err := Exclusive(s, func() (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestExclusive_PanicReleasesSlot(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewSerializer()

	assert.Panics(t, func() {
		_, _ = Exclusive(s, func() (int, error) {
			panic("op exploded")
		})
	})

	got, err := Exclusive(s, func() (string, error) {
		return "still alive", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "still alive", got)
}

func TestShutdown_WaitsForAdmittedOperations(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewSerializer()
	gate := make(chan struct{})
	var finished atomic.Bool

	go func() {
		_, _ = Exclusive(s, func() (struct{}, error) {
			<-gate
			finished.Store(true)
			return struct{}{}, nil
		})
	}()
	waitPending(t, s, 1)

	done := make(chan struct{})
	go func() {
		_ = s.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("shutdown returned before the admitted operation finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(gate)
	<-done
	assert.True(t, finished.Load())
}
