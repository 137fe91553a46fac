package throttle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTasksRunInOrderWithMinimumGap(t *testing.T) {
	const gap = 50 * time.Millisecond
	s := New(gap, nil)
	defer s.Close()

	var mu sync.Mutex
	var order []int
	var starts []time.Time

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		// Submit sequentially so submission order is defined, then wait
		// for completion concurrently.
		done := make(chan struct{})
		go func() {
			defer wg.Done()
			s.Do(context.Background(), func() error {
				mu.Lock()
				order = append(order, i)
				starts = append(starts, time.Now())
				mu.Unlock()
				close(done)
				return nil
			})
		}()
		<-done
	}
	wg.Wait()

	require.Len(t, order, 5)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)

	for i := 1; i < len(starts); i++ {
		delta := starts[i].Sub(starts[i-1])
		assert.GreaterOrEqual(t, delta, gap,
			"task %d started %v after its predecessor, want at least %v", i, delta, gap)
	}
}

func TestOutcomeReachesOnlyItsOwnCaller(t *testing.T) {
	s := New(time.Millisecond, nil)
	defer s.Close()

	boom := errors.New("rejected")

	err1 := s.Do(context.Background(), func() error { return boom })
	err2 := s.Do(context.Background(), func() error { return nil })

	assert.ErrorIs(t, err1, boom)
	assert.NoError(t, err2, "one task failing must not short-circuit another")
}

func TestDoAfterCloseFails(t *testing.T) {
	s := New(time.Millisecond, nil)
	s.Close()

	err := s.Do(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCancelledWaiterDoesNotDisturbQueue(t *testing.T) {
	s := New(time.Millisecond, nil)
	defer s.Close()

	block := make(chan struct{})
	go s.Do(context.Background(), func() error {
		<-block
		return nil
	})
	time.Sleep(10 * time.Millisecond) // let the blocking task start

	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Do(ctx, func() error {
			close(ran)
			return nil
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	err := <-errCh
	require.ErrorIs(t, err, context.Canceled)

	// The cancelled submitter stopped waiting, but its task still runs
	// so execution-side bookkeeping stays consistent.
	close(block)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("queued task never ran after caller gave up waiting")
	}
}
