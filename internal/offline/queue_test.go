package offline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/domain"
	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir(), "http://api.test")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func netErr() error {
	return domain.NewError(domain.KindNetwork, 0, "connection refused", nil)
}

func validationErr() error {
	return domain.NewError(domain.KindValidation, 400, "amount must be positive", nil)
}

func TestEnqueueAssignsIdempotencyKeyAndIncrementsPending(t *testing.T) {
	q := NewQueue(testStore(t), SenderFunc(func(context.Context, domain.QueuedRequest) error {
		return nil
	}), nil)

	req, err := q.Enqueue("POST", "/bazar/submit", []byte(`{"amount":100}`), nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, domain.StatusPending, req.Status)
	assert.Equal(t, 1, q.PendingCount())

	// Key is minted once; a second action gets its own.
	req2, err := q.Enqueue("POST", "/bazar/submit", []byte(`{"amount":50}`), nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, req.ID, req2.ID)
	assert.Equal(t, 2, q.PendingCount())
}

func TestDrainDeliversInEnqueueOrder(t *testing.T) {
	var delivered []string
	q := NewQueue(testStore(t), SenderFunc(func(_ context.Context, req domain.QueuedRequest) error {
		delivered = append(delivered, string(req.Body))
		return nil
	}), nil)

	for _, body := range []string{"first", "second", "third"} {
		_, err := q.Enqueue("POST", "/bazar/submit", []byte(body), nil, nil)
		require.NoError(t, err)
	}

	result := q.Drain(context.Background())

	assert.Equal(t, []string{"first", "second", "third"}, delivered)
	assert.Len(t, result.Delivered, 3)
	assert.False(t, result.Stopped)
	assert.Equal(t, 0, q.PendingCount())
}

func TestDrainReusesOriginalIdempotencyKey(t *testing.T) {
	var seen []string
	q := NewQueue(testStore(t), SenderFunc(func(_ context.Context, req domain.QueuedRequest) error {
		seen = append(seen, req.ID)
		if len(seen) == 1 {
			return netErr()
		}
		return nil
	}), nil)

	orig, err := q.Enqueue("POST", "/bazar/submit", []byte(`{}`), nil, nil)
	require.NoError(t, err)

	q.Drain(context.Background()) // fails with a network error, stays pending
	q.Drain(context.Background()) // succeeds

	require.Len(t, seen, 2)
	assert.Equal(t, orig.ID, seen[0])
	assert.Equal(t, orig.ID, seen[1], "replay must present the same idempotency key")
}

func TestNetworkFailureStopsDrainWithoutSkipping(t *testing.T) {
	var attempts []string
	q := NewQueue(testStore(t), SenderFunc(func(_ context.Context, req domain.QueuedRequest) error {
		attempts = append(attempts, string(req.Body))
		return netErr()
	}), nil)

	_, err := q.Enqueue("POST", "/bazar/submit", []byte("a"), nil, nil)
	require.NoError(t, err)
	_, err = q.Enqueue("PATCH", "/bazar/1", []byte("b"), nil, nil)
	require.NoError(t, err)

	result := q.Drain(context.Background())

	assert.True(t, result.Stopped)
	assert.Equal(t, []string{"a"}, attempts, "later entries must not overtake a stuck one")
	assert.Equal(t, 2, q.PendingCount())
}

func TestTerminalFailureIsSurfacedAndExcluded(t *testing.T) {
	var calls int
	q := NewQueue(testStore(t), SenderFunc(func(_ context.Context, req domain.QueuedRequest) error {
		calls++
		if string(req.Body) == "bad" {
			return validationErr()
		}
		return nil
	}), nil)

	_, err := q.Enqueue("POST", "/bazar/submit", []byte("bad"), nil, nil)
	require.NoError(t, err)
	_, err = q.Enqueue("POST", "/bazar/submit", []byte("good"), nil, nil)
	require.NoError(t, err)

	result := q.Drain(context.Background())

	require.Len(t, result.Failed, 1)
	assert.Equal(t, "bad", string(result.Failed[0].Request.Body))
	require.Len(t, result.Delivered, 1, "a rejection must not block the entries behind it")
	assert.Equal(t, 0, q.PendingCount())

	// Excluded from future drains, but not silently dropped.
	require.Len(t, q.FailedRequests(), 1)
	calls = 0
	q.Drain(context.Background())
	assert.Zero(t, calls)
}

func TestAttemptCapConvertsToTerminal(t *testing.T) {
	q := NewQueue(testStore(t), SenderFunc(func(context.Context, domain.QueuedRequest) error {
		return netErr()
	}), nil)
	q.SetMaxAttempts(2)

	_, err := q.Enqueue("POST", "/bazar/submit", []byte(`{}`), nil, nil)
	require.NoError(t, err)

	first := q.Drain(context.Background())
	assert.True(t, first.Stopped)
	assert.Empty(t, first.Failed)

	second := q.Drain(context.Background())
	require.Len(t, second.Failed, 1, "exhausting attempts surfaces a terminal failure")
	assert.Equal(t, 0, q.PendingCount())
}

func TestDrainIsSingleFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var sends int
	var mu sync.Mutex

	q := NewQueue(testStore(t), SenderFunc(func(context.Context, domain.QueuedRequest) error {
		mu.Lock()
		sends++
		mu.Unlock()
		close(started)
		<-release
		return nil
	}), nil)

	_, err := q.Enqueue("POST", "/bazar/submit", []byte(`{}`), nil, nil)
	require.NoError(t, err)

	done := make(chan DrainResult, 1)
	go func() { done <- q.Drain(context.Background()) }()
	<-started

	// Concurrent trigger while the first drain is blocked: must no-op.
	second := q.Drain(context.Background())
	assert.Empty(t, second.Delivered)
	assert.Empty(t, second.Failed)

	close(release)
	first := <-done
	assert.Len(t, first.Delivered, 1)

	mu.Lock()
	assert.Equal(t, 1, sends)
	mu.Unlock()
}

func TestSubscribeSeesPendingChanges(t *testing.T) {
	q := NewQueue(testStore(t), SenderFunc(func(context.Context, domain.QueuedRequest) error {
		return nil
	}), nil)

	var counts []int
	unsub := q.Subscribe(func(pending int) { counts = append(counts, pending) })
	defer unsub()

	_, err := q.Enqueue("POST", "/bazar/submit", []byte(`{}`), nil, nil)
	require.NoError(t, err)
	q.Drain(context.Background())

	require.NotEmpty(t, counts)
	assert.Equal(t, 1, counts[0], "enqueue notifies with the new depth")
	assert.Equal(t, 0, counts[len(counts)-1], "drain notifies once the queue empties")
}

func TestRestartRecoversInterruptedDrain(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(dir, "http://api.test")
	require.NoError(t, err)

	q := NewQueue(st, SenderFunc(func(context.Context, domain.QueuedRequest) error {
		return nil
	}), nil)
	req, err := q.Enqueue("POST", "/bazar/submit", []byte(`{"amount":10}`), nil, nil)
	require.NoError(t, err)

	// Simulate a drain the process did not survive: the entry was
	// marked in flight and then everything stopped.
	req.Status = domain.StatusInFlight
	req.Attempts = 1
	require.NoError(t, st.UpdateRequest(req))
	require.NoError(t, st.Close())

	st, err = store.Open(dir, "http://api.test")
	require.NoError(t, err)
	defer st.Close()

	var delivered []string
	q = NewQueue(st, SenderFunc(func(_ context.Context, r domain.QueuedRequest) error {
		delivered = append(delivered, r.ID)
		return nil
	}), nil)

	assert.Equal(t, 1, q.PendingCount(), "interrupted entry must come back as pending")

	result := q.Drain(context.Background())
	require.Len(t, result.Delivered, 1)
	assert.Equal(t, []string{req.ID}, delivered)
	assert.Equal(t, 0, q.PendingCount())
}
