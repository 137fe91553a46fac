// Package offline holds the durable write queue that captures mutating
// requests made without connectivity and replays them in order once the
// network returns.
package offline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/domain"
	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/store"
	"github.com/google/uuid"
)

// DefaultMaxAttempts bounds replays of a single entry before it is
// surfaced as a terminal failure.
const DefaultMaxAttempts = 5

// Sender replays one queued request against the backend. The request's
// ID travels as the idempotency key so the server can dedupe
// re-delivery. A nil error confirms delivery; a classified error
// decides whether the entry stays pending or fails terminally.
type Sender interface {
	Send(ctx context.Context, req domain.QueuedRequest) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, req domain.QueuedRequest) error

func (f SenderFunc) Send(ctx context.Context, req domain.QueuedRequest) error {
	return f(ctx, req)
}

// ItemOutcome reports what happened to one entry during a drain.
type ItemOutcome struct {
	Request domain.QueuedRequest
	Err     error // nil on confirmed delivery
}

// DrainResult summarizes a single drain pass.
type DrainResult struct {
	Delivered []ItemOutcome
	Failed    []ItemOutcome // terminal failures, surfaced, removed from future drains
	Stopped   bool          // a network-class failure halted the pass
}

// Queue is the offline write queue. Persistence lives in the bolt
// store; the queue owns ordering, the drain guard, and attempt
// accounting.
type Queue struct {
	store  *store.Store
	sender Sender
	logger *slog.Logger

	maxAttempts int

	mu        sync.Mutex
	draining  bool
	listeners map[int]func(pending int)
	nextID    int
}

// NewQueue creates a queue over st, replaying through sender. Entries
// left in_flight by a drain the process did not survive are returned to
// pending here, so a restart never strands them.
func NewQueue(st *store.Store, sender Sender, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		store:       st,
		sender:      sender,
		logger:      logger,
		maxAttempts: DefaultMaxAttempts,
		listeners:   make(map[int]func(int)),
	}
	q.recoverInFlight()
	return q
}

// recoverInFlight resets interrupted in_flight entries to pending.
// Re-delivery is safe: the idempotency key marks a replay as the same
// action, not a duplicate.
func (q *Queue) recoverInFlight() {
	all, err := q.store.AllRequests()
	if err != nil {
		q.logger.Error("failed to scan outbox for recovery", "error", err)
		return
	}
	for _, req := range all {
		if req.Status != domain.StatusInFlight {
			continue
		}
		req.Status = domain.StatusPending
		if err := q.store.UpdateRequest(&req); err != nil {
			q.logger.Error("failed to recover in-flight request", "id", req.ID, "error", err)
			continue
		}
		q.logger.Warn("recovered interrupted request", "id", req.ID, "attempts", req.Attempts)
	}
}

// SetMaxAttempts overrides the replay cap.
func (q *Queue) SetMaxAttempts(n int) {
	if n > 0 {
		q.maxAttempts = n
	}
}

// Enqueue captures one user action. The returned request carries the
// freshly minted idempotency key. invalidate names the cache prefixes
// to wipe once the replay lands.
func (q *Queue) Enqueue(method, endpoint string, body []byte, headers map[string]string, invalidate []string) (*domain.QueuedRequest, error) {
	req := &domain.QueuedRequest{
		ID:                 uuid.NewString(),
		Method:             method,
		Endpoint:           endpoint,
		Body:               body,
		Headers:            headers,
		CreatedAt:          time.Now(),
		Status:             domain.StatusPending,
		InvalidatePrefixes: invalidate,
	}
	if err := q.store.AppendRequest(req); err != nil {
		return nil, err
	}
	q.logger.Info("queued offline request", "id", req.ID, "method", method, "endpoint", endpoint)
	q.notify()
	return req, nil
}

// PendingCount reports entries waiting to sync. Read-only projection
// for the UI banner; never a control input.
func (q *Queue) PendingCount() int {
	return q.store.PendingCount()
}

// Subscribe registers a listener called with the pending count after
// every change. Returns an unsubscribe func.
func (q *Queue) Subscribe(fn func(pending int)) func() {
	q.mu.Lock()
	id := q.nextID
	q.nextID++
	q.listeners[id] = fn
	q.mu.Unlock()
	return func() {
		q.mu.Lock()
		delete(q.listeners, id)
		q.mu.Unlock()
	}
}

func (q *Queue) notify() {
	pending := q.store.PendingCount()
	q.mu.Lock()
	fns := make([]func(int), 0, len(q.listeners))
	for _, fn := range q.listeners {
		fns = append(fns, fn)
	}
	q.mu.Unlock()
	for _, fn := range fns {
		fn(pending)
	}
}

// Drain replays pending entries in enqueue order, awaiting each outcome
// before starting the next. Only one drain runs at a time; a concurrent
// trigger is a no-op, not a queued second drain.
//
// A network-class failure leaves the entry pending and stops the pass
// so later entries cannot overtake it. A terminal failure (validation,
// auth) marks the entry failed, removes it from future drains, and is
// surfaced in the result.
func (q *Queue) Drain(ctx context.Context) DrainResult {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		q.logger.Debug("drain already in progress, skipping")
		return DrainResult{}
	}
	q.draining = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	pending, err := q.store.PendingRequests()
	if err != nil {
		q.logger.Error("failed to load pending requests", "error", err)
		return DrainResult{}
	}
	if len(pending) == 0 {
		return DrainResult{}
	}

	q.logger.Info("draining offline queue", "pending", len(pending))

	var result DrainResult
	for _, req := range pending {
		if ctx.Err() != nil {
			result.Stopped = true
			break
		}

		req.Status = domain.StatusInFlight
		req.Attempts++
		if err := q.store.UpdateRequest(&req); err != nil {
			q.logger.Error("failed to mark request in flight", "id", req.ID, "error", err)
		}

		sendErr := q.sender.Send(ctx, req)
		switch {
		case sendErr == nil:
			if err := q.store.RemoveRequest(req.Seq); err != nil {
				q.logger.Error("failed to remove delivered request", "id", req.ID, "error", err)
			}
			result.Delivered = append(result.Delivered, ItemOutcome{Request: req})
			q.logger.Info("offline request delivered", "id", req.ID, "attempts", req.Attempts)

		case domain.IsNetwork(sendErr) && req.Attempts < q.maxAttempts:
			// Still unreachable. Leave pending and stop; skipping ahead
			// would reorder user actions on the same resource.
			req.Status = domain.StatusPending
			req.LastError = sendErr.Error()
			q.store.UpdateRequest(&req)
			result.Stopped = true
			q.logger.Warn("drain stopped on network failure", "id", req.ID, "error", sendErr)

		default:
			// Validation/auth rejection, or attempts exhausted. Never
			// silently dropped: surfaced to the caller and kept on disk
			// with terminal status.
			req.Status = domain.StatusFailed
			req.LastError = sendErr.Error()
			q.store.UpdateRequest(&req)
			result.Failed = append(result.Failed, ItemOutcome{Request: req, Err: sendErr})
			q.logger.Error("offline request failed terminally",
				"id", req.ID, "attempts", req.Attempts, "error", sendErr)
		}

		if result.Stopped {
			break
		}
	}

	q.notify()
	return result
}

// FailedRequests lists terminally failed entries so the UI can surface
// them to the user.
func (q *Queue) FailedRequests() []domain.QueuedRequest {
	reqs, err := q.store.AllRequests()
	if err != nil {
		return nil
	}
	var failed []domain.QueuedRequest
	for _, r := range reqs {
		if r.Status == domain.StatusFailed {
			failed = append(failed, r)
		}
	}
	return failed
}
