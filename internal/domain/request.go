package domain

import "time"

// RequestStatus tracks a queued request through its replay lifecycle.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusInFlight RequestStatus = "in_flight"
	StatusFailed   RequestStatus = "failed" // terminal, excluded from future drains
)

// QueuedRequest is a mutating call captured while the network was
// unreachable. The ID is generated once at enqueue time and resent as
// the idempotency key on every replay, so the backend can recognize
// re-delivery of the same user action.
type QueuedRequest struct {
	Seq       uint64            `json:"seq"` // bbolt sequence, defines FIFO order
	ID        string            `json:"id"`
	Method    string            `json:"method"`
	Endpoint  string            `json:"endpoint"`
	Body      []byte            `json:"body,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	Attempts  int               `json:"attempts"`
	Status    RequestStatus     `json:"status"`
	LastError string            `json:"lastError,omitempty"`

	// InvalidatePrefixes are the cache prefixes the original call asked
	// to wipe, so a drained replay invalidates the same reads an online
	// call would have.
	InvalidatePrefixes []string `json:"invalidatePrefixes,omitempty"`
}

// RequestOptions are per-call knobs supplied by the calling service and
// consumed once per dispatcher call. The zero value means: no caching,
// no offline fallback, authenticated, default timeout.
type RequestOptions struct {
	// Cache enables cache-first reads under CacheKey. GET only.
	Cache    bool
	CacheKey string

	// CacheTTL overrides the store's default entry TTL when > 0.
	CacheTTL time.Duration

	// OfflineFallback queues a mutating call that failed with a
	// network-class error instead of reporting failure.
	OfflineFallback bool

	// SkipAuth leaves out the Authorization header.
	SkipAuth bool

	// Timeout bounds a single network attempt when > 0.
	Timeout time.Duration

	// InvalidatePrefixes are cache key prefixes wiped after a successful
	// mutation. When empty the dispatcher falls back to the endpoint's
	// first path segment.
	InvalidatePrefixes []string
}

// ConnectivityState is owned by the connectivity monitor; everyone else
// only reads it.
type ConnectivityState struct {
	Online        bool
	LastChangedAt time.Time
}
