// Package netmon watches backend reachability and broadcasts
// online/offline transitions to the rest of the request layer.
package netmon

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/domain"
)

const (
	defaultInterval     = 15 * time.Second
	defaultProbeTimeout = 3 * time.Second
)

// Probe answers whether the backend is currently reachable.
type Probe func(ctx context.Context) bool

// HTTPProbe reaches for the given URL with a short timeout. Any
// response, including an error status, counts as reachable; only a
// transport failure means offline.
func HTTPProbe(url string) Probe {
	client := &http.Client{Timeout: defaultProbeTimeout}
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}
}

// Monitor tracks the device's connectivity state. Transitions are
// delivered one at a time: while listeners handle a change, further
// probe results only update the target state, so a burst of flapping
// collapses into a single notification per settled state.
type Monitor struct {
	probe    Probe
	interval time.Duration
	logger   *slog.Logger

	mu          sync.Mutex
	online      bool
	lastChanged time.Time
	notifying   bool
	listeners   map[int]func(online bool)
	nextID      int

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a monitor over probe. The initial state is online; the
// first probe corrects it if needed.
func New(probe Probe, interval time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Monitor{
		probe:       probe,
		interval:    interval,
		logger:      logger,
		online:      true,
		lastChanged: time.Now(),
		listeners:   make(map[int]func(bool)),
		stop:        make(chan struct{}),
	}
}

// Start launches the probe loop. Returns immediately.
func (m *Monitor) Start(ctx context.Context) {
	go m.loop(ctx)
}

// Close stops the probe loop.
func (m *Monitor) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Monitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Establish the real state right away instead of waiting a tick.
	m.SetOnline(m.probe(ctx))

	for {
		select {
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetOnline(m.probe(ctx))
		}
	}
}

// IsOnline returns the current reachability state.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// State returns the full connectivity snapshot.
func (m *Monitor) State() domain.ConnectivityState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.ConnectivityState{Online: m.online, LastChangedAt: m.lastChanged}
}

// Subscribe registers a transition listener and returns an unsubscribe
// func. Listeners run synchronously on the goroutine reporting the
// change; a listener that drains the queue therefore blocks further
// notifications until it finishes, which is the debounce the flush
// logic relies on.
func (m *Monitor) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// SetOnline records a reachability observation. Platform integrations
// push OS-level events here; the probe loop feeds it too. No-op when
// the state is unchanged. While a previous transition is still being
// handled, new observations update the state but do not start a second
// notification pass.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	m.lastChanged = time.Now()
	if m.notifying {
		// Flap during delivery: state is updated, the running pass
		// re-checks before returning.
		m.mu.Unlock()
		return
	}
	m.notifying = true
	m.mu.Unlock()

	m.logger.Info("connectivity changed", "online", online)
	m.deliver()
}

func (m *Monitor) deliver() {
	for {
		m.mu.Lock()
		state := m.online
		fns := make([]func(bool), 0, len(m.listeners))
		for _, fn := range m.listeners {
			fns = append(fns, fn)
		}
		m.mu.Unlock()

		for _, fn := range fns {
			fn(state)
		}

		m.mu.Lock()
		if m.online == state {
			// Settled; no flap happened while listeners ran.
			m.notifying = false
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()
	}
}
