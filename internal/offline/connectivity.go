package offline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mesh-intelligence/grocery/internal/logging"
)

// Pinger checks whether the item store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor probes a Pinger on an interval and notifies listeners when the store
// becomes reachable after having been unreachable.
type Monitor struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	sched    *scheduler

	mu        sync.Mutex
	online    bool
	nextID    int
	listeners map[int]func()
}

// NewMonitor creates a Monitor. The store is assumed reachable until a probe
// fails.
func NewMonitor(pinger Pinger, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	m := &Monitor{
		pinger:    pinger,
		interval:  interval,
		timeout:   interval,
		logger:    logging.NewComponentLogger(logger, "connectivity"),
		online:    true,
		listeners: make(map[int]func()),
	}
	m.sched = newScheduler(interval, func() { m.Probe(context.Background()) })
	return m
}

// OnOnline registers fn for offline to online transitions. The returned
// function deregisters it.
func (m *Monitor) OnOnline(fn func()) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// Listeners returns the number of registered listeners.
func (m *Monitor) Listeners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

// Online reports the result of the most recent probe.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Probe runs one check and fires listeners if the store just came back.
// It returns whether the store answered.
func (m *Monitor) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.pinger.Ping(ctx)
	cancel()

	m.mu.Lock()
	was := m.online
	m.online = err == nil
	var fire []func()
	if !was && m.online {
		for _, fn := range m.listeners {
			fire = append(fire, fn)
		}
	}
	m.mu.Unlock()

	switch {
	case err != nil && was:
		m.logger.Warn("item store unreachable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "connectivity_lost"))
	case err == nil && !was:
		m.logger.Info("item store reachable again",
			logging.String(logging.FieldEventType, "connectivity_restored"))
	}
	for _, fn := range fire {
		fn()
	}
	return err == nil
}

// Start begins periodic probing.
func (m *Monitor) Start() {
	m.sched.start()
}

// Stop halts probing. Registered listeners are kept.
func (m *Monitor) Stop() {
	m.sched.stop()
}
