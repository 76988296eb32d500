package offline

import (
	"sync"
	"time"
)

// scheduler runs fn on a fixed interval until stopped. It is owned by one
// client and may be started again after Stop.
type scheduler struct {
	interval time.Duration
	fn       func()

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
}

func newScheduler(interval time.Duration, fn func()) *scheduler {
	return &scheduler{interval: interval, fn: fn}
}

// start launches the ticker goroutine. Starting a running scheduler is a no-op.
func (s *scheduler) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stopCh, s.done)
}

// stop halts the ticker and waits for the goroutine to exit. Stopping an idle
// scheduler is a no-op.
func (s *scheduler) stop() {
	s.mu.Lock()
	stopCh, done := s.stopCh, s.done
	s.stopCh, s.done = nil, nil
	s.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done
}

func (s *scheduler) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCh != nil
}

func (s *scheduler) loop(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.fn()
		case <-stopCh:
			return
		}
	}
}
