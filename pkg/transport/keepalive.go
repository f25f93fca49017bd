package transport

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultKeepAliveInterval is the default interval between liveness checks.
const DefaultKeepAliveInterval = 5 * time.Second

// KeepAlive runs a check function on a fixed interval until stopped.
// The transport uses it to reconcile connection intent with socket state.
type KeepAlive struct {
	interval time.Duration
	clock    clock.Clock
	check    func()

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewKeepAlive creates a keep-alive loop. A zero interval uses
// DefaultKeepAliveInterval and a nil clock uses the wall clock.
func NewKeepAlive(interval time.Duration, clk clock.Clock, check func()) *KeepAlive {
	if interval <= 0 {
		interval = DefaultKeepAliveInterval
	}
	if clk == nil {
		clk = clock.New()
	}
	return &KeepAlive{
		interval: interval,
		clock:    clk,
		check:    check,
	}
}

// Start begins the loop. Calling Start on a running loop is a no-op.
func (ka *KeepAlive) Start() {
	ka.mu.Lock()
	defer ka.mu.Unlock()

	if ka.running {
		return
	}
	ka.running = true
	ka.stopCh = make(chan struct{})
	ka.done = make(chan struct{})

	// The ticker is created before the goroutine so a mock clock sees it
	// as soon as Start returns.
	ticker := ka.clock.Ticker(ka.interval)
	go ka.loop(ticker, ka.stopCh, ka.done)
}

// Stop ends the loop and waits for an in-flight check to return.
func (ka *KeepAlive) Stop() {
	ka.mu.Lock()
	if !ka.running {
		ka.mu.Unlock()
		return
	}
	ka.running = false
	close(ka.stopCh)
	done := ka.done
	ka.mu.Unlock()

	<-done
}

// IsRunning returns true if the loop is active.
func (ka *KeepAlive) IsRunning() bool {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.running
}

// Interval returns the tick interval.
func (ka *KeepAlive) Interval() time.Duration {
	return ka.interval
}

func (ka *KeepAlive) loop(ticker *clock.Ticker, stopCh, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			ka.check()
		}
	}
}
