package transport

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestKeepAliveDefaults(t *testing.T) {
	ka := NewKeepAlive(0, nil, func() {})
	if ka.Interval() != DefaultKeepAliveInterval {
		t.Errorf("Interval = %v, want %v", ka.Interval(), DefaultKeepAliveInterval)
	}
}

func TestKeepAliveTicks(t *testing.T) {
	mock := clock.NewMock()
	var checks atomic.Int32

	ka := NewKeepAlive(time.Second, mock, func() { checks.Add(1) })
	ka.Start()
	ka.Start()
	if !ka.IsRunning() {
		t.Fatal("expected keepalive to be running")
	}

	for i := 0; i < 3; i++ {
		mock.Add(time.Second)
		waitFor(t, func() bool { return checks.Load() == int32(i+1) })
	}

	ka.Stop()
	ka.Stop()
	if ka.IsRunning() {
		t.Fatal("expected keepalive to be stopped")
	}

	mock.Add(5 * time.Second)
	time.Sleep(10 * time.Millisecond)
	if got := checks.Load(); got != 3 {
		t.Errorf("checks after stop = %d, want 3", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}
