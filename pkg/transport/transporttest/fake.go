// Package transporttest provides an in-memory Transport for tests.
package transporttest

import (
	"context"
	"sync"
	"time"

	"github.com/homewire/homewire-go/pkg/log"
	"github.com/homewire/homewire-go/pkg/transport"
)

// Write is one recorded outbound frame.
type Write struct {
	ID      []byte
	Payload []byte
}

// Fake is a Transport that records writes and lets tests inject inbound
// frames and toggle connectivity.
type Fake struct {
	*transport.Base

	mu       sync.Mutex
	writes   []Write
	writeErr error
	onWrite  func(w Write)
	writeCh  chan Write
	closed   bool
}

var _ transport.Transport = (*Fake)(nil)

// New creates a disconnected fake with the given identifier length.
func New(idLen int) *Fake {
	return NewWithConfig(transport.BaseConfig{Name: "fake", IdentifierLength: idLen})
}

// NewWithConfig creates a disconnected fake from a base configuration.
func NewWithConfig(cfg transport.BaseConfig) *Fake {
	return &Fake{
		Base:    transport.NewBase(cfg),
		writeCh: make(chan Write, 256),
	}
}

// Connect marks the fake connected.
func (f *Fake) Connect(context.Context) error {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return transport.ErrClosed
	}
	f.SetState(transport.StateConnected, "fake connect")
	return nil
}

// Disconnect marks the fake disconnected.
func (f *Fake) Disconnect() error {
	f.SetState(transport.StateDisconnected, "fake disconnect")
	return nil
}

// Reconnect cycles the connection state.
func (f *Fake) Reconnect(ctx context.Context) error {
	_ = f.Disconnect()
	return f.Connect(ctx)
}

// Close disconnects permanently.
func (f *Fake) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return f.Disconnect()
}

// AddDevice registers r.
func (f *Fake) AddDevice(r transport.Receiver) (*transport.Binding, error) {
	return f.Register(f, r)
}

// WriteToNetwork records the frame and invokes the OnWrite hook.
func (f *Fake) WriteToNetwork(id []byte, payload []byte) error {
	if err := f.CheckIdentifier(id); err != nil {
		return err
	}
	if !f.Connected() {
		return transport.ErrNotConnected
	}

	f.mu.Lock()
	if f.writeErr != nil {
		err := f.writeErr
		f.mu.Unlock()
		return err
	}
	w := Write{
		ID:      append([]byte(nil), id...),
		Payload: append([]byte(nil), payload...),
	}
	f.writes = append(f.writes, w)
	hook := f.onWrite
	f.mu.Unlock()

	f.CaptureFrame(log.DirectionOut, id, payload, 0)
	select {
	case f.writeCh <- w:
	default:
	}
	if hook != nil {
		hook(w)
	}
	return nil
}

// Inject delivers frame as if it arrived from the endpoint with id.
func (f *Fake) Inject(id []byte, frame []byte) bool {
	f.CaptureFrame(log.DirectionIn, id, frame, 0)
	return f.Deliver(id, append([]byte(nil), frame...))
}

// OnWrite sets a hook called synchronously after each recorded write.
func (f *Fake) OnWrite(fn func(w Write)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onWrite = fn
}

// SetWriteError makes subsequent writes fail with err (nil clears it).
func (f *Fake) SetWriteError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

// Writes returns a copy of all recorded writes.
func (f *Fake) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Write(nil), f.writes...)
}

// WriteCount returns the number of recorded writes.
func (f *Fake) WriteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

// NextWrite waits up to timeout for the next recorded write.
func (f *Fake) NextWrite(timeout time.Duration) (Write, bool) {
	select {
	case w := <-f.writeCh:
		return w, true
	case <-time.After(timeout):
		return Write{}, false
	}
}
