package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/homewire/homewire-go/pkg/log"
	"github.com/homewire/homewire-go/pkg/metrics"
	"github.com/homewire/homewire-go/pkg/transport"
)

// Source is an upstream event stream. *device.Event satisfies it.
type Source[T any] interface {
	Subscribe(fn func(T)) (cancel func())
}

// Liveness is an upstream online flag. *device.Device satisfies it.
type Liveness interface {
	Online() bool
	OnOnlineChange(fn func(online bool)) (cancel func())
}

// Config configures a relay.
type Config struct {
	// Name labels the relay in logs and metrics.
	Name string

	// Logger for operational logging.
	Logger *slog.Logger

	// ProtocolLogger receives capture events.
	ProtocolLogger log.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// route extracts the sub-device address and event frame from one upstream
// value. On rejection it returns the drop reason and a detail string.
type route[T any] func(v T) (id, frame []byte, reason log.DropReason, detail string, ok bool)

// Relay is a receive-only transport driven by an upstream event stream.
type Relay[T any] struct {
	*transport.Base

	source   Source[T]
	liveness Liveness
	route    route[T]
	raw      func(T) []byte

	mu           sync.Mutex
	wanted       bool
	closed       bool
	cancelSource func()
	cancelLive   func()
}

func newRelay[T any](cfg Config, idLen int, src Source[T], live Liveness, r route[T], raw func(T) []byte) *Relay[T] {
	return &Relay[T]{
		Base: transport.NewBase(transport.BaseConfig{
			Name:             cfg.Name,
			IdentifierLength: idLen,
			Logger:           cfg.Logger,
			ProtocolLogger:   cfg.ProtocolLogger,
			Metrics:          cfg.Metrics,
		}),
		source:   src,
		liveness: live,
		route:    r,
		raw:      raw,
	}
}

// AddDevice registers a sub-device.
func (r *Relay[T]) AddDevice(rcv transport.Receiver) (*transport.Binding, error) {
	return r.Register(r, rcv)
}

// Connect subscribes to the upstream stream and starts mirroring its
// liveness.
func (r *Relay[T]) Connect(context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return transport.ErrClosed
	}
	if r.wanted {
		r.mu.Unlock()
		return nil
	}
	r.wanted = true
	r.cancelSource = r.source.Subscribe(r.handle)
	r.cancelLive = r.liveness.OnOnlineChange(r.follow)
	r.mu.Unlock()

	r.follow(r.liveness.Online())
	return nil
}

// Disconnect stops listening to the upstream stream.
func (r *Relay[T]) Disconnect() error {
	r.mu.Lock()
	cancelSource, cancelLive := r.cancelSource, r.cancelLive
	r.cancelSource, r.cancelLive = nil, nil
	r.wanted = false
	r.mu.Unlock()

	if cancelSource != nil {
		cancelSource()
	}
	if cancelLive != nil {
		cancelLive()
	}
	r.SetState(transport.StateDisconnected, "disconnect requested")
	return nil
}

// Reconnect re-subscribes to the upstream stream.
func (r *Relay[T]) Reconnect(ctx context.Context) error {
	if err := r.Disconnect(); err != nil {
		return err
	}
	return r.Connect(ctx)
}

// Close disconnects permanently.
func (r *Relay[T]) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return r.Disconnect()
}

// WriteToNetwork always fails: sub-devices are receive-only.
func (r *Relay[T]) WriteToNetwork(id []byte, _ []byte) error {
	if err := r.CheckIdentifier(id); err != nil {
		return err
	}
	if !r.Connected() {
		return transport.ErrNotConnected
	}
	return transport.ErrReadOnly
}

func (r *Relay[T]) follow(online bool) {
	r.mu.Lock()
	wanted := r.wanted
	r.mu.Unlock()

	if online && wanted {
		r.SetState(transport.StateConnected, "upstream online")
		return
	}
	r.SetState(transport.StateDisconnected, "upstream offline")
}

func (r *Relay[T]) handle(v T) {
	raw := r.raw(v)
	id, frame, reason, detail, ok := r.route(v)
	if !ok {
		r.Drop(reason, nil, raw, detail)
		return
	}
	r.CaptureFrame(log.DirectionIn, id, frame, 0)
	r.Deliver(id, frame)
}

func detailf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

// Compile-time interface satisfaction checks.
var (
	_ transport.Transport = (*Relay[RadioCode])(nil)
	_ transport.Transport = (*Relay[[]byte])(nil)
)
