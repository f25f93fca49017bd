package transport

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/homewire/homewire-go/pkg/log"
	"github.com/homewire/homewire-go/pkg/metrics"
	"github.com/homewire/homewire-go/pkg/stream"
)

// BaseConfig configures the shared part of a transport.
type BaseConfig struct {
	// Name labels the transport in logs and metrics.
	Name string

	// IdentifierLength is the fixed endpoint identifier length.
	IdentifierLength int

	// Logger for operational logging. Defaults to slog.Default().
	Logger *slog.Logger

	// ProtocolLogger receives capture events. Nil disables capture.
	ProtocolLogger log.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Base implements the device registry, connection state and inbound
// dispatch shared by every transport. Implementations embed *Base and
// provide the I/O half of the Transport interface.
type Base struct {
	name    string
	id      string
	idLen   int
	logger  *slog.Logger
	capture log.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	devices map[string]*Binding
	state   State

	// stateMu serializes transitions so subscribers observe them in order.
	stateMu sync.Mutex
	changes stream.Stream[StateChange]
	online  stream.Flag
}

// NewBase creates the shared transport state.
func NewBase(cfg BaseConfig) *Base {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	name := cfg.Name
	if name == "" {
		name = id[:8]
	}
	return &Base{
		name:    name,
		id:      id,
		idLen:   cfg.IdentifierLength,
		logger:  logger.With("transport", name),
		capture: log.OrNoop(cfg.ProtocolLogger),
		metrics: cfg.Metrics,
		devices: make(map[string]*Binding),
	}
}

// Name returns the transport label.
func (b *Base) Name() string { return b.name }

// ID returns the transport instance id used in capture events.
func (b *Base) ID() string { return b.id }

// Logger returns the transport-scoped logger.
func (b *Base) Logger() *slog.Logger { return b.logger }

// Metrics returns the metrics sink (may be nil).
func (b *Base) Metrics() *metrics.Metrics { return b.metrics }

// IdentifierLength returns the fixed endpoint identifier length.
func (b *Base) IdentifierLength() int { return b.idLen }

// State returns the current connection state.
func (b *Base) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Connected reports whether the transport is connected.
func (b *Base) Connected() bool {
	return b.State() == StateConnected
}

// OnStateChange registers fn for state transitions.
func (b *Base) OnStateChange(fn func(old, new State)) (cancel func()) {
	return b.changes.Subscribe(func(c StateChange) { fn(c.Old, c.New) })
}

// SetState moves the transport to s. Subscribers and bound devices are
// notified synchronously when the state actually changes.
func (b *Base) SetState(s State, reason string) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	b.mu.Lock()
	old := b.state
	b.state = s
	b.mu.Unlock()

	if old == s {
		return
	}

	b.logger.Debug("transport state changed", "old", old, "new", s, "reason", reason)
	b.capture.Log(log.Event{
		Timestamp:   time.Now(),
		TransportID: b.id,
		Layer:       log.LayerTransport,
		Category:    log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityTransport,
			OldState: old.String(),
			NewState: s.String(),
			Reason:   reason,
		},
	})
	b.metrics.TransportConnected(b.name, s == StateConnected)

	b.changes.Publish(StateChange{Old: old, New: s, Reason: reason})
	b.online.Set(s == StateConnected)
}

// CheckIdentifier validates id against the identifier length. A nil id is
// accepted on single-endpoint transports.
func (b *Base) CheckIdentifier(id []byte) error {
	if len(id) != b.idLen {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrIdentifierLength, len(id), b.idLen)
	}
	return nil
}

// Register validates r and adds it to the registry. owner is the outer
// transport that Binding.Write forwards to.
func (b *Base) Register(owner Transport, r Receiver) (*Binding, error) {
	id := r.Identifier()
	if err := b.CheckIdentifier(id); err != nil {
		return nil, err
	}
	key := string(id)

	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.devices[key]; ok {
		return nil, fmt.Errorf("%w: %s already bound to %s",
			ErrDuplicateIdentifier, formatID(id), existing.receiver.Name())
	}
	binding := &Binding{
		owner:    owner,
		base:     b,
		receiver: r,
		id:       append([]byte(nil), id...),
	}
	b.devices[key] = binding
	return binding, nil
}

// Bindings returns a snapshot of the registered bindings.
func (b *Base) Bindings() []*Binding {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Binding, 0, len(b.devices))
	for _, binding := range b.devices {
		out = append(out, binding)
	}
	return out
}

// Deliver routes an inbound frame to the device registered under id.
// It reports whether a device received the frame.
func (b *Base) Deliver(id []byte, frame []byte) bool {
	b.mu.RLock()
	binding, ok := b.devices[string(id)]
	b.mu.RUnlock()

	if !ok {
		b.Drop(log.DropUnknownAddress, id, frame, "")
		return false
	}

	binding.receiver.Receive(frame)
	return true
}

// Drop records discarded inbound bytes.
func (b *Base) Drop(reason log.DropReason, id []byte, frame []byte, detail string) {
	b.logger.Debug("inbound frame dropped",
		"reason", reason, "address", formatID(id), "size", len(frame), "detail", detail)
	b.metrics.FrameDropped(b.name, reason.String())
	b.capture.Log(log.Event{
		Timestamp:   time.Now(),
		TransportID: b.id,
		Direction:   log.DirectionIn,
		Layer:       log.LayerTransport,
		Category:    log.CategoryDrop,
		Address:     hex.EncodeToString(id),
		Drop:        &log.DropEvent{Reason: reason, Size: len(frame), Detail: detail},
	})
}

// CaptureFrame records a frame crossing the transport boundary.
func (b *Base) CaptureFrame(dir log.Direction, id []byte, frame []byte, repeat int) {
	if dir == log.DirectionOut {
		b.metrics.FrameSent(b.name)
	} else {
		b.metrics.FrameReceived(b.name)
	}
	fe := log.NewFrameEvent(frame)
	fe.Repeat = repeat
	b.capture.Log(log.Event{
		Timestamp:   time.Now(),
		TransportID: b.id,
		Direction:   dir,
		Layer:       log.LayerTransport,
		Category:    log.CategoryFrame,
		Address:     hex.EncodeToString(id),
		Frame:       fe,
	})
}

// CaptureError records a transport-level error.
func (b *Base) CaptureError(err error, context string) {
	b.capture.Log(log.Event{
		Timestamp:   time.Now(),
		TransportID: b.id,
		Layer:       log.LayerTransport,
		Category:    log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: context,
		},
	})
}

func (b *Base) remove(binding *Binding) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.devices[string(binding.id)]; ok && cur == binding {
		delete(b.devices, string(binding.id))
	}
}

func formatID(id []byte) string {
	if len(id) == 0 {
		return "-"
	}
	return hex.EncodeToString(id)
}

// Binding connects one registered receiver to its transport.
type Binding struct {
	owner    Transport
	base     *Base
	receiver Receiver
	id       []byte
}

// Write sends payload to the bound endpoint.
func (b *Binding) Write(payload []byte) error {
	return b.owner.WriteToNetwork(b.id, payload)
}

// Online reports whether the transport is connected.
func (b *Binding) Online() bool {
	return b.base.online.Get()
}

// OnOnlineChange registers fn for online flag changes.
func (b *Binding) OnOnlineChange(fn func(online bool)) (cancel func()) {
	return b.base.online.Subscribe(fn)
}

// Identifier returns the bound endpoint identifier.
func (b *Binding) Identifier() []byte {
	return b.id
}

// Transport returns the owning transport.
func (b *Binding) Transport() Transport {
	return b.owner
}

// Remove unregisters the receiver. Further inbound frames for its
// identifier are dropped.
func (b *Binding) Remove() {
	b.base.remove(b)
}
