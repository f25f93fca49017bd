package device

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/homewire/homewire-go/pkg/log"
	"github.com/homewire/homewire-go/pkg/metrics"
	"github.com/homewire/homewire-go/pkg/transport"
)

// EventMarker is the leading byte of every event frame.
const EventMarker = 0x00

// owner is implemented by every Service. The Device routes responses to
// owners and rejects their pending calls when it goes offline.
type owner interface {
	serviceName() string
	resolve(id uint8, payload []byte)
	rejectAll(err error)
}

// eventRoute is the untyped view of an Event.
type eventRoute interface {
	eventName() string
	discriminator() []byte
	deliver(payload []byte)
}

type route struct {
	name  string
	disc  []byte
	event bool
}

// Device is one endpoint on a transport.
type Device struct {
	name        string
	id          []byte
	transport   transport.Transport
	binding     *transport.Binding
	transportID string

	logger  *slog.Logger
	capture log.Logger
	clock   clock.Clock
	metrics *metrics.Metrics

	mu       sync.Mutex
	routes   []route
	events   []eventRoute
	services []owner
	pending  map[uint8]owner
	closed   bool

	cancelOnline func()
}

// New creates a Device for the endpoint id and registers it on t.
func New(t transport.Transport, id []byte, opts ...Option) (*Device, error) {
	if t == nil {
		return nil, ErrNilTransport
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = "device-" + hex.EncodeToString(id)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.clock == nil {
		o.clock = clock.New()
	}

	d := &Device{
		name:      o.name,
		id:        append([]byte(nil), id...),
		transport: t,
		logger:    o.logger.With("device", o.name),
		capture:   log.OrNoop(o.capture),
		clock:     o.clock,
		metrics:   o.metrics,
		pending:   make(map[uint8]owner),
	}
	if ided, ok := t.(interface{ ID() string }); ok {
		d.transportID = ided.ID()
	}

	binding, err := t.AddDevice(d)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", o.name, err)
	}
	d.binding = binding
	d.cancelOnline = binding.OnOnlineChange(d.handleOnlineChange)
	return d, nil
}

// Name returns the device label.
func (d *Device) Name() string { return d.name }

// Identifier returns the endpoint identifier.
func (d *Device) Identifier() []byte { return d.id }

// Transport returns the owning transport.
func (d *Device) Transport() transport.Transport { return d.transport }

// Online reports whether the owning transport is connected.
func (d *Device) Online() bool {
	return d.binding.Online()
}

// OnOnlineChange registers fn for online flag changes.
func (d *Device) OnOnlineChange(fn func(online bool)) (cancel func()) {
	return d.binding.OnOnlineChange(fn)
}

// Routes returns the registered route names in registration order.
func (d *Device) Routes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, len(d.routes))
	for i, r := range d.routes {
		names[i] = r.name
	}
	return names
}

// Pending returns the number of calls awaiting a response.
func (d *Device) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Close rejects all pending calls and unregisters from the transport.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.cancelOnline()
	d.binding.Remove()
	d.rejectPending(ErrClosed)
	return nil
}

// Receive implements transport.Receiver.
func (d *Device) Receive(frame []byte) {
	if len(frame) == 0 {
		d.drop(log.DropInvalidPayload, frame, "empty frame")
		return
	}

	if frame[0] == EventMarker {
		d.dispatchEvent(frame[1:])
		return
	}

	id := frame[0]
	d.mu.Lock()
	o, ok := d.pending[id]
	d.mu.Unlock()
	if !ok {
		d.drop(log.DropUnmatchedResponse, frame, fmt.Sprintf("id %d", id))
		return
	}
	o.resolve(id, frame[1:])
}

func (d *Device) dispatchEvent(body []byte) {
	d.mu.Lock()
	var target eventRoute
	for _, e := range d.events {
		if bytes.HasPrefix(body, e.discriminator()) {
			target = e
			break
		}
	}
	d.mu.Unlock()

	if target == nil {
		d.drop(log.DropUnknownRoute, body, "no event for discriminator")
		return
	}
	target.deliver(body[len(target.discriminator()):])
}

// register validates and records a route.
func (d *Device) register(name string, disc []byte, event bool) error {
	if !event && len(disc) == 0 {
		return fmt.Errorf("%w: service %s", ErrEmptyDiscriminator, name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	for _, r := range d.routes {
		if bytes.HasPrefix(r.disc, disc) || bytes.HasPrefix(disc, r.disc) {
			return fmt.Errorf("%w: %s [%x] and %s [%x]",
				ErrDiscriminatorCollision, name, disc, r.name, r.disc)
		}
	}
	d.routes = append(d.routes, route{name: name, disc: append([]byte(nil), disc...), event: event})
	return nil
}

func (d *Device) addService(o owner) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.services = append(d.services, o)
}

func (d *Device) addEvent(e eventRoute) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
}

// reserve allocates a request id for o, skipping ids pending on the device.
func (d *Device) reserve(o owner, next func(inUse func(int) bool) (int, bool)) (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, ErrClosed
	}
	v, ok := next(func(v int) bool {
		_, busy := d.pending[uint8(v)]
		return busy
	})
	if !ok {
		return 0, ErrNoSequence
	}
	id := uint8(v)
	d.pending[id] = o
	return id, nil
}

func (d *Device) release(id uint8, o owner) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending[id] == o {
		delete(d.pending, id)
	}
}

func (d *Device) write(frame []byte) error {
	return d.binding.Write(frame)
}

func (d *Device) handleOnlineChange(online bool) {
	d.logger.Info("device online changed", "online", online)
	d.capture.Log(log.Event{
		Timestamp:   time.Now(),
		TransportID: d.transportID,
		Layer:       log.LayerDevice,
		Category:    log.CategoryState,
		Endpoint:    d.name,
		Address:     hex.EncodeToString(d.id),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityDevice,
			OldState: onlineString(!online),
			NewState: onlineString(online),
		},
	})

	if !online {
		d.rejectPending(ErrOffline)
	}
}

func (d *Device) rejectPending(err error) {
	d.mu.Lock()
	services := append([]owner(nil), d.services...)
	d.mu.Unlock()

	for _, s := range services {
		s.rejectAll(err)
	}
}

func (d *Device) drop(reason log.DropReason, frame []byte, detail string) {
	d.logger.Debug("inbound frame dropped", "reason", reason, "size", len(frame), "detail", detail)
	d.metrics.FrameDropped(d.transportName(), reason.String())
	d.capture.Log(log.Event{
		Timestamp:   time.Now(),
		TransportID: d.transportID,
		Direction:   log.DirectionIn,
		Layer:       log.LayerDevice,
		Category:    log.CategoryDrop,
		Endpoint:    d.name,
		Address:     hex.EncodeToString(d.id),
		Drop:        &log.DropEvent{Reason: reason, Size: len(frame), Detail: detail},
	})
}

func (d *Device) logCall(ev log.CallEvent) {
	d.capture.Log(log.Event{
		Timestamp:   time.Now(),
		TransportID: d.transportID,
		Direction:   callDirection(ev.Outcome),
		Layer:       log.LayerService,
		Category:    log.CategoryCall,
		Endpoint:    d.name,
		Address:     hex.EncodeToString(d.id),
		Call:        &ev,
	})
}

func (d *Device) transportName() string {
	if n, ok := d.transport.(interface{ Name() string }); ok {
		return n.Name()
	}
	return d.transportID
}

func callDirection(o log.CallOutcome) log.Direction {
	if o == log.CallSent {
		return log.DirectionOut
	}
	return log.DirectionIn
}

func onlineString(online bool) string {
	if online {
		return "ONLINE"
	}
	return "OFFLINE"
}

var _ transport.Receiver = (*Device)(nil)
