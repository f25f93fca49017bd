package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/homewire/homewire-go/pkg/config"
	"github.com/homewire/homewire-go/pkg/device"
	"github.com/homewire/homewire-go/pkg/discovery"
	"github.com/homewire/homewire-go/pkg/endpoints"
	"github.com/homewire/homewire-go/pkg/log"
	"github.com/homewire/homewire-go/pkg/metrics"
	"github.com/homewire/homewire-go/pkg/relay"
	"github.com/homewire/homewire-go/pkg/transport"
)

// Hub errors.
var (
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	ErrWrongKind       = errors.New("endpoint has a different kind")
	ErrClosed          = errors.New("hub closed")
)

// entry is one configured endpoint.
type entry struct {
	name      string
	kind      config.Kind
	device    *device.Device
	value     any
	transport transport.Transport
}

// gatewayRelays are the relays fed by one gateway.
type gatewayRelays struct {
	rf433  *relay.Relay[relay.RadioCode]
	hwaddr *relay.Relay[[]byte]
}

// Hub owns every transport and endpoint built from a configuration.
type Hub struct {
	config  *config.Config
	logger  *slog.Logger
	capture log.Logger
	metrics *metrics.Metrics
	clock   clock.Clock

	resolver     transport.Resolver
	newTransport TransportFactory

	entries    []*entry
	byName     map[string]*entry
	transports []transport.Transport
	relays     []transport.Transport
	gateways   map[string]gatewayRelays

	mu      sync.Mutex
	started bool
	closed  bool
}

// New builds transports and endpoints for cfg. Nothing is connected until
// Start.
func New(cfg *config.Config, opts ...Option) (*Hub, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{transport: newUDP}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	if o.resolver == nil {
		o.resolver = discovery.NewMDNSResolver(discovery.ResolverConfig{
			Browser: discovery.NewMDNSBrowser(discovery.BrowserConfig{
				Interface: cfg.Discovery.Interface,
				Logger:    o.logger,
			}),
			Timeout: cfg.Discovery.Timeout.D(),
			TTL:     cfg.Discovery.TTL.D(),
			Clock:   o.clock,
			Logger:  o.logger,
		})
	}

	h := &Hub{
		config:       cfg,
		logger:       o.logger,
		capture:      log.OrNoop(o.capture),
		metrics:      o.metrics,
		clock:        o.clock,
		resolver:     o.resolver,
		newTransport: o.transport,
		byName:       make(map[string]*entry, len(cfg.Endpoints)),
		gateways:     make(map[string]gatewayRelays),
	}

	// Gateways before relayed endpoints, which need their relays.
	for _, ep := range cfg.Endpoints {
		if !ep.Kind.UDP() {
			continue
		}
		if err := h.addUDP(ep); err != nil {
			return nil, multierr.Append(fmt.Errorf("endpoint %s: %w", ep.Name, err), h.Close())
		}
	}
	for _, ep := range cfg.Endpoints {
		if ep.Kind.UDP() {
			continue
		}
		if err := h.addRelayed(ep); err != nil {
			return nil, multierr.Append(fmt.Errorf("endpoint %s: %w", ep.Name, err), h.Close())
		}
	}
	return h, nil
}

func (h *Hub) deviceOptions(ep config.Endpoint) []device.Option {
	return []device.Option{
		device.WithName(ep.Name),
		device.WithLogger(h.logger.With("endpoint", ep.Name)),
		device.WithProtocolLogger(h.capture),
		device.WithClock(h.clock),
		device.WithMetrics(h.metrics),
	}
}

func (h *Hub) endpointConfig(ep config.Endpoint) endpoints.Config {
	return endpoints.Config{
		Timeout:  ep.Timeout.D(),
		Cooldown: ep.Cooldown.D(),
		HoldOff:  ep.HoldOff.D(),
		Clock:    h.clock,
	}
}

func (h *Hub) udpConfig(ep config.Endpoint) transport.UDPConfig {
	cfg := transport.DefaultUDPConfig()
	cfg.Name = ep.Name
	cfg.Host = ep.Host
	cfg.Port = ep.Port
	cfg.Sequence = ep.Sequence
	cfg.Repeat = ep.Repeat
	cfg.RepeatDelay = ep.RepeatDelay.D()
	cfg.KeepAliveInterval = ep.KeepAlive.D()
	cfg.IdleTimeout = ep.IdleTimeout.D()
	cfg.Resolver = h.resolver
	cfg.Clock = h.clock
	cfg.Logger = h.logger.With("transport", ep.Name)
	cfg.ProtocolLogger = h.capture
	cfg.Metrics = h.metrics
	return cfg
}

func (h *Hub) addUDP(ep config.Endpoint) error {
	t, err := h.newTransport(ep, h.udpConfig(ep))
	if err != nil {
		return err
	}
	h.transports = append(h.transports, t)

	e := &entry{name: ep.Name, kind: ep.Kind, transport: t}
	cfg := h.endpointConfig(ep)
	opts := h.deviceOptions(ep)

	switch ep.Kind {
	case config.KindGateway:
		g, err := endpoints.NewGateway(t, cfg, opts...)
		if err != nil {
			return err
		}
		e.device, e.value = g.Device, g
		h.addGatewayRelays(ep, g)
	case config.KindRelayBoard:
		b, err := endpoints.NewRelayBoard(t, cfg, opts...)
		if err != nil {
			return err
		}
		e.device, e.value = b.Device, b
	case config.KindLEDDriver:
		l, err := endpoints.NewLEDDriver(t, cfg, opts...)
		if err != nil {
			return err
		}
		e.device, e.value = l.Device, l
	case config.KindSensorNode:
		n, err := endpoints.NewSensorNode(t, cfg, opts...)
		if err != nil {
			return err
		}
		e.device, e.value = n.Device, n
	default:
		return fmt.Errorf("%w: %s", ErrWrongKind, ep.Kind)
	}
	h.add(e)
	return nil
}

func (h *Hub) addGatewayRelays(ep config.Endpoint, g *endpoints.Gateway) {
	base := func(suffix string) relay.Config {
		name := ep.Name + "/" + suffix
		return relay.Config{
			Name:           name,
			Logger:         h.logger.With("transport", name),
			ProtocolLogger: h.capture,
			Metrics:        h.metrics,
		}
	}
	gr := gatewayRelays{
		rf433:  g.NewRF433Relay(relay.RF433Config{Config: base("rf433"), Protocol: ep.RFProtocol}),
		hwaddr: g.NewHWAddrRelay(base("hwaddr")),
	}
	h.gateways[ep.Name] = gr
	h.relays = append(h.relays, gr.rf433, gr.hwaddr)
}

func (h *Hub) addRelayed(ep config.Endpoint) error {
	gr, ok := h.gateways[ep.Gateway]
	if !ok {
		return fmt.Errorf("%w: gateway %s", ErrUnknownEndpoint, ep.Gateway)
	}
	addr, err := ep.AddressBytes()
	if err != nil {
		return err
	}

	e := &entry{name: ep.Name, kind: ep.Kind}
	opts := h.deviceOptions(ep)

	switch ep.Kind {
	case config.KindRFSwitch:
		s, err := endpoints.NewRFSwitch(gr.rf433, addr, h.endpointConfig(ep), opts...)
		if err != nil {
			return err
		}
		e.device, e.value, e.transport = s.Device, s, gr.rf433
	case config.KindDoorSensor:
		s, err := endpoints.NewDoorSensor(gr.hwaddr, addr, opts...)
		if err != nil {
			return err
		}
		e.device, e.value, e.transport = s.Device, s, gr.hwaddr
	default:
		return fmt.Errorf("%w: %s", ErrWrongKind, ep.Kind)
	}
	h.add(e)
	return nil
}

func (h *Hub) add(e *entry) {
	h.entries = append(h.entries, e)
	h.byName[e.name] = e
}

// Start connects every UDP transport in parallel, then every relay.
// Individual failures are logged; the transports keep retrying on their
// own. Start returns an error only when ctx ends first or the hub is closed.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	h.started = true
	h.mu.Unlock()

	h.connectAll(ctx, h.transports)
	h.connectAll(ctx, h.relays)

	if err := ctx.Err(); err != nil {
		return err
	}
	h.logger.Info("hub started", "endpoints", len(h.entries), "transports", len(h.transports), "relays", len(h.relays))
	return nil
}

func (h *Hub) connectAll(ctx context.Context, ts []transport.Transport) {
	var g errgroup.Group
	for _, t := range ts {
		g.Go(func() error {
			if err := t.Connect(ctx); err != nil {
				h.logger.Warn("connect failed, will retry", "transport", transportName(t), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Close closes every endpoint, relay and transport. It is idempotent.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	var err error
	for i := len(h.entries) - 1; i >= 0; i-- {
		err = multierr.Append(err, h.entries[i].device.Close())
	}
	for _, r := range h.relays {
		err = multierr.Append(err, r.Close())
	}
	for _, t := range h.transports {
		err = multierr.Append(err, t.Close())
	}
	return err
}

// Config returns the configuration the hub was built from.
func (h *Hub) Config() *config.Config { return h.config }

// Names returns the endpoint names in configuration order, UDP endpoints
// first.
func (h *Hub) Names() []string {
	names := make([]string, len(h.entries))
	for i, e := range h.entries {
		names[i] = e.name
	}
	return names
}

// Kind returns the kind of the named endpoint.
func (h *Hub) Kind(name string) (config.Kind, bool) {
	e, ok := h.byName[name]
	if !ok {
		return "", false
	}
	return e.kind, true
}

// Device returns the device behind the named endpoint.
func (h *Hub) Device(name string) (*device.Device, error) {
	e, ok := h.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, name)
	}
	return e.device, nil
}

// Gateway returns the named gateway.
func (h *Hub) Gateway(name string) (*endpoints.Gateway, error) {
	return lookup[*endpoints.Gateway](h, name)
}

// RelayBoard returns the named relay board.
func (h *Hub) RelayBoard(name string) (*endpoints.RelayBoard, error) {
	return lookup[*endpoints.RelayBoard](h, name)
}

// LEDDriver returns the named LED driver.
func (h *Hub) LEDDriver(name string) (*endpoints.LEDDriver, error) {
	return lookup[*endpoints.LEDDriver](h, name)
}

// SensorNode returns the named sensor node.
func (h *Hub) SensorNode(name string) (*endpoints.SensorNode, error) {
	return lookup[*endpoints.SensorNode](h, name)
}

// RFSwitch returns the named RF switch.
func (h *Hub) RFSwitch(name string) (*endpoints.RFSwitch, error) {
	return lookup[*endpoints.RFSwitch](h, name)
}

// DoorSensor returns the named door sensor.
func (h *Hub) DoorSensor(name string) (*endpoints.DoorSensor, error) {
	return lookup[*endpoints.DoorSensor](h, name)
}

func lookup[T any](h *Hub, name string) (T, error) {
	var zero T
	e, ok := h.byName[name]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrUnknownEndpoint, name)
	}
	v, ok := e.value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is a %s", ErrWrongKind, name, e.kind)
	}
	return v, nil
}

func transportName(t transport.Transport) string {
	if n, ok := t.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", t)
}
