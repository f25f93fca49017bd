package hub

import (
	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/homewire/homewire-go/pkg/config"
	"github.com/homewire/homewire-go/pkg/log"
	"github.com/homewire/homewire-go/pkg/metrics"
	"github.com/homewire/homewire-go/pkg/transport"
)

// TransportFactory creates the transport for one UDP endpoint. cfg is fully
// populated from the endpoint and the hub options.
type TransportFactory func(ep config.Endpoint, cfg transport.UDPConfig) (transport.Transport, error)

// Option configures a Hub.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	capture   log.Logger
	metrics   *metrics.Metrics
	clock     clock.Clock
	resolver  transport.Resolver
	transport TransportFactory
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithProtocolLogger sets the capture logger shared by all components.
func WithProtocolLogger(l log.Logger) Option {
	return func(o *options) { o.capture = l }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock sets the clock for transports, devices and decoders.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithResolver replaces the mDNS-with-DNS-fallback resolver.
func WithResolver(r transport.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithTransportFactory replaces UDP transport creation.
func WithTransportFactory(f TransportFactory) Option {
	return func(o *options) { o.transport = f }
}

func newUDP(_ config.Endpoint, cfg transport.UDPConfig) (transport.Transport, error) {
	u, err := transport.NewUDP(cfg)
	if err != nil {
		return nil, err
	}
	return u, nil
}
