package device

import (
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/homewire/homewire-go/pkg/log"
	"github.com/homewire/homewire-go/pkg/metrics"
)

// DefaultTimeout is the default service round-trip budget.
const DefaultTimeout = 2 * time.Second

type options struct {
	name    string
	logger  *slog.Logger
	capture log.Logger
	clock   clock.Clock
	metrics *metrics.Metrics
}

// Option configures a Device.
type Option func(*options)

// WithName labels the device in logs, capture and metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithProtocolLogger sets the capture sink for call and event traffic.
func WithProtocolLogger(l log.Logger) Option {
	return func(o *options) { o.capture = l }
}

// WithClock sets the clock used for timeouts and cache cooldowns.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

type serviceOptions struct {
	timeout   time.Duration
	cached    bool
	cooldown  time.Duration
	cacheSize int
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

// WithTimeout sets the round-trip budget for each call.
func WithTimeout(d time.Duration) ServiceOption {
	return func(o *serviceOptions) { o.timeout = d }
}

// WithCache deduplicates identical concurrent calls and serves the settled
// result for cooldown after it arrives.
func WithCache(cooldown time.Duration) ServiceOption {
	return func(o *serviceOptions) {
		o.cached = true
		o.cooldown = cooldown
	}
}

// WithCacheSize bounds the number of distinct requests the cache tracks.
func WithCacheSize(n int) ServiceOption {
	return func(o *serviceOptions) { o.cacheSize = n }
}
