package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/homewire/homewire-go/pkg/cache"
	"github.com/homewire/homewire-go/pkg/transport"
)

// ResolverConfig configures an MDNSResolver.
type ResolverConfig struct {
	// Browser finds instances. Defaults to an MDNSBrowser on all interfaces.
	Browser Browser

	// Fallback resolves hosts without HostPrefix. Defaults to DNS.
	Fallback transport.Resolver

	// Timeout bounds one lookup.
	Timeout time.Duration

	// TTL is how long an answer is reused.
	TTL time.Duration

	// Clock drives the answer TTL.
	Clock clock.Clock

	// Logger for operational logging.
	Logger *slog.Logger
}

// MDNSResolver resolves "mdns:<instance>" hosts for the UDP transport.
type MDNSResolver struct {
	config ResolverConfig
	logger *slog.Logger

	mu      sync.Mutex
	answers map[string]*cache.Timed[Entry]
}

// NewMDNSResolver creates a resolver with defaults applied.
func NewMDNSResolver(config ResolverConfig) *MDNSResolver {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Browser == nil {
		config.Browser = NewMDNSBrowser(BrowserConfig{Logger: config.Logger})
	}
	if config.Fallback == nil {
		config.Fallback = transport.DNSResolver{}
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultBrowseTimeout
	}
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	return &MDNSResolver{
		config:  config,
		logger:  config.Logger,
		answers: make(map[string]*cache.Timed[Entry]),
	}
}

// ResolveUDP implements transport.Resolver. A zero port is replaced by the
// advertised one.
func (r *MDNSResolver) ResolveUDP(ctx context.Context, host string, port int) (*net.UDPAddr, error) {
	if !IsMDNSHost(host) {
		return r.config.Fallback.ResolveUDP(ctx, host, port)
	}
	name, err := InstanceName(host)
	if err != nil {
		return nil, err
	}

	entry, err := r.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if port == 0 {
		port = entry.Port
	}
	return &net.UDPAddr{IP: entry.PreferredIP(), Port: port}, nil
}

// Lookup returns the entry for instance, browsing if no fresh answer is
// cached.
func (r *MDNSResolver) Lookup(ctx context.Context, instance string) (Entry, error) {
	answer := r.answer(instance)
	if e, ok := answer.Value(); ok {
		return e, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	entries, err := r.config.Browser.Browse(ctx)
	if err != nil {
		return Entry{}, err
	}
	for e := range entries {
		if e.Instance != instance || e.PreferredIP() == nil {
			continue
		}
		answer.Store(e, r.config.Clock.Now())
		r.logger.Debug("mdns instance resolved", "instance", instance, "ip", e.PreferredIP(), "port", e.Port)
		return e, nil
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, instance)
}

// Forget drops the cached answer for instance.
func (r *MDNSResolver) Forget(instance string) {
	r.answer(instance).Reset()
}

func (r *MDNSResolver) answer(instance string) *cache.Timed[Entry] {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.answers[instance]
	if !ok {
		a = cache.NewTimed[Entry](r.config.TTL, r.config.Clock)
		r.answers[instance] = a
	}
	return a
}

var _ transport.Resolver = (*MDNSResolver)(nil)
