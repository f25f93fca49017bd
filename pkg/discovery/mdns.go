package discovery

import (
	"context"
	"log/slog"
	"net"

	"github.com/enbility/zeroconf/v3"
)

// Browser streams discovered endpoints until ctx is done.
type Browser interface {
	Browse(ctx context.Context) (<-chan Entry, error)
}

// BrowserConfig configures an MDNSBrowser.
type BrowserConfig struct {
	// Interface restricts queries to one network interface.
	Interface string

	// Logger for operational logging.
	Logger *slog.Logger
}

// MDNSBrowser implements Browser using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
	logger *slog.Logger
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MDNSBrowser{config: config, logger: logger}
}

// Browse searches for endpoints. Entries are aggregated by instance name:
// an entry is emitted when first seen and again whenever it gains
// addresses. Removals drop addresses; the channel closes when ctx is done.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan Entry, error) {
	out := make(chan Entry)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		seen := make(map[string]*Entry)
		for {
			select {
			case se, ok := <-entries:
				if !ok {
					return
				}
				e := toEntry(se)
				existing, found := seen[e.Instance]
				if found {
					before := len(existing.Addresses)
					existing.Addresses = mergeAddresses(existing.Addresses, e.Addresses)
					if len(existing.Addresses) == before {
						continue
					}
					e = *existing
				} else {
					seen[e.Instance] = &e
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}

			case se, ok := <-removed:
				if !ok {
					continue
				}
				if existing, found := seen[se.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, toEntry(se).Addresses)
					if len(existing.Addresses) == 0 {
						delete(seen, se.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		if err := zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.options()...); err != nil {
			b.logger.Warn("mdns browse failed", "error", err)
		}
	}()

	return out, nil
}

func (b *MDNSBrowser) options() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		} else {
			b.logger.Warn("mdns interface not found", "interface", b.config.Interface, "error", err)
		}
	}
	return opts
}

func toEntry(se *zeroconf.ServiceEntry) Entry {
	addrs := make([]net.IP, 0, len(se.AddrIPv4)+len(se.AddrIPv6))
	addrs = append(addrs, se.AddrIPv4...)
	addrs = append(addrs, se.AddrIPv6...)
	return Entry{
		Instance:  se.Instance,
		Host:      se.HostName,
		Port:      se.Port,
		Addresses: addrs,
		Text:      ParseText(se.Text),
	}
}

var _ Browser = (*MDNSBrowser)(nil)
