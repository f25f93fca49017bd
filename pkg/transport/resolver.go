package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrNoAddress is returned when a name resolves to no usable address.
var ErrNoAddress = errors.New("no address")

// Resolver turns a configured host into a UDP address.
type Resolver interface {
	ResolveUDP(ctx context.Context, host string, port int) (*net.UDPAddr, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, host string, port int) (*net.UDPAddr, error)

// ResolveUDP calls f.
func (f ResolverFunc) ResolveUDP(ctx context.Context, host string, port int) (*net.UDPAddr, error) {
	return f(ctx, host, port)
}

// DNSResolver resolves hosts through the system resolver. IP literals are
// used as-is. IPv4 addresses are preferred.
type DNSResolver struct {
	// Resolver overrides net.DefaultResolver.
	Resolver *net.Resolver
}

// ResolveUDP implements Resolver.
func (r DNSResolver) ResolveUDP(ctx context.Context, host string, port int) (*net.UDPAddr, error) {
	if ip := net.ParseIP(host); ip != nil {
		return &net.UDPAddr{IP: ip, Port: port}, nil
	}

	res := r.Resolver
	if res == nil {
		res = net.DefaultResolver
	}
	addrs, err := res.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	var fallback *net.IPAddr
	for i := range addrs {
		if addrs[i].IP.To4() != nil {
			return &net.UDPAddr{IP: addrs[i].IP, Port: port}, nil
		}
		if fallback == nil {
			fallback = &addrs[i]
		}
	}
	if fallback == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoAddress, host)
	}
	return &net.UDPAddr{IP: fallback.IP, Port: port, Zone: fallback.Zone}, nil
}
