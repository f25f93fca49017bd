package discovery

import (
	"errors"
	"net"
	"strings"
	"time"
)

// Service constants.
const (
	ServiceType = "_homewire._udp"
	Domain      = "local."

	// HostPrefix marks a transport host that is resolved through mDNS.
	HostPrefix = "mdns:"

	// DefaultBrowseTimeout bounds one resolve.
	DefaultBrowseTimeout = 3 * time.Second

	// DefaultTTL is how long a resolved address is reused.
	DefaultTTL = 30 * time.Second
)

// Discovery errors.
var (
	ErrNotFound      = errors.New("instance not found")
	ErrNotMDNSHost   = errors.New("host is not an mdns name")
	ErrBrowserClosed = errors.New("browser closed")
)

// Entry is one discovered endpoint.
type Entry struct {
	Instance  string
	Host      string
	Port      int
	Addresses []net.IP
	Text      map[string]string
}

// Kind returns the advertised controller kind.
func (e Entry) Kind() string { return e.Text["kind"] }

// Firmware returns the advertised firmware version.
func (e Entry) Firmware() string { return e.Text["fw"] }

// PreferredIP returns the first IPv4 address, falling back to the first
// address of any family.
func (e Entry) PreferredIP() net.IP {
	for _, ip := range e.Addresses {
		if ip.To4() != nil {
			return ip
		}
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return nil
}

// IsMDNSHost reports whether host names an mDNS instance.
func IsMDNSHost(host string) bool {
	return strings.HasPrefix(host, HostPrefix)
}

// InstanceName strips HostPrefix from host.
func InstanceName(host string) (string, error) {
	if !IsMDNSHost(host) {
		return "", ErrNotMDNSHost
	}
	name := strings.TrimPrefix(host, HostPrefix)
	if name == "" {
		return "", ErrNotMDNSHost
	}
	return name, nil
}

// ParseText parses key=value TXT strings. Entries without '=' map to "".
func ParseText(txt []string) map[string]string {
	out := make(map[string]string, len(txt))
	for _, kv := range txt {
		k, v, _ := strings.Cut(kv, "=")
		if k != "" {
			out[k] = v
		}
	}
	return out
}

func mergeAddresses(a, b []net.IP) []net.IP {
	out := append([]net.IP(nil), a...)
	for _, ip := range b {
		dup := false
		for _, have := range out {
			if have.Equal(ip) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, ip)
		}
	}
	return out
}

func removeAddresses(a, gone []net.IP) []net.IP {
	out := make([]net.IP, 0, len(a))
	for _, ip := range a {
		keep := true
		for _, g := range gone {
			if g.Equal(ip) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, ip)
		}
	}
	return out
}
