package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/homewire/homewire-go/pkg/endpoints"
	"github.com/homewire/homewire-go/pkg/relay"
	"github.com/homewire/homewire-go/pkg/transport"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Kind is a controller kind.
type Kind string

// Controller kinds.
const (
	KindGateway    Kind = "gateway"
	KindRelayBoard Kind = "relay_board"
	KindLEDDriver  Kind = "led_driver"
	KindSensorNode Kind = "sensor_node"
	KindRFSwitch   Kind = "rf_switch"
	KindDoorSensor Kind = "door_sensor"
)

// UDP reports whether endpoints of this kind own a UDP transport.
func (k Kind) UDP() bool {
	switch k {
	case KindGateway, KindRelayBoard, KindLEDDriver, KindSensorNode:
		return true
	}
	return false
}

// AddressLength is the relay address length for relayed kinds, else 0.
func (k Kind) AddressLength() int {
	switch k {
	case KindRFSwitch:
		return relay.RF433AddressLength
	case KindDoorSensor:
		return relay.HWAddrLength
	}
	return 0
}

func (k Kind) known() bool {
	return k.UDP() || k.AddressLength() > 0
}

// Config is the hub configuration.
type Config struct {
	Log     LogConfig `yaml:"log" toml:"log"`
	Capture string    `yaml:"capture" toml:"capture"`
	// CaptureMaxBytes rotates the capture file once it grows past this
	// size. Zero keeps a single unbounded file.
	CaptureMaxBytes int64           `yaml:"capture_max_bytes" toml:"capture_max_bytes"`
	Metrics         MetricsConfig   `yaml:"metrics" toml:"metrics"`
	Discovery       DiscoveryConfig `yaml:"discovery" toml:"discovery"`
	Defaults        Defaults        `yaml:"defaults" toml:"defaults"`
	Endpoints       []Endpoint      `yaml:"endpoints" toml:"endpoints"`
}

// LogConfig selects the operational log output.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the HTTP listen address; empty disables metrics.
	Listen string `yaml:"listen" toml:"listen"`
}

// DiscoveryConfig configures mDNS resolution of "mdns:" hosts.
type DiscoveryConfig struct {
	Interface string   `yaml:"interface" toml:"interface"`
	Timeout   Duration `yaml:"timeout" toml:"timeout"`
	TTL       Duration `yaml:"ttl" toml:"ttl"`
}

// Defaults apply to every endpoint that does not set its own value.
type Defaults struct {
	Timeout     Duration `yaml:"timeout" toml:"timeout"`
	Cooldown    Duration `yaml:"cooldown" toml:"cooldown"`
	HoldOff     Duration `yaml:"hold_off" toml:"hold_off"`
	Repeat      int      `yaml:"repeat" toml:"repeat"`
	RepeatDelay Duration `yaml:"repeat_delay" toml:"repeat_delay"`
	KeepAlive   Duration `yaml:"keepalive" toml:"keepalive"`
	IdleTimeout Duration `yaml:"idle_timeout" toml:"idle_timeout"`
}

// Endpoint describes one controller.
type Endpoint struct {
	Name string `yaml:"name" toml:"name"`
	Kind Kind   `yaml:"kind" toml:"kind"`

	// UDP kinds.
	Host        string   `yaml:"host" toml:"host"`
	Port        int      `yaml:"port" toml:"port"`
	Sequence    bool     `yaml:"sequence" toml:"sequence"`
	Repeat      int      `yaml:"repeat" toml:"repeat"`
	RepeatDelay Duration `yaml:"repeat_delay" toml:"repeat_delay"`
	KeepAlive   Duration `yaml:"keepalive" toml:"keepalive"`
	IdleTimeout Duration `yaml:"idle_timeout" toml:"idle_timeout"`
	Timeout     Duration `yaml:"timeout" toml:"timeout"`
	Cooldown    Duration `yaml:"cooldown" toml:"cooldown"`

	// Gateways: accepted RF433 protocol tag.
	RFProtocol uint8 `yaml:"rf_protocol" toml:"rf_protocol"`

	// Relayed kinds.
	Gateway string   `yaml:"gateway" toml:"gateway"`
	Address string   `yaml:"address" toml:"address"`
	HoldOff Duration `yaml:"hold_off" toml:"hold_off"`
}

// DefaultConfig returns a configuration with no endpoints.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Discovery: DiscoveryConfig{
			Timeout: Duration(3 * time.Second),
			TTL:     Duration(30 * time.Second),
		},
		Defaults: DefaultDefaults(),
	}
}

// DefaultDefaults returns the built-in endpoint defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Timeout:     Duration(2 * time.Second),
		Cooldown:    Duration(endpoints.DefaultCooldown),
		HoldOff:     Duration(endpoints.DefaultHoldOff),
		Repeat:      transport.DefaultRepeat,
		RepeatDelay: Duration(transport.DefaultRepeatDelay),
		KeepAlive:   Duration(transport.DefaultKeepAliveInterval),
	}
}

// Endpoint returns the endpoint named name.
func (c *Config) Endpoint(name string) (Endpoint, bool) {
	for _, e := range c.Endpoints {
		if e.Name == name {
			return e, true
		}
	}
	return Endpoint{}, false
}

// applyDefaults fills zero endpoint fields from Defaults.
func (c *Config) applyDefaults() {
	d := DefaultDefaults()
	fill := func(v *Duration, def Duration) {
		if *v == 0 {
			*v = def
		}
	}
	fill(&c.Defaults.Timeout, d.Timeout)
	fill(&c.Defaults.Cooldown, d.Cooldown)
	fill(&c.Defaults.HoldOff, d.HoldOff)
	fill(&c.Defaults.RepeatDelay, d.RepeatDelay)
	fill(&c.Defaults.KeepAlive, d.KeepAlive)
	if c.Defaults.Repeat == 0 {
		c.Defaults.Repeat = d.Repeat
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	for i := range c.Endpoints {
		e := &c.Endpoints[i]
		fill(&e.Timeout, c.Defaults.Timeout)
		fill(&e.Cooldown, c.Defaults.Cooldown)
		fill(&e.HoldOff, c.Defaults.HoldOff)
		fill(&e.RepeatDelay, c.Defaults.RepeatDelay)
		fill(&e.KeepAlive, c.Defaults.KeepAlive)
		fill(&e.IdleTimeout, c.Defaults.IdleTimeout)
		if e.Repeat == 0 {
			e.Repeat = c.Defaults.Repeat
		}
	}
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		add("log level %q", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		add("log format %q", c.Log.Format)
	}
	if c.CaptureMaxBytes < 0 {
		add("capture_max_bytes %d", c.CaptureMaxBytes)
	}

	kinds := make(map[string]Kind, len(c.Endpoints))
	for i, e := range c.Endpoints {
		if e.Name == "" {
			add("endpoint %d: missing name", i)
			continue
		}
		if _, dup := kinds[e.Name]; dup {
			add("endpoint %s: duplicate name", e.Name)
			continue
		}
		kinds[e.Name] = e.Kind
	}

	for _, e := range c.Endpoints {
		if e.Name == "" {
			continue
		}
		switch {
		case !e.Kind.known():
			add("endpoint %s: unknown kind %q", e.Name, e.Kind)
		case e.Kind.UDP():
			if e.Host == "" {
				add("endpoint %s: missing host", e.Name)
			}
			if e.Port <= 0 || e.Port > 65535 {
				add("endpoint %s: port %d out of range", e.Name, e.Port)
			}
			if e.Repeat < 0 {
				add("endpoint %s: negative repeat", e.Name)
			}
		default:
			if e.Gateway == "" {
				add("endpoint %s: missing gateway", e.Name)
			} else if k, ok := kinds[e.Gateway]; !ok || k != KindGateway {
				add("endpoint %s: gateway %q is not a gateway endpoint", e.Name, e.Gateway)
			}
			if _, err := e.AddressBytes(); err != nil {
				add("endpoint %s: %v", e.Name, err)
			}
		}
	}
	return errs
}

// AddressBytes decodes the relay address. Separators ':' and '-' are
// ignored.
func (e Endpoint) AddressBytes() ([]byte, error) {
	clean := strings.NewReplacer(":", "", "-", "").Replace(e.Address)
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("address %q: %w", e.Address, err)
	}
	if want := e.Kind.AddressLength(); len(b) != want {
		return nil, fmt.Errorf("address %q: got %d bytes, want %d", e.Address, len(b), want)
	}
	return b, nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return l, nil
}

// NewLogger builds the operational logger described by l.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
