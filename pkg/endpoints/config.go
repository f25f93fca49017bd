package endpoints

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/homewire/homewire-go/pkg/device"
)

// DefaultCooldown is how long cached reads are served without traffic.
const DefaultCooldown = time.Second

// Config tunes an endpoint.
type Config struct {
	// Timeout is the service round-trip budget. Zero uses device.DefaultTimeout.
	Timeout time.Duration

	// Cooldown applies to cached reads. Zero uses DefaultCooldown.
	Cooldown time.Duration

	// HoldOff applies to RF switch buttons. Zero uses DefaultHoldOff.
	HoldOff time.Duration

	// Clock drives the button hold-off. It should match the device clock.
	Clock clock.Clock
}

// DefaultConfig returns the default endpoint configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:  device.DefaultTimeout,
		Cooldown: DefaultCooldown,
		HoldOff:  DefaultHoldOff,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.Cooldown <= 0 {
		c.Cooldown = d.Cooldown
	}
	if c.HoldOff <= 0 {
		c.HoldOff = d.HoldOff
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	return c
}

func (c Config) cached() []device.ServiceOption {
	return []device.ServiceOption{device.WithTimeout(c.Timeout), device.WithCache(c.Cooldown)}
}

func (c Config) uncached() []device.ServiceOption {
	return []device.ServiceOption{device.WithTimeout(c.Timeout)}
}
