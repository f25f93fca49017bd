package endpoints

import (
	"context"
	"fmt"

	"github.com/homewire/homewire-go/pkg/codec"
	"github.com/homewire/homewire-go/pkg/device"
	"github.com/homewire/homewire-go/pkg/transport"
)

// LEDDriver discriminators.
var (
	DiscSetColor      = []byte{0x30}
	DiscGetColor      = []byte{0x31}
	DiscSetBrightness = []byte{0x32}
)

// Color is an RGB value.
type Color struct {
	R, G, B uint8
}

// String returns the color as #rrggbb.
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseColor parses #rrggbb or rrggbb.
func ParseColor(s string) (Color, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	var c Color
	if len(s) != 6 {
		return c, fmt.Errorf("%w: color %q", codec.ErrInvalidValue, s)
	}
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return c, fmt.Errorf("%w: color %q", codec.ErrInvalidValue, s)
	}
	return c, nil
}

// LEDDriver drives an RGB LED strip.
type LEDDriver struct {
	*device.Device

	setColor      *device.Service[Color, codec.None]
	getColor      *device.Service[codec.None, Color]
	setBrightness *device.Service[uint8, codec.None]
}

// NewLEDDriver registers an LED driver on t.
func NewLEDDriver(t transport.Transport, cfg Config, opts ...device.Option) (*LEDDriver, error) {
	cfg = cfg.withDefaults()
	d, err := device.New(t, nil, opts...)
	if err != nil {
		return nil, err
	}

	l := &LEDDriver{Device: d}
	if l.setColor, err = device.AddService(d, "set-color", DiscSetColor,
		codec.New(EncodeColor, codec.DecodeNone), cfg.uncached()...); err != nil {
		return nil, err
	}
	if l.getColor, err = device.AddService(d, "get-color", DiscGetColor,
		codec.New(codec.EncodeNone, DecodeColor), cfg.cached()...); err != nil {
		return nil, err
	}
	if l.setBrightness, err = device.AddService(d, "set-brightness", DiscSetBrightness,
		codec.New(codec.EncodeUint8, codec.DecodeNone), cfg.uncached()...); err != nil {
		return nil, err
	}
	return l, nil
}

// SetColor sets the strip color.
func (l *LEDDriver) SetColor(ctx context.Context, c Color) error {
	if _, err := l.setColor.Call(ctx, c); err != nil {
		return err
	}
	l.getColor.Invalidate()
	return nil
}

// Color reads the current color.
func (l *LEDDriver) Color(ctx context.Context) (Color, error) {
	return l.getColor.Call(ctx, codec.None{})
}

// SetBrightness sets the brightness level (0-255).
func (l *LEDDriver) SetBrightness(ctx context.Context, level uint8) error {
	_, err := l.setBrightness.Call(ctx, level)
	return err
}

// EncodeColor encodes [r, g, b].
func EncodeColor(c Color) ([]byte, error) {
	return []byte{c.R, c.G, c.B}, nil
}

// DecodeColor decodes [r, g, b].
func DecodeColor(b []byte) (Color, error) {
	if len(b) != 3 {
		return Color{}, fmt.Errorf("%w: got %d bytes, want 3", codec.ErrPayloadLength, len(b))
	}
	return Color{R: b[0], G: b[1], B: b[2]}, nil
}
