package endpoints

import (
	"context"
	"encoding/binary"

	"github.com/homewire/homewire-go/pkg/codec"
	"github.com/homewire/homewire-go/pkg/device"
	"github.com/homewire/homewire-go/pkg/relay"
	"github.com/homewire/homewire-go/pkg/transport"
)

// Gateway discriminators.
var (
	DiscVersion    = []byte{0x01}
	DiscRadioCode  = []byte{0x10}
	DiscRadioFrame = []byte{0x11}
)

// Gateway is the radio bridge. It reports received radio traffic as events
// and feeds the RF relays.
type Gateway struct {
	*device.Device

	version *device.Service[codec.None, string]
	codes   *device.Event[relay.RadioCode]
	frames  *device.Event[[]byte]
}

// NewGateway registers a gateway on t.
func NewGateway(t transport.Transport, cfg Config, opts ...device.Option) (*Gateway, error) {
	cfg = cfg.withDefaults()
	d, err := device.New(t, nil, opts...)
	if err != nil {
		return nil, err
	}

	g := &Gateway{Device: d}
	if g.version, err = device.AddService(d, "version", DiscVersion,
		codec.New(codec.EncodeNone, codec.DecodeString), cfg.uncached()...); err != nil {
		return nil, err
	}
	if g.codes, err = device.AddEvent(d, "radio-code", DiscRadioCode, codec.DecoderFunc[relay.RadioCode](DecodeRadioCode)); err != nil {
		return nil, err
	}
	if g.frames, err = device.AddEvent(d, "radio-frame", DiscRadioFrame, codec.DecoderFunc[[]byte](DecodeRadioFrame)); err != nil {
		return nil, err
	}
	return g, nil
}

// Version returns the firmware version string.
func (g *Gateway) Version(ctx context.Context) (string, error) {
	return g.version.Call(ctx, codec.None{})
}

// RadioCodes is the stream of decoded 433 MHz codes.
func (g *Gateway) RadioCodes() *device.Event[relay.RadioCode] { return g.codes }

// RadioFrames is the stream of hardware-addressed radio frames.
func (g *Gateway) RadioFrames() *device.Event[[]byte] { return g.frames }

// NewRF433Relay returns a relay transport for 433 MHz sub-devices heard by
// this gateway.
func (g *Gateway) NewRF433Relay(cfg relay.RF433Config) *relay.Relay[relay.RadioCode] {
	return relay.NewRF433(cfg, g.codes, g.Device)
}

// NewHWAddrRelay returns a relay transport for hardware-addressed
// sub-devices heard by this gateway.
func (g *Gateway) NewHWAddrRelay(cfg relay.Config) *relay.Relay[[]byte] {
	return relay.NewHWAddr(cfg, g.frames, g.Device)
}

// DecodeRadioCode decodes [protocol:1][bits:1][code:4 BE].
func DecodeRadioCode(b []byte) codec.Result[relay.RadioCode] {
	if len(b) != 6 {
		return codec.Invalid[relay.RadioCode]()
	}
	return codec.Valid(relay.RadioCode{
		Protocol: b[0],
		Bits:     b[1],
		Code:     binary.BigEndian.Uint32(b[2:]),
	})
}

// DecodeRadioFrame accepts frames long enough to carry a hardware address
// and at least one byte.
func DecodeRadioFrame(b []byte) codec.Result[[]byte] {
	if len(b) <= relay.HWAddrLength {
		return codec.Invalid[[]byte]()
	}
	return codec.Valid(append([]byte(nil), b...))
}
