package endpoints

import (
	"context"

	"github.com/homewire/homewire-go/pkg/codec"
	"github.com/homewire/homewire-go/pkg/device"
	"github.com/homewire/homewire-go/pkg/transport"
)

// RelayBoard discriminators.
var (
	DiscSetRelay = []byte{0x20}
	DiscGetRelay = []byte{0x21}
	DiscInput    = []byte{0x22}
)

// ChannelState is the on/off state of one relay or input channel.
type ChannelState struct {
	Channel uint8
	On      bool
}

// RelayBoard switches relays and reports digital inputs.
type RelayBoard struct {
	*device.Device

	set   *device.Service[ChannelState, codec.None]
	get   *device.Service[uint8, bool]
	input *device.Event[ChannelState]
}

// NewRelayBoard registers a relay board on t.
func NewRelayBoard(t transport.Transport, cfg Config, opts ...device.Option) (*RelayBoard, error) {
	cfg = cfg.withDefaults()
	d, err := device.New(t, nil, opts...)
	if err != nil {
		return nil, err
	}

	b := &RelayBoard{Device: d}
	if b.set, err = device.AddService(d, "set-relay", DiscSetRelay,
		codec.New(EncodeChannelState, codec.DecodeNone), cfg.uncached()...); err != nil {
		return nil, err
	}
	if b.get, err = device.AddService(d, "get-relay", DiscGetRelay,
		codec.New(codec.EncodeUint8, codec.DecodeBool), cfg.cached()...); err != nil {
		return nil, err
	}
	if b.input, err = device.AddEvent(d, "input", DiscInput, codec.Lift(DecodeChannelState)); err != nil {
		return nil, err
	}
	return b, nil
}

// SetRelay switches one relay. Cached relay reads are discarded on success.
func (b *RelayBoard) SetRelay(ctx context.Context, channel uint8, on bool) error {
	if _, err := b.set.Call(ctx, ChannelState{Channel: channel, On: on}); err != nil {
		return err
	}
	b.get.Invalidate()
	return nil
}

// Relay reads the state of one relay.
func (b *RelayBoard) Relay(ctx context.Context, channel uint8) (bool, error) {
	return b.get.Call(ctx, channel)
}

// Inputs is the stream of input changes.
func (b *RelayBoard) Inputs() *device.Event[ChannelState] { return b.input }

// EncodeChannelState encodes [channel, on].
func EncodeChannelState(s ChannelState) ([]byte, error) {
	on, _ := codec.EncodeBool(s.On)
	return []byte{s.Channel, on[0]}, nil
}

// DecodeChannelState decodes [channel, on].
func DecodeChannelState(b []byte) (ChannelState, error) {
	if len(b) != 2 {
		return ChannelState{}, codec.ErrPayloadLength
	}
	on, err := codec.DecodeBool(b[1:])
	if err != nil {
		return ChannelState{}, err
	}
	return ChannelState{Channel: b[0], On: on}, nil
}
