package relay_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homewire/homewire-go/pkg/codec"
	"github.com/homewire/homewire-go/pkg/device"
	"github.com/homewire/homewire-go/pkg/log"
	"github.com/homewire/homewire-go/pkg/relay"
	"github.com/homewire/homewire-go/pkg/stream"
	"github.com/homewire/homewire-go/pkg/transport"
)

type upstream struct {
	flag stream.Flag
}

func (u *upstream) Online() bool { return u.flag.Get() }
func (u *upstream) OnOnlineChange(fn func(bool)) func() {
	return u.flag.Subscribe(fn)
}

func buttonDevice(t *testing.T, tr transport.Transport, id []byte) *[]uint8 {
	t.Helper()
	d, err := device.New(tr, id, device.WithName("switch"))
	require.NoError(t, err)
	ev, err := device.AddEvent(d, "button", nil, codec.Lift(codec.DecodeUint8))
	require.NoError(t, err)

	got := &[]uint8{}
	ev.Subscribe(func(v uint8) { *got = append(*got, v) })
	return got
}

func TestRF433Address(t *testing.T) {
	code := relay.RadioCode{Protocol: 1, Bits: 24, Code: 0xABCDE5}
	assert.Equal(t, []byte{0x0A, 0xBC, 0xDE}, code.Address())
	assert.Equal(t, uint8(5), code.Button())
	assert.Equal(t, []byte{1, 24, 0x00, 0xAB, 0xCD, 0xE5}, code.Bytes())
}

func TestRF433RoutesCodes(t *testing.T) {
	var codes stream.Stream[relay.RadioCode]
	up := &upstream{}
	up.flag.Set(true)

	rec := log.NewRecorder(0)
	r := relay.NewRF433(relay.RF433Config{Config: relay.Config{Name: "rf", ProtocolLogger: rec}}, &codes, up)
	assert.Equal(t, relay.RF433AddressLength, r.IdentifierLength())

	got := buttonDevice(t, r, []byte{0x0A, 0xBC, 0xDE})

	// Not connected yet: nothing is delivered.
	codes.Publish(relay.RadioCode{Protocol: 1, Bits: 24, Code: 0xABCDE1})
	assert.Empty(t, *got)

	require.NoError(t, r.Connect(context.Background()))
	assert.True(t, r.Connected())

	codes.Publish(relay.RadioCode{Protocol: 1, Bits: 24, Code: 0xABCDE2})
	codes.Publish(relay.RadioCode{Protocol: 2, Bits: 24, Code: 0xABCDE3})
	codes.Publish(relay.RadioCode{Protocol: 1, Bits: 32, Code: 0xABCDE4})
	codes.Publish(relay.RadioCode{Protocol: 1, Bits: 24, Code: 0x123455})
	codes.Publish(relay.RadioCode{Protocol: 1, Bits: 24, Code: 0xABCDE6})

	assert.Equal(t, []uint8{2, 6}, *got)

	var reasons []log.DropReason
	for _, e := range rec.ByCategory(log.CategoryDrop) {
		reasons = append(reasons, e.Drop.Reason)
	}
	assert.Equal(t, []log.DropReason{log.DropFiltered, log.DropFiltered, log.DropUnknownAddress}, reasons)
}

func TestRF433CustomProtocol(t *testing.T) {
	var codes stream.Stream[relay.RadioCode]
	up := &upstream{}
	up.flag.Set(true)

	r := relay.NewRF433(relay.RF433Config{Protocol: 2}, &codes, up)
	got := buttonDevice(t, r, []byte{0x00, 0x00, 0x01})
	require.NoError(t, r.Connect(context.Background()))

	codes.Publish(relay.RadioCode{Protocol: 1, Bits: 24, Code: 0x000017})
	codes.Publish(relay.RadioCode{Protocol: 2, Bits: 24, Code: 0x000018})
	assert.Equal(t, []uint8{8}, *got)
}

func TestRelayMirrorsUpstreamLiveness(t *testing.T) {
	var codes stream.Stream[relay.RadioCode]
	up := &upstream{}

	r := relay.NewRF433(relay.RF433Config{}, &codes, up)
	d, err := device.New(r, []byte{1, 2, 3})
	require.NoError(t, err)

	require.NoError(t, r.Connect(context.Background()))
	assert.False(t, d.Online())

	up.flag.Set(true)
	assert.True(t, d.Online())
	assert.ErrorIs(t, r.WriteToNetwork([]byte{1, 2, 3}, []byte{1}), transport.ErrReadOnly)

	up.flag.Set(false)
	assert.False(t, d.Online())
	assert.ErrorIs(t, r.WriteToNetwork([]byte{1, 2, 3}, []byte{1}), transport.ErrNotConnected)
	assert.ErrorIs(t, r.WriteToNetwork([]byte{1}, []byte{1}), transport.ErrIdentifierLength)

	up.flag.Set(true)
	require.NoError(t, r.Disconnect())
	assert.False(t, d.Online())

	// Liveness changes are ignored while disconnected.
	up.flag.Set(false)
	up.flag.Set(true)
	assert.False(t, d.Online())

	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Connect(context.Background()), transport.ErrClosed)
}

func TestHWAddrRoutesFrames(t *testing.T) {
	var frames stream.Stream[[]byte]
	up := &upstream{}
	up.flag.Set(true)

	rec := log.NewRecorder(0)
	r := relay.NewHWAddr(relay.Config{Name: "ble", ProtocolLogger: rec}, &frames, up)
	assert.Equal(t, relay.HWAddrLength, r.IdentifierLength())

	mac := []byte{0xA4, 0xC1, 0x38, 0x00, 0x00, 0x01}
	d, err := device.New(r, mac, device.WithName("door"))
	require.NoError(t, err)
	contact, err := device.AddEvent(d, "contact", []byte{0x01}, codec.Lift(codec.DecodeBool))
	require.NoError(t, err)

	var open []bool
	contact.Subscribe(func(v bool) { open = append(open, v) })
	require.NoError(t, r.Connect(context.Background()))

	frames.Publish(append(append([]byte{}, mac...), 0x01, 0x01))
	frames.Publish(mac)
	frames.Publish(append(append([]byte{}, mac...), 0x01, 0x00))

	assert.Equal(t, []bool{true, false}, open)

	drops := rec.ByCategory(log.CategoryDrop)
	require.Len(t, drops, 1)
	assert.Equal(t, log.DropInvalidPayload, drops[0].Drop.Reason)
	assert.Equal(t, 6, drops[0].Drop.Size)
}
