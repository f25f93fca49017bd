package endpoints_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homewire/homewire-go/pkg/codec"
	"github.com/homewire/homewire-go/pkg/device"
	"github.com/homewire/homewire-go/pkg/endpoints"
	"github.com/homewire/homewire-go/pkg/relay"
	"github.com/homewire/homewire-go/pkg/transport/transporttest"
)

// responder answers requests by service discriminator.
type responder struct {
	f *transporttest.Fake

	mu       sync.Mutex
	handlers map[byte]func(args []byte) []byte
	requests [][]byte
}

func newResponder(t *testing.T) *responder {
	t.Helper()
	f := transporttest.New(0)
	require.NoError(t, f.Connect(context.Background()))

	r := &responder{f: f, handlers: make(map[byte]func([]byte) []byte)}
	f.OnWrite(func(w transporttest.Write) {
		r.mu.Lock()
		r.requests = append(r.requests, w.Payload)
		h := r.handlers[w.Payload[1]]
		r.mu.Unlock()
		if h != nil {
			f.Inject(nil, append([]byte{w.Payload[0]}, h(w.Payload[2:])...))
		}
	})
	return r
}

func (r *responder) handle(disc byte, h func(args []byte) []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[disc] = h
}

func (r *responder) count(disc byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.requests {
		if p[1] == disc {
			n++
		}
	}
	return n
}

func TestRelayBoard(t *testing.T) {
	r := newResponder(t)
	relays := map[uint8]bool{}
	r.handle(0x20, func(args []byte) []byte {
		relays[args[0]] = args[1] == 1
		return nil
	})
	r.handle(0x21, func(args []byte) []byte {
		if relays[args[0]] {
			return []byte{1}
		}
		return []byte{0}
	})

	board, err := endpoints.NewRelayBoard(r.f, endpoints.Config{}, device.WithName("board"))
	require.NoError(t, err)
	ctx := context.Background()

	on, err := board.Relay(ctx, 2)
	require.NoError(t, err)
	assert.False(t, on)

	// Served from cache.
	_, err = board.Relay(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, r.count(0x21))

	require.NoError(t, board.SetRelay(ctx, 2, true))
	on, err = board.Relay(ctx, 2)
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, 2, r.count(0x21))

	var inputs []endpoints.ChannelState
	board.Inputs().Subscribe(func(s endpoints.ChannelState) { inputs = append(inputs, s) })
	r.f.Inject(nil, []byte{0x00, 0x22, 0x03, 0x01})
	r.f.Inject(nil, []byte{0x00, 0x22, 0x03})
	assert.Equal(t, []endpoints.ChannelState{{Channel: 3, On: true}}, inputs)
}

func TestLEDDriver(t *testing.T) {
	r := newResponder(t)
	var current endpoints.Color
	var brightness uint8
	r.handle(0x30, func(args []byte) []byte {
		current = endpoints.Color{R: args[0], G: args[1], B: args[2]}
		return nil
	})
	r.handle(0x31, func([]byte) []byte { return []byte{current.R, current.G, current.B} })
	r.handle(0x32, func(args []byte) []byte {
		brightness = args[0]
		return nil
	})

	led, err := endpoints.NewLEDDriver(r.f, endpoints.Config{})
	require.NoError(t, err)
	ctx := context.Background()

	c, err := endpoints.ParseColor("#ff8000")
	require.NoError(t, err)
	require.NoError(t, led.SetColor(ctx, c))
	got, err := led.Color(ctx)
	require.NoError(t, err)
	assert.Equal(t, "#ff8000", got.String())

	require.NoError(t, led.SetBrightness(ctx, 128))
	assert.Equal(t, uint8(128), brightness)
}

func TestParseColor(t *testing.T) {
	c, err := endpoints.ParseColor("0a0b0c")
	require.NoError(t, err)
	assert.Equal(t, endpoints.Color{R: 10, G: 11, B: 12}, c)

	_, err = endpoints.ParseColor("#fff")
	assert.ErrorIs(t, err, codec.ErrInvalidValue)
	_, err = endpoints.ParseColor("zz0000")
	assert.ErrorIs(t, err, codec.ErrInvalidValue)
}

func TestSensorNode(t *testing.T) {
	r := newResponder(t)
	r.handle(0x40, func([]byte) []byte { return []byte{0x09, 0x2E} })
	r.handle(0x41, func([]byte) []byte { return []byte{0x01, 0xC5} })
	r.handle(0x43, func([]byte) []byte {
		b, err := codec.MarshalCBOR(endpoints.Readings{Temperature: -150, Humidity: 612, Uptime: 3600})
		require.NoError(t, err)
		return b
	})

	node, err := endpoints.NewSensorNode(r.f, endpoints.Config{})
	require.NoError(t, err)
	ctx := context.Background()

	temp, err := node.Temperature(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 23.5, temp, 0.001)

	hum, err := node.Humidity(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 45.3, hum, 0.001)

	readings, err := node.Readings(ctx)
	require.NoError(t, err)
	assert.InDelta(t, -1.5, readings.Celsius(), 0.001)
	assert.InDelta(t, 61.2, readings.Percent(), 0.001)
	assert.Equal(t, time.Hour, readings.UptimeDuration())

	var motion []bool
	node.Motion().Subscribe(func(v bool) { motion = append(motion, v) })
	r.f.Inject(nil, []byte{0x00, 0x42, 0x01})
	r.f.Inject(nil, []byte{0x00, 0x42, 0x05})
	assert.Equal(t, []bool{true}, motion)
}

func TestButtonDecoderHoldOff(t *testing.T) {
	mock := clock.NewMock()
	dec := endpoints.NewButtonDecoder(400*time.Millisecond, mock)

	press := func(b byte) bool { return dec.Decode([]byte{b}).OK() }

	assert.True(t, press(1))
	mock.Add(100 * time.Millisecond)
	assert.False(t, press(1), "repeat within hold-off")
	mock.Add(350 * time.Millisecond)
	assert.False(t, press(1), "held button keeps extending the window")
	assert.True(t, press(2), "different button reports immediately")
	mock.Add(50 * time.Millisecond)
	assert.True(t, press(1))
	mock.Add(500 * time.Millisecond)
	assert.True(t, press(1))

	assert.False(t, dec.Decode([]byte{0x10}).OK())
	assert.False(t, dec.Decode(nil).OK())
}

func TestGatewayFeedsRelays(t *testing.T) {
	r := newResponder(t)
	r.handle(0x01, func([]byte) []byte { return []byte("1.4.2") })

	mock := clock.NewMock()
	gw, err := endpoints.NewGateway(r.f, endpoints.Config{}, device.WithName("gateway"))
	require.NoError(t, err)

	version, err := gw.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.4.2", version)

	rf := gw.NewRF433Relay(relay.RF433Config{Config: relay.Config{Name: "rf433"}})
	sw, err := endpoints.NewRFSwitch(rf, []byte{0x0A, 0xBC, 0xDE}, endpoints.Config{Clock: mock}, device.WithName("remote"))
	require.NoError(t, err)
	require.NoError(t, rf.Connect(context.Background()))
	assert.True(t, sw.Online())

	hw := gw.NewHWAddrRelay(relay.Config{Name: "hw"})
	mac := []byte{0xA4, 0xC1, 0x38, 0x01, 0x02, 0x03}
	door, err := endpoints.NewDoorSensor(hw, mac, device.WithName("door"))
	require.NoError(t, err)
	require.NoError(t, hw.Connect(context.Background()))

	var buttons []uint8
	sw.Buttons().Subscribe(func(b uint8) { buttons = append(buttons, b) })
	var open []bool
	door.Contact().Subscribe(func(v bool) { open = append(open, v) })
	var battery []uint8
	door.Battery().Subscribe(func(v uint8) { battery = append(battery, v) })

	code := relay.RadioCode{Protocol: 1, Bits: 24, Code: 0xABCDE3}
	r.f.Inject(nil, append([]byte{0x00, 0x10}, code.Bytes()...))
	r.f.Inject(nil, append([]byte{0x00, 0x10}, code.Bytes()...))
	mock.Add(time.Second)
	r.f.Inject(nil, append([]byte{0x00, 0x10}, code.Bytes()...))
	assert.Equal(t, []uint8{3, 3}, buttons)

	frame := func(rest ...byte) []byte {
		return append(append([]byte{0x00, 0x11}, mac...), rest...)
	}
	r.f.Inject(nil, frame(0x01, 0x01))
	r.f.Inject(nil, frame(0x02, 87))
	r.f.Inject(nil, frame(0x02, 140))
	assert.Equal(t, []bool{true}, open)
	assert.Equal(t, []uint8{87}, battery)

	// Gateway offline takes the sub-devices offline.
	require.NoError(t, r.f.Disconnect())
	assert.False(t, sw.Online())
	assert.False(t, door.Online())
}
