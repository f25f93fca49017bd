package device_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homewire/homewire-go/pkg/codec"
	"github.com/homewire/homewire-go/pkg/device"
	"github.com/homewire/homewire-go/pkg/log"
	"github.com/homewire/homewire-go/pkg/transport"
	"github.com/homewire/homewire-go/pkg/transport/transporttest"
)

var relayCodec = codec.New(codec.EncodeUint8, codec.DecodeBool)

type result struct {
	value bool
	err   error
}

func newDevice(t *testing.T, opts ...device.Option) (*transporttest.Fake, *device.Device) {
	t.Helper()
	f := transporttest.New(0)
	require.NoError(t, f.Connect(context.Background()))
	d, err := device.New(f, nil, append([]device.Option{device.WithName("board")}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return f, d
}

func callAsync(svc *device.Service[uint8, bool], ch uint8) <-chan result {
	out := make(chan result, 1)
	go func() {
		v, err := svc.Call(context.Background(), ch)
		out <- result{v, err}
	}()
	return out
}

func nextWrite(t *testing.T, f *transporttest.Fake) []byte {
	t.Helper()
	w, ok := f.NextWrite(time.Second)
	require.True(t, ok, "expected a write")
	return w.Payload
}

func await(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("call did not settle")
		return result{}
	}
}

func TestCallRoundTrip(t *testing.T) {
	f, d := newDevice(t)
	svc, err := device.AddService(d, "get-relay", []byte{0x21}, relayCodec)
	require.NoError(t, err)

	f.OnWrite(func(w transporttest.Write) {
		f.Inject(nil, []byte{w.Payload[0], 0x01})
	})

	on, err := svc.Call(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, on)

	writes := f.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, []byte{0x01, 0x21, 0x03}, writes[0].Payload)
	assert.Zero(t, svc.Pending())
	assert.Zero(t, d.Pending())
}

func TestRequestIDsSkipZeroAndPending(t *testing.T) {
	mock := clock.NewMock()
	f, d := newDevice(t, device.WithClock(mock))
	svc, err := device.AddService(d, "get-relay", []byte{0x21}, relayCodec)
	require.NoError(t, err)

	first := callAsync(svc, 1)
	assert.Equal(t, byte(1), nextWrite(t, f)[0])
	second := callAsync(svc, 2)
	assert.Equal(t, byte(2), nextWrite(t, f)[0])

	// Answer out of order.
	f.Inject(nil, []byte{2, 0x00})
	f.Inject(nil, []byte{1, 0x01})

	assert.True(t, await(t, first).value)
	assert.False(t, await(t, second).value)
	assert.Equal(t, 2, len(f.Writes()))
}

func TestRequestIDsUniqueAcrossServices(t *testing.T) {
	mock := clock.NewMock()
	f, d := newDevice(t, device.WithClock(mock))
	a, err := device.AddService(d, "a", []byte{0x21}, relayCodec)
	require.NoError(t, err)
	b, err := device.AddService(d, "b", []byte{0x22}, relayCodec)
	require.NoError(t, err)

	ra := callAsync(a, 0)
	assert.Equal(t, byte(1), nextWrite(t, f)[0])
	rb := callAsync(b, 0)
	assert.Equal(t, byte(2), nextWrite(t, f)[0])

	f.Inject(nil, []byte{1, 0x01})
	f.Inject(nil, []byte{2, 0x00})
	assert.True(t, await(t, ra).value)
	assert.False(t, await(t, rb).value)
}

func TestRequestIDsWrapSkippingZero(t *testing.T) {
	f, d := newDevice(t)
	svc, err := device.AddService(d, "get-relay", []byte{0x21}, relayCodec)
	require.NoError(t, err)

	var (
		mu  sync.Mutex
		ids []byte
	)
	f.OnWrite(func(w transporttest.Write) {
		mu.Lock()
		ids = append(ids, w.Payload[0])
		mu.Unlock()
		f.Inject(nil, []byte{w.Payload[0], 0x01})
	})

	for i := 0; i < 256; i++ {
		_, err := svc.Call(context.Background(), 0)
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, byte(255), ids[254])
	assert.Equal(t, byte(1), ids[255])
	assert.NotContains(t, ids, byte(0))
}

func TestCallTimesOut(t *testing.T) {
	mock := clock.NewMock()
	f, d := newDevice(t, device.WithClock(mock))
	svc, err := device.AddService(d, "get-relay", []byte{0x21}, relayCodec, device.WithTimeout(time.Second))
	require.NoError(t, err)

	res := callAsync(svc, 1)
	nextWrite(t, f)
	mock.Add(time.Second)

	r := await(t, res)
	require.ErrorIs(t, r.err, device.ErrTimeout)

	var callErr *device.CallError
	require.ErrorAs(t, r.err, &callErr)
	assert.Equal(t, "get-relay", callErr.Service)
	assert.Equal(t, uint8(1), callErr.SeqID)
	assert.Nil(t, callErr.Cause)
	assert.Zero(t, d.Pending())

	// A late response is dropped.
	f.Inject(nil, []byte{1, 0x01})
}

func TestCallWhileDisconnectedTimesOutWithCause(t *testing.T) {
	mock := clock.NewMock()
	f, d := newDevice(t, device.WithClock(mock))
	svc, err := device.AddService(d, "get-relay", []byte{0x21}, relayCodec)
	require.NoError(t, err)
	require.NoError(t, f.Disconnect())

	res := callAsync(svc, 1)
	require.Eventually(t, func() bool { return svc.Pending() == 1 }, time.Second, time.Millisecond)
	// Let the failed write be recorded before the timeout fires.
	time.Sleep(20 * time.Millisecond)
	mock.Add(device.DefaultTimeout)

	r := await(t, res)
	assert.ErrorIs(t, r.err, device.ErrTimeout)
	assert.ErrorIs(t, r.err, transport.ErrNotConnected)
}

func TestOfflineRejectsPendingCalls(t *testing.T) {
	mock := clock.NewMock()
	f, d := newDevice(t, device.WithClock(mock))
	svc, err := device.AddService(d, "get-relay", []byte{0x21}, relayCodec)
	require.NoError(t, err)

	respond := true
	var mu sync.Mutex
	f.OnWrite(func(w transporttest.Write) {
		mu.Lock()
		ok := respond
		mu.Unlock()
		if ok {
			f.Inject(nil, []byte{w.Payload[0], 0x01})
		}
	})

	for i := 0; i < 6; i++ {
		_, err := svc.Call(context.Background(), 0)
		require.NoError(t, err)
	}

	mu.Lock()
	respond = false
	mu.Unlock()

	res := callAsync(svc, 0)
	require.Eventually(t, func() bool { return svc.Pending() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, f.Disconnect())
	assert.False(t, d.Online())

	r := await(t, res)
	require.ErrorIs(t, r.err, device.ErrOffline)
	var callErr *device.CallError
	require.ErrorAs(t, r.err, &callErr)
	assert.Equal(t, uint8(7), callErr.SeqID)

	mu.Lock()
	respond = true
	mu.Unlock()
	require.NoError(t, f.Connect(context.Background()))
	assert.True(t, d.Online())

	on, err := svc.Call(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, on)

	writes := f.Writes()
	assert.Equal(t, byte(8), writes[len(writes)-1].Payload[0])
}

func TestDecodeFailureRejects(t *testing.T) {
	f, d := newDevice(t)
	svc, err := device.AddService(d, "get-relay", []byte{0x21}, relayCodec)
	require.NoError(t, err)

	f.OnWrite(func(w transporttest.Write) {
		f.Inject(nil, []byte{w.Payload[0], 0x07})
	})

	_, err = svc.Call(context.Background(), 0)
	assert.ErrorIs(t, err, device.ErrDecode)
	assert.ErrorIs(t, err, codec.ErrInvalidValue)
}

func TestEncodeFailureRejects(t *testing.T) {
	_, d := newDevice(t)
	boom := errors.New("boom")
	bad := codec.New(func(uint8) ([]byte, error) { return nil, boom }, codec.DecodeBool)
	svc, err := device.AddService(d, "bad", []byte{0x30}, bad)
	require.NoError(t, err)

	_, err = svc.Call(context.Background(), 0)
	assert.ErrorIs(t, err, device.ErrEncode)
	assert.ErrorIs(t, err, boom)
}

func TestContextCancelFreesID(t *testing.T) {
	mock := clock.NewMock()
	f, d := newDevice(t, device.WithClock(mock))
	svc, err := device.AddService(d, "get-relay", []byte{0x21}, relayCodec)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.Call(ctx, 0)
		done <- err
	}()
	nextWrite(t, f)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("call did not return after cancel")
	}
	assert.Zero(t, d.Pending())
}

func TestCachedConcurrentCallsShareOneFrame(t *testing.T) {
	mock := clock.NewMock()
	f, d := newDevice(t, device.WithClock(mock))
	svc, err := device.AddService(d, "get-relay", []byte{0x21}, relayCodec, device.WithCache(time.Second))
	require.NoError(t, err)
	assert.True(t, svc.Cached())

	first := callAsync(svc, 1)
	payload := nextWrite(t, f)
	second := callAsync(svc, 1)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, f.WriteCount())

	f.Inject(nil, []byte{payload[0], 0x01})
	assert.True(t, await(t, first).value)
	assert.True(t, await(t, second).value)
	assert.Equal(t, 1, f.WriteCount())
}

func TestCachedResultExpiresAfterCooldown(t *testing.T) {
	mock := clock.NewMock()
	f, d := newDevice(t, device.WithClock(mock))
	svc, err := device.AddService(d, "get-relay", []byte{0x21}, relayCodec, device.WithCache(time.Second))
	require.NoError(t, err)

	f.OnWrite(func(w transporttest.Write) {
		f.Inject(nil, []byte{w.Payload[0], 0x01})
	})

	_, err = svc.Call(context.Background(), 1)
	require.NoError(t, err)
	_, err = svc.Call(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, f.WriteCount())

	// A different request is not served from the first one's result.
	_, err = svc.Call(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, f.WriteCount())

	mock.Add(time.Second)
	require.Eventually(t, func() bool {
		_, err := svc.Call(context.Background(), 1)
		return err == nil && f.WriteCount() == 3
	}, time.Second, 5*time.Millisecond)

	svc.Invalidate()
	_, err = svc.Call(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, f.WriteCount())
}

func TestRegistrationCollisions(t *testing.T) {
	_, d := newDevice(t)
	u8 := codec.Lift(codec.DecodeUint8)

	_, err := device.AddService(d, "set", []byte{0x20}, relayCodec)
	require.NoError(t, err)
	_, err = device.AddEvent(d, "input", []byte{0x22}, u8)
	require.NoError(t, err)

	_, err = device.AddService(d, "dup", []byte{0x20}, relayCodec)
	assert.ErrorIs(t, err, device.ErrDiscriminatorCollision)

	_, err = device.AddEvent(d, "longer", []byte{0x22, 0x01}, u8)
	assert.ErrorIs(t, err, device.ErrDiscriminatorCollision)

	_, err = device.AddEvent(d, "catch-all", nil, u8)
	assert.ErrorIs(t, err, device.ErrDiscriminatorCollision)

	_, err = device.AddService(d, "empty", nil, relayCodec)
	assert.ErrorIs(t, err, device.ErrEmptyDiscriminator)

	_, err = device.AddService(d, "nil-codec", []byte{0x40}, codec.Codec[uint8, bool](nil))
	assert.ErrorIs(t, err, device.ErrNilCodec)

	assert.Equal(t, []string{"set", "input"}, d.Routes())
}

func TestEventsPublishOnlyValidPayloads(t *testing.T) {
	rec := log.NewRecorder(0)
	f, d := newDevice(t, device.WithProtocolLogger(rec))
	ev, err := device.AddEvent(d, "input", []byte{0x22}, codec.Lift(codec.DecodeUint8))
	require.NoError(t, err)

	var got []uint8
	cancel := ev.Subscribe(func(v uint8) { got = append(got, v) })

	f.Inject(nil, []byte{0x00, 0x22, 0x01, 0x02})
	f.Inject(nil, []byte{0x00, 0x22, 0x05})
	f.Inject(nil, []byte{0x00, 0x99, 0x05})
	cancel()
	f.Inject(nil, []byte{0x00, 0x22, 0x06})

	assert.Equal(t, []uint8{5}, got)

	drops := rec.ByCategory(log.CategoryDrop)
	require.Len(t, drops, 2)
	assert.Equal(t, log.DropInvalidPayload, drops[0].Drop.Reason)
	assert.Equal(t, log.DropUnknownRoute, drops[1].Drop.Reason)
}

func TestEmptyEventDiscriminator(t *testing.T) {
	f := transporttest.New(3)
	require.NoError(t, f.Connect(context.Background()))
	d, err := device.New(f, []byte{0xAB, 0xCD, 0xE0})
	require.NoError(t, err)

	ev, err := device.AddEvent(d, "button", nil, codec.Lift(codec.DecodeUint8))
	require.NoError(t, err)

	var got []uint8
	ev.Subscribe(func(v uint8) { got = append(got, v) })
	f.Inject([]byte{0xAB, 0xCD, 0xE0}, []byte{0x00, 0x04})
	assert.Equal(t, []uint8{4}, got)
}

func TestLateDuplicateResponseDropped(t *testing.T) {
	rec := log.NewRecorder(0)
	f, d := newDevice(t, device.WithProtocolLogger(rec))
	svc, err := device.AddService(d, "get-relay", []byte{0x21}, relayCodec)
	require.NoError(t, err)

	f.OnWrite(func(w transporttest.Write) {
		f.Inject(nil, []byte{w.Payload[0], 0x01})
		f.Inject(nil, []byte{w.Payload[0], 0x01})
	})

	on, err := svc.Call(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, on)

	drops := rec.ByCategory(log.CategoryDrop)
	require.Len(t, drops, 1)
	assert.Equal(t, log.DropUnmatchedResponse, drops[0].Drop.Reason)
}

func TestNewValidatesIdentifier(t *testing.T) {
	f := transporttest.New(3)

	_, err := device.New(f, []byte{1})
	assert.ErrorIs(t, err, transport.ErrIdentifierLength)

	_, err = device.New(f, []byte{1, 2, 3})
	require.NoError(t, err)
	_, err = device.New(f, []byte{1, 2, 3})
	assert.ErrorIs(t, err, transport.ErrDuplicateIdentifier)

	_, err = device.New(nil, nil)
	assert.ErrorIs(t, err, device.ErrNilTransport)
}

func TestCloseRejectsPendingCalls(t *testing.T) {
	mock := clock.NewMock()
	f, d := newDevice(t, device.WithClock(mock))
	svc, err := device.AddService(d, "get-relay", []byte{0x21}, relayCodec)
	require.NoError(t, err)

	res := callAsync(svc, 0)
	nextWrite(t, f)
	require.NoError(t, d.Close())

	assert.ErrorIs(t, await(t, res).err, device.ErrClosed)

	_, err = svc.Call(context.Background(), 0)
	assert.ErrorIs(t, err, device.ErrClosed)
	assert.False(t, f.Inject(nil, []byte{0x01, 0x01}))
}

func TestCallErrorMessage(t *testing.T) {
	err := &device.CallError{Service: "temp", SeqID: 4, Err: device.ErrTimeout, Cause: transport.ErrNotConnected}
	assert.Equal(t, "call temp (id 4): request timed out: transport not connected", err.Error())

	err = &device.CallError{Service: "temp", Err: device.ErrNoSequence}
	assert.Equal(t, "call temp: no free request id", err.Error())
}
