package log

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopLoggerIsZeroValue(t *testing.T) {
	var logger NoopLogger
	logger.Log(Event{Frame: &FrameEvent{Size: 1}})
	assert.Equal(t, NoopLogger{}, OrNoop(nil))
}

func TestNewFrameEventTruncates(t *testing.T) {
	small := NewFrameEvent([]byte{1, 2, 3})
	assert.Equal(t, 3, small.Size)
	assert.False(t, small.Truncated)

	big := NewFrameEvent(make([]byte, MaxCapturedBytes+10))
	assert.Equal(t, MaxCapturedBytes+10, big.Size)
	assert.Len(t, big.Data, MaxCapturedBytes)
	assert.True(t, big.Truncated)
}

func TestEncodeDecodeEvent(t *testing.T) {
	rtt := 12 * time.Millisecond
	in := Event{
		Timestamp:   time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC),
		TransportID: "t-1",
		Layer:       LayerService,
		Category:    CategoryCall,
		Endpoint:    "kitchen",
		Call:        &CallEvent{Service: "get-relay", SeqID: 7, Outcome: CallResolved, RoundTrip: &rtt},
	}
	data, err := EncodeEvent(in)
	require.NoError(t, err)

	out, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.True(t, in.Timestamp.Equal(out.Timestamp), "nanosecond timestamps must survive")
	assert.Equal(t, in.Call, out.Call)
	assert.Equal(t, "kitchen", out.Endpoint)
}

func TestFileLoggerAndFilteredReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.hwcap")
	fl, err := NewFileLogger(path)
	require.NoError(t, err)

	now := time.Now()
	fl.Log(Event{Timestamp: now, TransportID: "a", Layer: LayerTransport, Category: CategoryFrame, Frame: NewFrameEvent([]byte{0, 1})})
	fl.Log(Event{Timestamp: now, TransportID: "a", Layer: LayerDevice, Category: CategoryDrop, Drop: &DropEvent{Reason: DropUnknownRoute, Size: 2}})
	fl.Log(Event{Timestamp: now, TransportID: "b", Layer: LayerTransport, Category: CategoryState, StateChange: &StateChangeEvent{NewState: "CONNECTED"}})
	require.NoError(t, fl.Close())
	require.NoError(t, fl.Close())
	fl.Log(Event{TransportID: "after-close"})

	all := readAll(t, Filter{}, path)
	require.Len(t, all, 3)
	assert.Equal(t, DropUnknownRoute, all[1].Drop.Reason)

	layer := LayerTransport
	transportOnly := readAll(t, Filter{Layer: &layer}, path)
	assert.Len(t, transportOnly, 2)

	onlyB := readAll(t, Filter{TransportID: "b"}, path)
	require.Len(t, onlyB, 1)
	assert.Equal(t, "CONNECTED", onlyB[0].StateChange.NewState)
}

func readAll(t *testing.T, f Filter, path string) []Event {
	t.Helper()
	r, err := NewFilteredReader(path, f)
	require.NoError(t, err)
	defer r.Close()

	var out []Event
	for {
		e, err := r.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, e)
	}
}

func TestSlogAdapterWritesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	a := NewSlogAdapter(logger)

	a.Log(Event{TransportID: "udp-1", Category: CategoryFrame, Direction: DirectionOut, Frame: NewFrameEvent([]byte{0x01, 0x20})})
	out := buf.String()
	assert.Contains(t, out, "transport=udp-1")
	assert.Contains(t, out, "direction=OUT")
	assert.Contains(t, out, "data=0120")
}

func TestMultiLoggerAndRecorder(t *testing.T) {
	r1 := NewRecorder(0)
	r2 := NewRecorder(2)
	m := NewMultiLogger(r1, nil, r2)

	for i := 0; i < 3; i++ {
		m.Log(Event{Category: Category(i % 2)})
	}
	assert.Len(t, r1.Events(), 3)
	assert.Len(t, r2.Events(), 2)
	assert.Len(t, r1.ByCategory(CategoryCall), 1)
}

func TestFileLoggerRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.hwcap")
	fl, err := NewRotatingFileLogger(path, 64)
	require.NoError(t, err)
	assert.Equal(t, path, fl.Path())

	for i := 0; i < 10; i++ {
		fl.Log(Event{TransportID: "rot", Layer: LayerTransport, Category: CategoryFrame, Frame: NewFrameEvent(make([]byte, 16))})
	}
	require.NoError(t, fl.Close())

	current := readAll(t, Filter{}, path)
	rotated := readAll(t, Filter{}, path+".1")
	assert.NotEmpty(t, current)
	assert.NotEmpty(t, rotated)
	assert.Less(t, len(current)+len(rotated), 10, "older generations are discarded")
}

func TestReaderAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.hwcap")
	fl, err := NewFileLogger(path)
	require.NoError(t, err)
	for _, id := range []string{"a", "b", "a"} {
		fl.Log(Event{TransportID: id, Category: CategoryFrame, Frame: NewFrameEvent([]byte{1})})
	}
	require.NoError(t, fl.Close())

	r, err := NewFilteredReader(path, Filter{TransportID: "a"})
	require.NoError(t, err)
	defer r.Close()

	var n int
	for ev, err := range r.All() {
		require.NoError(t, err)
		assert.Equal(t, "a", ev.TransportID)
		n++
	}
	assert.Equal(t, 2, n)
}
