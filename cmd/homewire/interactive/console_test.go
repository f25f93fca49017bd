package interactive

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homewire/homewire-go/pkg/config"
	"github.com/homewire/homewire-go/pkg/discovery"
	"github.com/homewire/homewire-go/pkg/hub"
	"github.com/homewire/homewire-go/pkg/transport"
	"github.com/homewire/homewire-go/pkg/transport/transporttest"
)

const consoleYAML = `
endpoints:
  - name: board
    kind: relay_board
    host: 10.0.0.2
    port: 4210
  - name: strip
    kind: led_driver
    host: 10.0.0.3
    port: 4210
`

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

type fakeBrowser struct {
	entries []discovery.Entry
}

func (f *fakeBrowser) Browse(ctx context.Context) (<-chan discovery.Entry, error) {
	ch := make(chan discovery.Entry, len(f.entries))
	for _, e := range f.entries {
		ch <- e
	}
	close(ch)
	return ch, nil
}

type fixture struct {
	console *Console
	out     *syncBuffer
	fakes   map[string]*transporttest.Fake
}

func newFixture(t *testing.T, browser discovery.Browser) *fixture {
	t.Helper()
	cfg, err := config.Parse([]byte(consoleYAML), config.FormatYAML)
	require.NoError(t, err)

	fakes := make(map[string]*transporttest.Fake)
	h, err := hub.New(cfg,
		hub.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		hub.WithClock(clock.NewMock()),
		hub.WithTransportFactory(func(ep config.Endpoint, c transport.UDPConfig) (transport.Transport, error) {
			f := transporttest.NewWithConfig(transport.BaseConfig{Name: c.Name})
			fakes[ep.Name] = f
			return f, nil
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	require.NoError(t, h.Start(t.Context()))

	out := &syncBuffer{}
	return &fixture{
		console: newConsole(h, Config{Browser: browser}, out),
		out:     out,
		fakes:   fakes,
	}
}

// answer replies to requests with the given discriminator.
func (fx *fixture) answer(name string, disc byte, reply func(args []byte) []byte) {
	f := fx.fakes[name]
	f.OnWrite(func(w transporttest.Write) {
		if w.Payload[1] == disc {
			f.Inject(nil, append([]byte{w.Payload[0]}, reply(w.Payload[2:])...))
		}
	})
}

func (fx *fixture) run(t *testing.T, line string) string {
	t.Helper()
	fx.out.Reset()
	assert.False(t, fx.console.Execute(t.Context(), line))
	return fx.out.String()
}

func TestListAndStatus(t *testing.T) {
	fx := newFixture(t, nil)

	out := fx.run(t, "list")
	assert.Contains(t, out, "Endpoints (2)")
	assert.Contains(t, out, "board")
	assert.Contains(t, out, "led_driver")

	out = fx.run(t, "status")
	assert.Contains(t, out, "CONNECTED")
	assert.Contains(t, out, "yes")
}

func TestRelayCommands(t *testing.T) {
	fx := newFixture(t, nil)
	fx.answer("board", 0x20, func([]byte) []byte { return nil })

	assert.Equal(t, "OK\n", fx.run(t, "relay board 2 on"))

	writes := fx.fakes["board"].Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, []byte{0x20, 0x02, 0x01}, writes[0].Payload[1:])

	fx.answer("board", 0x21, func(args []byte) []byte { return []byte{0x01} })
	assert.Equal(t, "board/3 = on\n", fx.run(t, "relay-get board 3"))

	assert.Contains(t, fx.run(t, "relay board 2 maybe"), "Invalid state")
	assert.Contains(t, fx.run(t, "relay board x on"), "Invalid channel")
	assert.Contains(t, fx.run(t, "relay strip 1 on"), "different kind")
	assert.Contains(t, fx.run(t, "relay-get nowhere 1"), "unknown endpoint")
	assert.Contains(t, fx.run(t, "relay board"), "Usage")
}

func TestColorCommands(t *testing.T) {
	fx := newFixture(t, nil)
	fx.answer("strip", 0x31, func([]byte) []byte { return []byte{0xff, 0x80, 0x00} })

	assert.Equal(t, "strip = #ff8000\n", fx.run(t, "color strip"))
	assert.Contains(t, fx.run(t, "color strip purple"), "Invalid color")
}

func TestWatchPrintsEvents(t *testing.T) {
	fx := newFixture(t, nil)

	assert.Contains(t, fx.run(t, "watch"), "Watching")
	assert.Contains(t, fx.run(t, "watch on"), "Already watching")

	fx.out.Reset()
	fx.fakes["board"].Inject(nil, []byte{0x00, 0x22, 0x01, 0x01})
	assert.Contains(t, fx.out.String(), "[EVENT] board input: channel 1 on")

	fx.out.Reset()
	require.NoError(t, fx.fakes["strip"].Disconnect())
	assert.Contains(t, fx.out.String(), "[EVENT] strip online: off")

	assert.Contains(t, fx.run(t, "watch off"), "Watch stopped")
	fx.out.Reset()
	fx.fakes["board"].Inject(nil, []byte{0x00, 0x22, 0x01, 0x00})
	assert.Empty(t, fx.out.String())
	assert.Contains(t, fx.run(t, "watch off"), "Not watching")
}

func TestDiscover(t *testing.T) {
	fx := newFixture(t, &fakeBrowser{entries: []discovery.Entry{
		{Instance: "sensor-1", Port: 4210, Addresses: []net.IP{net.ParseIP("192.168.1.20")},
			Text: map[string]string{"kind": "sensor_node", "fw": "1.4.0"}},
		{Instance: "board-1", Port: 4210, Addresses: []net.IP{net.ParseIP("192.168.1.21")},
			Text: map[string]string{"kind": "relay_board"}},
	}})

	out := fx.run(t, "discover 1")
	assert.Contains(t, out, "Discovered (2)")
	assert.Contains(t, out, "192.168.1.20:4210 fw=1.4.0")
	assert.Less(t, bytes.Index([]byte(out), []byte("board-1")), bytes.Index([]byte(out), []byte("sensor-1")))

	assert.Contains(t, fx.run(t, "discover soon"), "Usage")

	noBrowser := newFixture(t, nil)
	assert.Contains(t, noBrowser.run(t, "discover"), "not available")
}

func TestQuitAndUnknown(t *testing.T) {
	fx := newFixture(t, nil)
	assert.True(t, fx.console.Execute(t.Context(), "quit"))
	assert.Contains(t, fx.run(t, "frobnicate"), "Unknown command: frobnicate")
	assert.Empty(t, fx.run(t, "   "))
}
