package endpoints

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/homewire/homewire-go/pkg/codec"
)

// DefaultHoldOff suppresses the repeated transmissions a remote sends while
// a button is held.
const DefaultHoldOff = 400 * time.Millisecond

// ButtonDecoder decodes single-nibble button frames. A frame for the same
// button within the hold-off window of the previous one is invalid; the
// window restarts with every such frame, so a held button reports once.
type ButtonDecoder struct {
	holdOff time.Duration
	clock   clock.Clock

	mu     sync.Mutex
	seen   bool
	last   uint8
	lastAt time.Time
}

// NewButtonDecoder creates a decoder. Zero holdOff uses DefaultHoldOff and
// a nil clock uses the wall clock.
func NewButtonDecoder(holdOff time.Duration, clk clock.Clock) *ButtonDecoder {
	if holdOff <= 0 {
		holdOff = DefaultHoldOff
	}
	if clk == nil {
		clk = clock.New()
	}
	return &ButtonDecoder{holdOff: holdOff, clock: clk}
}

// Decode implements codec.Decoder.
func (d *ButtonDecoder) Decode(b []byte) codec.Result[uint8] {
	if len(b) != 1 || b[0] > 0x0F {
		return codec.Invalid[uint8]()
	}
	button := b[0]
	now := d.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	repeat := d.seen && d.last == button && now.Sub(d.lastAt) < d.holdOff
	d.seen, d.last, d.lastAt = true, button, now
	if repeat {
		return codec.Invalid[uint8]()
	}
	return codec.Valid(button)
}

var _ codec.Decoder[uint8] = (*ButtonDecoder)(nil)
