package relay

import "github.com/homewire/homewire-go/pkg/log"

// HWAddrLength is the hardware address length.
const HWAddrLength = 6

// NewHWAddr creates a relay for sub-devices addressed by a 6-byte hardware
// address. Upstream frames are [hwaddr:6][discriminator + payload]; frames
// shorter than 7 bytes are dropped.
func NewHWAddr(cfg Config, src Source[[]byte], upstream Liveness) *Relay[[]byte] {
	match := func(b []byte) ([]byte, []byte, log.DropReason, string, bool) {
		if len(b) <= HWAddrLength {
			return nil, nil, log.DropInvalidPayload, detailf("%d bytes", len(b)), false
		}
		frame := make([]byte, 0, len(b)-HWAddrLength+1)
		frame = append(frame, 0x00)
		frame = append(frame, b[HWAddrLength:]...)
		return b[:HWAddrLength], frame, 0, "", true
	}
	identity := func(b []byte) []byte { return b }
	return newRelay(cfg, HWAddrLength, src, upstream, match, identity)
}
