package relay

import (
	"encoding/binary"

	"github.com/homewire/homewire-go/pkg/log"
)

// RF433 constants.
const (
	// ProtocolEV1527 is the default accepted protocol tag.
	ProtocolEV1527 = 1

	// RF433Bits is the only accepted code length.
	RF433Bits = 24

	// RF433AddressLength is the sub-device identifier length.
	RF433AddressLength = 3
)

// RadioCode is one decoded 433 MHz transmission.
type RadioCode struct {
	Protocol uint8
	Bits     uint8
	Code     uint32
}

// Address returns the 20-bit sender address, big-endian in 3 bytes.
func (c RadioCode) Address() []byte {
	return RF433Address(c.Code)
}

// Button returns the low 4 bits of the code.
func (c RadioCode) Button() uint8 {
	return uint8(c.Code & 0x0F)
}

// Bytes returns the gateway wire form: [protocol][bits][code:4 BE].
func (c RadioCode) Bytes() []byte {
	b := make([]byte, 6)
	b[0] = c.Protocol
	b[1] = c.Bits
	binary.BigEndian.PutUint32(b[2:], c.Code)
	return b
}

// RF433Address returns the sub-device identifier for code.
func RF433Address(code uint32) []byte {
	a := code >> 4
	return []byte{byte(a >> 16), byte(a >> 8), byte(a)}
}

// RF433Config configures an RF433 relay.
type RF433Config struct {
	Config

	// Protocol is the accepted protocol tag. Zero means ProtocolEV1527.
	Protocol uint8
}

// NewRF433 creates a relay for 433 MHz sub-devices. The relay starts
// disconnected; call Connect to begin listening.
func NewRF433(cfg RF433Config, src Source[RadioCode], upstream Liveness) *Relay[RadioCode] {
	protocol := cfg.Protocol
	if protocol == 0 {
		protocol = ProtocolEV1527
	}

	match := func(c RadioCode) ([]byte, []byte, log.DropReason, string, bool) {
		if c.Protocol != protocol {
			return nil, nil, log.DropFiltered, detailf("protocol %d", c.Protocol), false
		}
		if c.Bits != RF433Bits {
			return nil, nil, log.DropFiltered, detailf("%d bits", c.Bits), false
		}
		return c.Address(), []byte{0x00, c.Button()}, 0, "", true
	}
	return newRelay(cfg.Config, RF433AddressLength, src, upstream, match, RadioCode.Bytes)
}
