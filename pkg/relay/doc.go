// Package relay provides receive-only transports fed by another device's
// event stream.
//
// A radio gateway reports what it hears as events. A relay subscribes to
// such a stream, extracts an endpoint address from each frame and delivers
// the rest to the sub-device registered under that address, framed as an
// event (leading 0x00). Relays own no socket: their connection state mirrors
// the online flag of the upstream device.
//
// Two variants exist:
//
//   - NewRF433 consumes decoded 433 MHz codes. Only codes of the configured
//     protocol with 24 bits are accepted; the upper 20 bits are the address
//     and the low 4 bits the button or channel.
//   - NewHWAddr consumes raw frames that start with a 6-byte hardware address.
//
// Sub-devices cannot be written to: WriteToNetwork returns ErrReadOnly while
// connected and ErrNotConnected otherwise.
package relay
