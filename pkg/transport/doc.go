// Package transport owns connection lifecycle and raw byte I/O between the
// hub and its endpoints.
//
// A Transport carries frames for one or more Devices. Each Device registers
// with AddDevice and gets back a Binding used for both directions: outbound
// writes go through Binding.Write, inbound bytes are routed by endpoint
// identifier to the Device's Receive method.
//
// # Layering
//
//	┌──────────────────────────────────────────────┐
//	│   Service / Event (request ids, discrim.)    │
//	├──────────────────────────────────────────────┤
//	│   Device (demultiplexing, online flag)       │
//	├──────────────────────────────────────────────┤
//	│   Transport (identifier routing, state)      │
//	├──────────────────┬───────────────────────────┤
//	│   UDP datagrams  │  RF relay (upstream Event) │
//	└──────────────────┴───────────────────────────┘
//
// # Identifiers
//
// Every transport has a fixed identifier length. Single-endpoint transports
// such as UDP use length zero; RF relays use the radio address width.
// AddDevice rejects identifiers of the wrong length and duplicates.
//
// # UDP
//
// The UDP transport keeps a "should be connected" intent separate from the
// socket. A keepalive loop compares the two on every tick and repairs the
// difference, so a socket lost to a resolve or read error comes back without
// any caller action. Outbound frames may be repeated to survive loss, and an
// optional one-byte rolling sequence number filters stale and duplicate
// inbound datagrams.
//
// # Errors
//
// Writing while disconnected returns ErrNotConnected. Resolve and socket
// errors are logged and move the transport to StateDisconnected; they never
// surface to callers other than through that state.
package transport
