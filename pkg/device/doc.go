// Package device implements the per-endpoint request/response and
// notification layer on top of a transport.
//
// A Device is bound to one endpoint identifier on one Transport. Services
// and Events are registered on it with a discriminator, a short byte string
// the endpoint uses to tell them apart:
//
//	request  = [id:1 (0x01-0xFF)] + [service discriminator:1..n] + [payload]
//	response = [id:1] + [payload]
//	event    = [0x00] + [event discriminator:0..n] + [payload]
//
// Id 0 marks event frames and is never allocated to a request. Ids are
// allocated per Service but never reuse an id still pending anywhere on the
// Device, so a response is always routed to the call that sent it.
//
// # Registration
//
// Discriminators must not collide: two routes collide when one is a byte
// prefix of the other. An empty event discriminator is allowed, but then it
// must be the only route on the Device. Services require a non-empty
// discriminator.
//
// # Calls
//
// Service.Call encodes the input, allocates an id, records a pending entry
// with the service timeout and writes the frame. The call settles exactly
// once: with the decoded response, ErrDecode, ErrTimeout, ErrOffline when
// the transport drops, ErrClosed, or the caller's context error. A write
// that fails because the transport is down leaves the call pending; it times
// out with the write error attached as Cause.
//
// Services created WithCache share one wire exchange between concurrent
// identical requests and serve the settled result until the cooldown
// elapses.
//
// # Events
//
// Event payloads go through a codec.Decoder. Invalid results are counted
// and dropped; subscribers only ever see valid values.
package device
