// Package codec defines how Service and Event payloads move between Go
// values and wire bytes.
//
// A Service pairs an encoder for its request with a decoder for its
// response (Codec). Decoding a response is allowed to fail with an error,
// because the caller is waiting and should learn why.
//
// An Event only decodes, and never fails loudly: malformed notifications are
// expected protocol noise on radio and datagram channels. Event decoders
// return a tagged Result that is either a valid value or an explicit invalid
// marker:
//
//	func decodeContact(b []byte) codec.Result[bool] {
//	    if len(b) != 1 || b[0] > 1 {
//	        return codec.Invalid[bool]()
//	    }
//	    return codec.Valid(b[0] == 1)
//	}
//
// Fixed-width integers are big-endian on the wire. Structured payloads use
// deterministic CBOR (see CBOR).
package codec
