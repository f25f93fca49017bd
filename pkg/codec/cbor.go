package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Device payloads are small and come off an unreliable link, so the decoder
// bounds nesting and container sizes well below the library defaults.
const (
	maxPayloadNesting  = 8
	maxPayloadElements = 256
)

var (
	// Canonical ordering makes equal requests encode to equal bytes, which
	// the request cache relies on for its keys.
	payloadEnc = func() cbor.EncMode {
		em, err := cbor.EncOptions{
			Sort:        cbor.SortCanonical,
			IndefLength: cbor.IndefLengthForbidden,
			Time:        cbor.TimeUnix,
		}.EncMode()
		if err != nil {
			panic(fmt.Sprintf("codec: cbor encode mode: %v", err))
		}
		return em
	}()

	// Firmware may add fields, so unknown keys and duplicates are ignored.
	payloadDec = func() cbor.DecMode {
		dm, err := cbor.DecOptions{
			DupMapKey:        cbor.DupMapKeyQuiet,
			MaxNestedLevels:  maxPayloadNesting,
			MaxArrayElements: maxPayloadElements,
			MaxMapPairs:      maxPayloadElements,
		}.DecMode()
		if err != nil {
			panic(fmt.Sprintf("codec: cbor decode mode: %v", err))
		}
		return dm
	}()
)

// MarshalCBOR encodes v as canonical CBOR.
func MarshalCBOR(v any) ([]byte, error) { return payloadEnc.Marshal(v) }

// UnmarshalCBOR decodes data into v.
func UnmarshalCBOR(data []byte, v any) error { return payloadDec.Unmarshal(data, v) }

// CBOR returns a Codec that carries both directions as CBOR.
func CBOR[In, Out any]() Codec[In, Out] {
	return New(func(in In) ([]byte, error) { return MarshalCBOR(in) }, DecodeCBOR[Out])
}

// DecodeCBOR decodes data into a fresh T. Failures wrap ErrInvalidValue.
func DecodeCBOR[T any](data []byte) (T, error) {
	var v T
	if err := payloadDec.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return v, nil
}
