package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Codec errors.
var (
	ErrPayloadLength = errors.New("unexpected payload length")
	ErrInvalidValue  = errors.New("invalid payload value")
)

// None is the request or response type of calls that carry no payload.
type None = struct{}

// Codec encodes a request value and decodes the matching response.
type Codec[In, Out any] interface {
	Encode(in In) ([]byte, error)
	Decode(data []byte) (Out, error)
}

// New builds a Codec from an encode and a decode function.
func New[In, Out any](enc func(In) ([]byte, error), dec func([]byte) (Out, error)) Codec[In, Out] {
	return funcCodec[In, Out]{enc: enc, dec: dec}
}

type funcCodec[In, Out any] struct {
	enc func(In) ([]byte, error)
	dec func([]byte) (Out, error)
}

func (c funcCodec[In, Out]) Encode(in In) ([]byte, error)     { return c.enc(in) }
func (c funcCodec[In, Out]) Decode(data []byte) (Out, error) { return c.dec(data) }

// EncodeNone encodes an empty request.
func EncodeNone(None) ([]byte, error) { return nil, nil }

// DecodeNone accepts any acknowledgement payload.
func DecodeNone([]byte) (None, error) { return None{}, nil }

// EncodeBytes passes the payload through unchanged.
func EncodeBytes(b []byte) ([]byte, error) { return b, nil }

// DecodeBytes returns a copy of the payload.
func DecodeBytes(b []byte) ([]byte, error) {
	return append([]byte(nil), b...), nil
}

// EncodeUint8 encodes a single byte.
func EncodeUint8(v uint8) ([]byte, error) { return []byte{v}, nil }

// DecodeUint8 decodes exactly one byte.
func DecodeUint8(b []byte) (uint8, error) {
	if len(b) != 1 {
		return 0, fmt.Errorf("%w: got %d bytes, want 1", ErrPayloadLength, len(b))
	}
	return b[0], nil
}

// EncodeBool encodes true as 0x01 and false as 0x00.
func EncodeBool(v bool) ([]byte, error) {
	if v {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

// DecodeBool decodes 0x00 or 0x01.
func DecodeBool(b []byte) (bool, error) {
	v, err := DecodeUint8(b)
	if err != nil {
		return false, err
	}
	if v > 1 {
		return false, fmt.Errorf("%w: bool byte 0x%02x", ErrInvalidValue, v)
	}
	return v == 1, nil
}

// DecodeUint16 decodes a big-endian uint16.
func DecodeUint16(b []byte) (uint16, error) {
	if len(b) != 2 {
		return 0, fmt.Errorf("%w: got %d bytes, want 2", ErrPayloadLength, len(b))
	}
	return binary.BigEndian.Uint16(b), nil
}

// DecodeInt16 decodes a big-endian two's complement int16.
func DecodeInt16(b []byte) (int16, error) {
	v, err := DecodeUint16(b)
	return int16(v), err
}

// DecodeString decodes a UTF-8 string.
func DecodeString(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: not UTF-8", ErrInvalidValue)
	}
	return string(b), nil
}
