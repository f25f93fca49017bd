package codec

// Result is the outcome of decoding an inbound notification: either a valid
// value or an explicit invalid marker.
type Result[T any] struct {
	value T
	ok    bool
}

// Valid wraps a well-formed value.
func Valid[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Invalid is the marker for malformed input.
func Invalid[T any]() Result[T] {
	return Result[T]{}
}

// OK reports whether the result holds a value.
func (r Result[T]) OK() bool { return r.ok }

// Value returns the decoded value, or the zero value when invalid.
func (r Result[T]) Value() T { return r.value }

// Get returns the value and whether it is valid.
func (r Result[T]) Get() (T, bool) { return r.value, r.ok }

// Decoder turns an event payload into a Result. Implementations may keep
// state, for example to suppress repeated reports.
type Decoder[T any] interface {
	Decode(data []byte) Result[T]
}

// DecoderFunc adapts a plain function to Decoder.
type DecoderFunc[T any] func(data []byte) Result[T]

// Decode calls f.
func (f DecoderFunc[T]) Decode(data []byte) Result[T] { return f(data) }

// Lift turns an error-returning decode function into a Decoder that maps any
// error to the invalid marker.
func Lift[T any](dec func([]byte) (T, error)) Decoder[T] {
	return DecoderFunc[T](func(data []byte) Result[T] {
		v, err := dec(data)
		if err != nil {
			return Invalid[T]()
		}
		return Valid(v)
	})
}
