package device

import (
	"fmt"

	"github.com/homewire/homewire-go/pkg/codec"
	"github.com/homewire/homewire-go/pkg/log"
	"github.com/homewire/homewire-go/pkg/stream"
)

// Event is a typed notification stream from the endpoint.
type Event[T any] struct {
	device  *Device
	name    string
	disc    []byte
	decoder codec.Decoder[T]
	subs    stream.Stream[T]
}

// AddEvent registers an event with the given discriminator on d.
func AddEvent[T any](d *Device, name string, disc []byte, dec codec.Decoder[T]) (*Event[T], error) {
	if dec == nil {
		return nil, fmt.Errorf("%w: event %s", ErrNilCodec, name)
	}
	if err := d.register(name, disc, true); err != nil {
		return nil, err
	}

	e := &Event[T]{
		device:  d,
		name:    name,
		disc:    append([]byte(nil), disc...),
		decoder: dec,
	}
	d.addEvent(e)
	return e, nil
}

// Name returns the event name.
func (e *Event[T]) Name() string { return e.name }

// Discriminator returns the event discriminator.
func (e *Event[T]) Discriminator() []byte { return e.disc }

// Device returns the device the event is registered on.
func (e *Event[T]) Device() *Device { return e.device }

// Subscribe registers fn for every valid notification. fn runs on the
// transport's receive goroutine.
func (e *Event[T]) Subscribe(fn func(T)) (cancel func()) {
	return e.subs.Subscribe(fn)
}

func (e *Event[T]) eventName() string { return e.name }

func (e *Event[T]) discriminator() []byte { return e.disc }

func (e *Event[T]) deliver(payload []byte) {
	v, ok := e.decoder.Decode(payload).Get()
	if !ok {
		e.device.metrics.EventInvalid(e.name)
		e.device.drop(log.DropInvalidPayload, payload, "event "+e.name)
		return
	}
	e.device.metrics.EventPublished(e.name)
	e.subs.Publish(v)
}
