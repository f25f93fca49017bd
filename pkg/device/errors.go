package device

import (
	"errors"
	"fmt"
)

// Call errors.
var (
	ErrTimeout    = errors.New("request timed out")
	ErrOffline    = errors.New("device offline")
	ErrDecode     = errors.New("response decode failed")
	ErrEncode     = errors.New("request encode failed")
	ErrClosed     = errors.New("device closed")
	ErrNoSequence = errors.New("no free request id")
)

// Registration errors.
var (
	ErrDiscriminatorCollision = errors.New("discriminator collision")
	ErrEmptyDiscriminator     = errors.New("empty discriminator")
	ErrNilTransport           = errors.New("nil transport")
	ErrNilCodec               = errors.New("nil codec")
)

// CallError describes a failed service call.
type CallError struct {
	// Service is the service name.
	Service string

	// SeqID is the request id, 0 if none was allocated.
	SeqID uint8

	// Err is the failure class, e.g. ErrTimeout.
	Err error

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *CallError) Error() string {
	msg := fmt.Sprintf("call %s", e.Service)
	if e.SeqID != 0 {
		msg += fmt.Sprintf(" (id %d)", e.SeqID)
	}
	msg += ": " + e.Err.Error()
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both Err and Cause to errors.Is and errors.As.
func (e *CallError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}
