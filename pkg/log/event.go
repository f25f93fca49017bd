package log

import (
	"time"
)

// MaxCapturedBytes bounds how much of a frame is copied into a FrameEvent.
const MaxCapturedBytes = 256

// Event is one capture record. CBOR encoding uses integer keys.
type Event struct {
	// Timestamp when the event occurred.
	Timestamp time.Time `cbor:"1,keyasint"`

	// TransportID identifies the transport instance (UUID).
	TransportID string `cbor:"2,keyasint"`

	// Direction of the bytes, for frame and drop events.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"5,keyasint"`

	// Endpoint is the device name, when known.
	Endpoint string `cbor:"6,keyasint,omitempty"`

	// Address is the endpoint identifier in hex (empty on single-endpoint transports).
	Address string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Call        *CallEvent        `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Drop        *DropEvent        `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of traffic.
type Direction uint8

const (
	// DirectionIn is traffic received from the network.
	DirectionIn Direction = 0
	// DirectionOut is traffic sent to the network.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which component captured the event.
type Layer uint8

const (
	// LayerTransport is raw byte I/O.
	LayerTransport Layer = 0
	// LayerDevice is inbound demultiplexing.
	LayerDevice Layer = 1
	// LayerService is the request/response engine.
	LayerService Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerDevice:
		return "DEVICE"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	CategoryFrame Category = 0
	CategoryCall  Category = 1
	CategoryState Category = 2
	CategoryDrop  Category = 3
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFrame:
		return "FRAME"
	case CategoryCall:
		return "CALL"
	case CategoryState:
		return "STATE"
	case CategoryDrop:
		return "DROP"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw bytes at the transport layer.
type FrameEvent struct {
	// Size is the full frame size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the frame, truncated to MaxCapturedBytes.
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates Data is shorter than Size.
	Truncated bool `cbor:"3,keyasint,omitempty"`

	// Repeat is the 0-based index of a repeated send.
	Repeat int `cbor:"4,keyasint,omitempty"`
}

// NewFrameEvent copies at most MaxCapturedBytes of data.
func NewFrameEvent(data []byte) *FrameEvent {
	fe := &FrameEvent{Size: len(data)}
	n := len(data)
	if n > MaxCapturedBytes {
		n = MaxCapturedBytes
		fe.Truncated = true
	}
	fe.Data = append([]byte(nil), data[:n]...)
	return fe
}

// CallEvent captures one step of a request/response exchange.
type CallEvent struct {
	// Service is the service name.
	Service string `cbor:"1,keyasint"`

	// SeqID is the request id on the wire.
	SeqID uint8 `cbor:"2,keyasint"`

	// Outcome of this step.
	Outcome CallOutcome `cbor:"3,keyasint"`

	// RoundTrip is the time from send to settlement (settled outcomes only).
	RoundTrip *time.Duration `cbor:"4,keyasint,omitempty"`

	// Cause describes a rejection.
	Cause string `cbor:"5,keyasint,omitempty"`
}

// CallOutcome is a call lifecycle step.
type CallOutcome uint8

const (
	CallSent CallOutcome = iota
	CallResolved
	CallTimedOut
	CallRejected
)

// String returns the outcome name.
func (o CallOutcome) String() string {
	switch o {
	case CallSent:
		return "SENT"
	case CallResolved:
		return "RESOLVED"
	case CallTimedOut:
		return "TIMED_OUT"
	case CallRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures connection and liveness changes.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	// StateEntityTransport is a transport connection state change.
	StateEntityTransport StateEntity = 0
	// StateEntityDevice is a device online/offline change.
	StateEntityDevice StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityTransport:
		return "TRANSPORT"
	case StateEntityDevice:
		return "DEVICE"
	default:
		return "UNKNOWN"
	}
}

// DropEvent records inbound bytes that were discarded.
type DropEvent struct {
	Reason DropReason `cbor:"1,keyasint"`
	Size   int        `cbor:"2,keyasint"`

	// Detail is a short free-form explanation, e.g. the sequence numbers involved.
	Detail string `cbor:"3,keyasint,omitempty"`
}

// DropReason says why inbound bytes were discarded.
type DropReason uint8

const (
	DropStaleSequence DropReason = iota
	DropUnknownAddress
	DropUnknownRoute
	DropUnmatchedResponse
	DropInvalidPayload
	DropFiltered
)

// String returns the reason name.
func (r DropReason) String() string {
	switch r {
	case DropStaleSequence:
		return "STALE_SEQUENCE"
	case DropUnknownAddress:
		return "UNKNOWN_ADDRESS"
	case DropUnknownRoute:
		return "UNKNOWN_ROUTE"
	case DropUnmatchedResponse:
		return "UNMATCHED_RESPONSE"
	case DropInvalidPayload:
		return "INVALID_PAYLOAD"
	case DropFiltered:
		return "FILTERED"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
