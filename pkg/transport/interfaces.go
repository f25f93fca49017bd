package transport

import "context"

// Receiver is the device side of a binding.
type Receiver interface {
	// Identifier returns the endpoint identifier (empty on single-endpoint
	// transports). It must not change after registration.
	Identifier() []byte

	// Name is a human-readable label used in logs.
	Name() string

	// Receive handles one inbound frame addressed to this endpoint.
	// It is called from the transport's receive goroutine.
	Receive(frame []byte)
}

// Transport moves frames between the hub and endpoints.
type Transport interface {
	// Connect expresses the intent to be connected and makes a first attempt.
	// A failed attempt is retried automatically; the error is informational.
	Connect(ctx context.Context) error

	// Disconnect drops the connection and the intent to be connected.
	Disconnect() error

	// Reconnect drops and re-establishes the connection.
	Reconnect(ctx context.Context) error

	// WriteToNetwork sends payload to the endpoint named by id. The id is
	// ignored by single-endpoint transports and length-checked otherwise.
	WriteToNetwork(id []byte, payload []byte) error

	// State returns the current connection state.
	State() State

	// Connected reports whether State is StateConnected.
	Connected() bool

	// OnStateChange registers fn for state transitions.
	OnStateChange(fn func(old, new State)) (cancel func())

	// IdentifierLength is the fixed endpoint identifier length.
	IdentifierLength() int

	// AddDevice registers a receiver and returns its binding.
	AddDevice(r Receiver) (*Binding, error)

	// Close releases all resources. The transport cannot be reused.
	Close() error
}

// Compile-time interface satisfaction checks.
var (
	_ Transport = (*UDP)(nil)
)
