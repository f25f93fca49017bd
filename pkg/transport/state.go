package transport

import "errors"

// Transport errors.
var (
	ErrNotConnected        = errors.New("transport not connected")
	ErrClosed              = errors.New("transport closed")
	ErrReadOnly            = errors.New("transport is receive-only")
	ErrIdentifierLength    = errors.New("identifier length mismatch")
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	ErrMissingHost         = errors.New("missing host")
	ErrInvalidPort         = errors.New("invalid port")
)

// State is the connection state of a transport.
type State uint8

const (
	// StateDisconnected indicates no usable channel.
	StateDisconnected State = iota

	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting

	// StateConnected indicates frames can be written.
	StateConnected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// StateChange is published when a transport changes state.
type StateChange struct {
	Old, New State
	Reason   string
}
