// Package log provides protocol capture for the homewire core.
//
// Capture is separate from operational logging (log/slog). It records a
// machine-readable trace of what crossed each layer: raw frames at the
// transport, routing decisions and drops at the device, call lifecycles at
// the service, plus connection state changes and errors.
//
// # Basic Usage
//
// Components accept a Logger through their config or options:
//
//	// For development: capture to the console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For field debugging: write a CBOR capture file
//	fl, _ := log.NewFileLogger("/var/lib/homewire/capture.hwcap")
//	cfg.ProtocolLogger = fl
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # Event Types
//
//   - Frame: raw bytes in or out of a transport (FrameEvent)
//   - Drop: inbound bytes discarded before reaching a consumer (DropEvent)
//   - Call: a request id being sent, resolved, or rejected (CallEvent)
//   - State: transport connection or device online changes (StateChangeEvent)
//   - Error: failures at any layer (ErrorEventData)
//
// # File Format
//
// Capture files are a concatenation of CBOR-encoded Events. The
// homewire-log command prints and filters them.
package log
