package log

import (
	"fmt"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends capture events to a CBOR file. With a size limit the
// file is rotated to "<path>.1" once it grows past the limit, so a
// long-running hub keeps at most two files.
type FileLogger struct {
	path     string
	maxBytes int64

	mu      sync.Mutex
	file    *os.File
	enc     *cbor.Encoder
	written int64
	closed  bool
}

// NewFileLogger opens path for appending without a size limit.
func NewFileLogger(path string) (*FileLogger, error) {
	return NewRotatingFileLogger(path, 0)
}

// NewRotatingFileLogger opens path for appending and rotates it when it
// exceeds maxBytes. Zero disables rotation.
func NewRotatingFileLogger(path string, maxBytes int64) (*FileLogger, error) {
	l := &FileLogger{path: path, maxBytes: maxBytes}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *FileLogger) open() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	l.file = f
	l.written = info.Size()
	l.enc = NewEncoder(countingWriter{l})
	return nil
}

// countingWriter tracks bytes written through the encoder.
type countingWriter struct{ l *FileLogger }

func (w countingWriter) Write(p []byte) (int, error) {
	n, err := w.l.file.Write(p)
	w.l.written += int64(n)
	return n, err
}

// Path returns the file being written.
func (l *FileLogger) Path() string { return l.path }

// Log appends event. Write errors are swallowed and events logged after
// Close are dropped.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if l.maxBytes > 0 && l.written >= l.maxBytes {
		if err := l.rotate(); err != nil {
			return
		}
	}
	_ = l.enc.Encode(event)
}

// rotate must be called with l.mu held.
func (l *FileLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(l.path, l.path+".1"); err != nil {
		return fmt.Errorf("rotate capture file: %w", err)
	}
	return l.open()
}

// Close flushes and closes the file. Further calls return nil.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if err := l.file.Sync(); err != nil {
		_ = l.file.Close()
		return err
	}
	return l.file.Close()
}

var _ Logger = (*FileLogger)(nil)
