//go:build !wasm

package serial

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tarm/serial"
)

// NativeLink wraps a Port (satisfied by github.com/tarm/serial's *Port) for
// byte I/O, plus a second raw file handle on the same device used only to
// read modem status bits for Sense — tarm/serial does not expose the
// underlying descriptor.
type NativeLink struct {
	port   Port
	status *os.File
	cfg    *Config
}

// Open opens a native serial link to a JVS bus.
func Open(cfg *Config) (*NativeLink, error) {
	if cfg == nil {
		return nil, fmt.Errorf("serial: config cannot be nil")
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", cfg.Device, err)
	}

	status, err := os.OpenFile(cfg.Device, os.O_RDONLY|os.O_NOCTTY, 0)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("serial: open status handle on %s: %w", cfg.Device, err)
	}

	return &NativeLink{port: port, status: status, cfg: cfg}, nil
}

// ReadByte reads a single byte, translating tarm/serial's configured
// ReadTimeout behavior (it returns io.EOF/0 bytes on timeout) into
// ErrTimeout. The per-call timeout argument is honored only to the
// resolution of the port's configured ReadTimeout; JVS framing timeouts are
// all short and equal in practice, so this is sufficient.
func (l *NativeLink) ReadByte(timeout time.Duration) (byte, error) {
	buf := make([]byte, 1)
	n, err := l.port.Read(buf)
	if errors.Is(err, io.EOF) {
		return 0, ErrTimeout
	}
	if err != nil {
		return 0, fmt.Errorf("serial: read: %w", err)
	}
	if n == 0 {
		return 0, ErrTimeout
	}
	return buf[0], nil
}

// WriteByte writes a single byte to the link.
func (l *NativeLink) WriteByte(b byte) error {
	_, err := l.port.Write([]byte{b})
	if err != nil {
		return fmt.Errorf("serial: write: %w", err)
	}
	return nil
}

// Close releases both file handles, routed through the Port's own Close.
func (l *NativeLink) Close() error {
	statusErr := l.status.Close()
	if err := l.port.Close(); err != nil {
		return err
	}
	return statusErr
}

// Flush discards any buffered input/output on the port. The enumerator
// calls this before a reset so stale bytes from a prior, aborted exchange
// don't get mistaken for the reply to a fresh command.
func (l *NativeLink) Flush() error {
	return l.port.Flush()
}
