// Package serial abstracts the byte-oriented transport a JVS bus master
// talks over: read-with-timeout, write, and the daisy-chain sense line most
// USB-RS485 adapters expose as the carrier-detect modem status bit.
package serial

import (
	"errors"
	"io"
	"time"
)

// ErrTimeout is returned by Link.ReadByte when no byte arrives before the
// configured framing timeout elapses.
var ErrTimeout = errors.New("serial: read timeout")

// Port is the minimal byte-oriented contract a concrete transport
// implementation must satisfy.
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data.
	Flush() error
}

// Link is the contract the bus session layer consumes: single-byte
// read-with-timeout, single-byte write, and the sense line. The codec and
// transactor never see anything below this.
type Link interface {
	// ReadByte reads one byte, blocking at most until timeout. It returns
	// ErrTimeout if no byte arrives in time.
	ReadByte(timeout time.Duration) (byte, error)

	// WriteByte writes one byte.
	WriteByte(b byte) error

	// Sense reports the state of the JVS daisy-chain sense line.
	Sense() (bool, error)

	// Close releases the underlying port.
	Close() error
}

// Config holds serial port configuration for a JVS bus.
type Config struct {
	// Device is the path to the serial device (e.g. "/dev/ttyUSB0").
	Device string

	// Baud is the line rate. JVS over commodity USB-RS485 adapters is
	// 115200 8N1.
	Baud int

	// ReadTimeout bounds a single ReadByte call.
	ReadTimeout time.Duration
}

// DefaultConfig returns the standard JVS serial configuration for device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 250 * time.Millisecond,
	}
}
