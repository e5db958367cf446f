package protocol

import (
	"errors"
	"fmt"
	"time"

	"github.com/amken3d/jvs-host/serial"
)

// ErrTimeout is returned by Decode when a byte read blocks past the
// framing timeout mid-frame.
var ErrTimeout = errors.New("protocol: read timeout")

// ErrChecksum is returned by Decode when the trailing checksum byte does not
// match the computed checksum over the unescaped payload.
var ErrChecksum = errors.New("protocol: checksum mismatch")

// Frame is a single bus message at the value level: a destination address
// and an ordered payload. Framing metadata (sync, length, checksum, escape
// bytes) is materialized only by Encode/Decode, never carried in Frame
// itself.
type Frame struct {
	Destination byte
	Payload     []byte
}

// ByteReader is the minimal read side a decoder needs. serial.Link and
// serial.MockLink both satisfy it structurally.
type ByteReader interface {
	ReadByte(timeout time.Duration) (byte, error)
}

// ByteWriter is the minimal write side an encoder needs.
type ByteWriter interface {
	WriteByte(b byte) error
}

// Encode renders (dest, payload) as a complete on-wire frame: SYNC, DEST,
// LEN, escaped payload, CHECKSUM. LEN covers the trailing checksum byte, and
// the checksum is computed over the unescaped (logical) payload bytes.
func Encode(dest byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxFrameBodyLen {
		return nil, fmt.Errorf("protocol: payload too long: %d bytes", len(payload))
	}

	length := byte(len(payload) + 1)
	checksum := byte((int(dest) + int(length)) % 256)

	out := NewScratchOutput()
	out.WriteByte(Sync)
	out.WriteByte(dest)
	out.WriteByte(length)

	for _, b := range payload {
		if b == Sync || b == Escape {
			out.WriteByte(Escape)
			out.WriteByte(b - 1)
		} else {
			out.WriteByte(b)
		}
		checksum = byte((int(checksum) + int(b)) % 256)
	}

	out.WriteByte(checksum)
	return out.Bytes(), nil
}

// WriteFrame encodes and writes a frame one byte at a time to w.
func WriteFrame(w ByteWriter, dest byte, payload []byte) error {
	frame, err := Encode(dest, payload)
	if err != nil {
		return err
	}
	for _, b := range frame {
		if err := w.WriteByte(b); err != nil {
			return fmt.Errorf("protocol: write: %w", err)
		}
	}
	return nil
}

// Decode reads one frame from r. It discards bytes until it observes SYNC
// (resynchronization), then reads destination, length, the escaped payload
// and the checksum. A SYNC observed where the destination or a payload byte
// is expected restarts decoding at the destination byte that follows it,
// since a well-behaved peer never emits one there. Returns ErrTimeout if a
// read blocks past timeout, or ErrChecksum on a checksum mismatch.
func Decode(r ByteReader, timeout time.Duration) (Frame, error) {
	for {
		b, err := readByte(r, timeout)
		if err != nil {
			return Frame{}, err
		}
		if b != Sync {
			continue
		}

		for {
			frame, resync, err := decodeAfterSync(r, timeout)
			if err != nil {
				return Frame{}, err
			}
			if !resync {
				return frame, nil
			}
		}
	}
}

// decodeAfterSync decodes destination/length/payload/checksum assuming SYNC
// was just consumed. If it encounters another SYNC where a destination or
// payload byte was expected, it reports resync=true; that SYNC has been
// consumed, so the caller resumes at the destination byte.
func decodeAfterSync(r ByteReader, timeout time.Duration) (frame Frame, resync bool, err error) {
	dest, err := readByte(r, timeout)
	if err != nil {
		return Frame{}, false, err
	}
	if dest == Sync {
		return Frame{}, true, nil
	}

	length, err := readByte(r, timeout)
	if err != nil {
		return Frame{}, false, err
	}

	n := int(length) - 1
	if n < 0 {
		return Frame{}, false, fmt.Errorf("protocol: invalid length field %d", length)
	}

	checksum := (int(dest) + int(length)) % 256
	payload := make([]byte, 0, n)

	for i := 0; i < n; i++ {
		b, err := readByte(r, timeout)
		if err != nil {
			return Frame{}, false, err
		}
		if b == Sync {
			return Frame{}, true, nil
		}
		if b == Escape {
			b2, err := readByte(r, timeout)
			if err != nil {
				return Frame{}, false, err
			}
			if b2 == Sync {
				return Frame{}, true, nil
			}
			b = b2 + 1
		}
		payload = append(payload, b)
		checksum = (checksum + int(b)) % 256
	}

	onWireChecksum, err := readByte(r, timeout)
	if err != nil {
		return Frame{}, false, err
	}
	if int(onWireChecksum) != checksum {
		return Frame{}, false, ErrChecksum
	}

	return Frame{Destination: dest, Payload: payload}, false, nil
}

func readByte(r ByteReader, timeout time.Duration) (byte, error) {
	b, err := r.ReadByte(timeout)
	if err != nil {
		if errors.Is(err, serial.ErrTimeout) {
			return 0, ErrTimeout
		}
		return 0, fmt.Errorf("protocol: read: %w", err)
	}
	return b, nil
}
