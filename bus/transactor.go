package bus

import (
	"errors"
	"fmt"
	"time"

	"github.com/amken3d/jvs-host/protocol"
	"github.com/amken3d/jvs-host/serial"
	"github.com/sirupsen/logrus"
)

// CmdDelay is the inter-command pacing sleep honoured after every
// transaction, matching the real bus's minimum turnaround time.
const CmdDelay = 10 * time.Millisecond

// FrameTimeout bounds every byte read the transactor performs while
// decoding a reply.
const FrameTimeout = 250 * time.Millisecond

// CmdResult is one (report, data) pair from a multi-command reply.
type CmdResult struct {
	Report byte
	Data   []byte
}

// Transactor sends one command frame and validates exactly one reply,
// applying the status/report discipline of §4.3.
type Transactor struct {
	Link serial.Link
}

// NewTransactor wraps a serial.Link with the command/reply discipline.
func NewTransactor(link serial.Link) *Transactor {
	return &Transactor{Link: link}
}

// Transact sends payload to addr, validates a single-command reply and
// returns the response bytes following the status and report bytes.
//
// On FRAMING.CHECKSUM, it issues CMD_RETRANSMIT (0x2F) to the same address
// once and retries the decode; if that also fails it retries the original
// send once more before surfacing the error, per the retransmit policy
// resolving Open Question (c).
func (t *Transactor) Transact(addr byte, payload []byte) ([]byte, error) {
	resp, err := t.transactOnce(addr, payload)
	if err == nil {
		return resp, nil
	}

	var busErr *Error
	if errors.As(err, &busErr) && busErr.Kind == KindChecksum {
		logrus.WithField("addr", addr).Debug("jvs: checksum failure, requesting retransmit")
		if resp, rerr := t.retransmit(addr); rerr == nil {
			return t.validateSingle(addr, payload, resp)
		}

		logrus.WithField("addr", addr).Debug("jvs: retransmit failed, retrying original command")
		if resp, rerr := t.transactOnce(addr, payload); rerr == nil {
			return resp, nil
		}
	}

	return nil, err
}

func (t *Transactor) transactOnce(addr byte, payload []byte) ([]byte, error) {
	if err := protocol.WriteFrame(t.Link, addr, payload); err != nil {
		return nil, &Error{Kind: KindTimeout, Addr: addr, Err: err}
	}

	frame, err := protocol.Decode(t.Link, FrameTimeout)
	if err != nil {
		return nil, toBusError(addr, err)
	}
	if frame.Destination != protocol.BusMaster {
		return nil, &Error{Kind: KindStrayPacket, Addr: frame.Destination, Opcode: firstOpcode(payload)}
	}

	return t.validateSingle(addr, payload, frame.Payload)
}

// retransmit requests CMD_RETRANSMIT and decodes the reply it produces, but
// does not run status/report validation itself — the caller validates the
// result against the original command.
func (t *Transactor) retransmit(addr byte) ([]byte, error) {
	if err := protocol.WriteFrame(t.Link, addr, []byte{protocol.CmdRetransmit}); err != nil {
		return nil, &Error{Kind: KindTimeout, Addr: addr, Err: err}
	}
	frame, err := protocol.Decode(t.Link, FrameTimeout)
	if err != nil {
		return nil, toBusError(addr, err)
	}
	if frame.Destination != protocol.BusMaster {
		return nil, &Error{Kind: KindStrayPacket, Addr: frame.Destination}
	}
	return frame.Payload, nil
}

func (t *Transactor) validateSingle(addr byte, payload []byte, response []byte) ([]byte, error) {
	if len(response) < 1 {
		return nil, &Error{Kind: KindStatus, Addr: addr, Opcode: firstOpcode(payload), Err: fmt.Errorf("jvs: reply too short: %d bytes", len(response))}
	}
	status := response[0]
	if status != protocol.StatusSuccess {
		return nil, &Error{Kind: KindStatus, Addr: addr, Opcode: firstOpcode(payload), Code: status}
	}

	if len(response) < 2 {
		return nil, &Error{Kind: KindReport, Addr: addr, Opcode: firstOpcode(payload), Err: fmt.Errorf("jvs: reply too short: %d bytes", len(response))}
	}
	report := response[1]
	if report != protocol.ReportSuccess {
		return nil, &Error{Kind: KindReport, Addr: addr, Opcode: firstOpcode(payload), Code: report}
	}

	time.Sleep(CmdDelay)
	return response[2:], nil
}

// TransactMulti sends a request packing multiple command records and
// returns the per-command (report, data) pairs without failing on a bad
// report — the caller decides what to do per command. It still fails the
// whole transaction on a bad status or a framing error.
//
// cmdLens gives the reply byte count produced by each command record, in
// the same order as the records were packed into payload; version queries
// (0x11/0x12/0x13) each produce exactly one byte.
func (t *Transactor) TransactMulti(addr byte, payload []byte, cmdLens []int) ([]CmdResult, error) {
	if err := protocol.WriteFrame(t.Link, addr, payload); err != nil {
		return nil, &Error{Kind: KindTimeout, Addr: addr, Err: err}
	}

	frame, err := protocol.Decode(t.Link, FrameTimeout)
	if err != nil {
		return nil, toBusError(addr, err)
	}
	if frame.Destination != protocol.BusMaster {
		return nil, &Error{Kind: KindStrayPacket, Addr: frame.Destination}
	}

	response := frame.Payload
	if len(response) < 1 {
		return nil, &Error{Kind: KindStatus, Addr: addr, Err: fmt.Errorf("jvs: reply too short: %d bytes", len(response))}
	}
	status := response[0]
	if status != protocol.StatusSuccess {
		return nil, &Error{Kind: KindStatus, Addr: addr, Code: status}
	}

	rest := response[1:]
	results := make([]CmdResult, 0, len(cmdLens))
	for _, n := range cmdLens {
		if len(rest) < 1+n {
			return nil, &Error{Kind: KindStatus, Addr: addr, Err: fmt.Errorf("jvs: truncated multi-command reply")}
		}
		results = append(results, CmdResult{Report: rest[0], Data: rest[1 : 1+n]})
		rest = rest[1+n:]
	}

	time.Sleep(CmdDelay)
	return results, nil
}

// ResetBroadcast sends one RESET command (0xF0, 0xD9) to the broadcast
// address. RESET draws no reply; the caller is responsible for the double
// send and the INIT_DELAY sleep §4.4 requires.
func (t *Transactor) ResetBroadcast() error {
	if err := protocol.WriteFrame(t.Link, protocol.Broadcast, []byte{protocol.CmdReset, protocol.CmdResetArg}); err != nil {
		return &Error{Kind: KindTimeout, Addr: protocol.Broadcast, Err: err}
	}
	return nil
}

// AssignAddress sends ASSIGN_ADDR(addr) to the broadcast destination and
// reads the single reply it produces — ASSIGN_ADDR is the one broadcast
// opcode whose addressed device actually replies.
func (t *Transactor) AssignAddress(addr byte) error {
	payload := []byte{protocol.CmdAssignAddr, addr}
	_, err := t.transactOnce(protocol.Broadcast, payload)
	return err
}

func firstOpcode(payload []byte) byte {
	if len(payload) == 0 {
		return 0
	}
	return payload[0]
}

func toBusError(addr byte, err error) *Error {
	switch {
	case errors.Is(err, protocol.ErrTimeout):
		return &Error{Kind: KindTimeout, Addr: addr, Err: err}
	case errors.Is(err, protocol.ErrChecksum):
		return &Error{Kind: KindChecksum, Addr: addr, Err: err}
	default:
		return &Error{Kind: KindTimeout, Addr: addr, Err: err}
	}
}
