package bus

import (
	"context"
	"fmt"

	"github.com/amken3d/jvs-host/device"
	"github.com/amken3d/jvs-host/protocol"
	"github.com/amken3d/jvs-host/serial"
)

// Session is the host boundary consumed by higher layers: enumeration and
// switch polling, per §6.
type Session interface {
	Enumerate(ctx context.Context, opts EnumerateOptions) ([]*device.Device, error)
	ReadSwitches(ctx context.Context, addr byte, players int) ([]byte, error)
}

// BusSession is the concrete Session backed by one serial.Link. It owns the
// link exclusively, matching §5's shared-resource policy.
type BusSession struct {
	Link     serial.Link
	t        *Transactor
	enum     *Enumerator
	Registry *device.Registry
}

// NewBusSession builds a BusSession over link.
func NewBusSession(link serial.Link) *BusSession {
	return &BusSession{
		Link: link,
		t:    NewTransactor(link),
		enum: NewEnumerator(link),
	}
}

// Enumerate runs the reset/assign/identify sequence and populates the
// session's device registry from the result.
func (s *BusSession) Enumerate(ctx context.Context, opts EnumerateOptions) ([]*device.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	devices, err := s.enum.Enumerate(opts)
	if err != nil {
		return nil, err
	}
	s.Registry = device.NewRegistry(devices)
	return devices, nil
}

// ReadSwitches issues a ReadSwitches command for addr and returns the raw
// reply bytes (system byte plus two bytes per player), for poller.DecodeSwitches
// to turn into a SwitchSnapshot.
func (s *BusSession) ReadSwitches(ctx context.Context, addr byte, players int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if players < 0 || players > 255 {
		return nil, fmt.Errorf("jvs: invalid player count %d", players)
	}
	return s.t.Transact(addr, []byte{protocol.CmdReadSwitches, byte(players), 2})
}

// Close releases the underlying serial link.
func (s *BusSession) Close() error {
	return s.Link.Close()
}
