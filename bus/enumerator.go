package bus

import (
	"time"

	"github.com/amken3d/jvs-host/device"
	"github.com/amken3d/jvs-host/protocol"
	"github.com/amken3d/jvs-host/serial"
	"github.com/sirupsen/logrus"
)

// InitDelay is the settle time after the double reset broadcast, before
// address assignment begins.
const InitDelay = 1 * time.Second

// State is one step of the enumerator's state machine.
type State int

const (
	StateInit State = iota
	StateResetting
	StateAssigning
	StateIdentifying
	StateReady
	StateEnumFailed
)

// EnumerateOptions controls address assignment.
type EnumerateOptions struct {
	// AssumeDevices, if non-zero, skips sense-line polling and assigns
	// addresses 1..AssumeDevices unconditionally.
	AssumeDevices int
}

// Enumerator runs the bus reset / address-assignment / identify sequence of
// §4.4 over a Transactor and a sense-capable link.
type Enumerator struct {
	Link serial.Link
	t    *Transactor
}

// NewEnumerator builds an Enumerator over link, sharing one Transactor for
// both address assignment and identification.
func NewEnumerator(link serial.Link) *Enumerator {
	return &Enumerator{Link: link, t: NewTransactor(link)}
}

// Enumerate runs the full reset/assign/identify sequence and returns the
// devices that survived identification. It returns ErrNoDevices if address
// assignment produced no addresses, or if every assigned address failed
// identification.
func (e *Enumerator) Enumerate(opts EnumerateOptions) ([]*device.Device, error) {
	if err := e.reset(); err != nil {
		return nil, err
	}

	addrs, err := e.assignAddresses(opts)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, ErrNoDevices
	}

	devices := e.identifyAll(addrs)
	if len(devices) == 0 {
		return nil, ErrNoDevices
	}
	return devices, nil
}

// flusher is satisfied by serial.NativeLink; not every Link (e.g.
// serial.MockLink in tests) needs to support it.
type flusher interface {
	Flush() error
}

// reset flushes any stale buffered bytes, issues the double-reset broadcast
// the JVS spec requires, and waits InitDelay for the bus to settle.
func (e *Enumerator) reset() error {
	if f, ok := e.Link.(flusher); ok {
		if err := f.Flush(); err != nil {
			logrus.WithError(err).Warn("jvs: failed to flush stale bytes before reset")
		}
	}

	for i := 0; i < 2; i++ {
		if err := e.t.ResetBroadcast(); err != nil {
			return err
		}
	}
	time.Sleep(InitDelay)
	return nil
}

// assignAddresses assigns addresses either by a caller-supplied device
// count or by polling the sense line, capping at protocol.DeviceAddrMax
// devices either way.
func (e *Enumerator) assignAddresses(opts EnumerateOptions) ([]byte, error) {
	if opts.AssumeDevices > 0 {
		return e.assignByCount(opts.AssumeDevices)
	}
	return e.assignBySense()
}

func (e *Enumerator) assignByCount(n int) ([]byte, error) {
	if n > protocol.DeviceAddrMax {
		n = protocol.DeviceAddrMax
	}

	var addrs []byte
	for addr := byte(protocol.DeviceAddrStart); int(addr) <= n; addr++ {
		if err := e.t.AssignAddress(addr); err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

func (e *Enumerator) assignBySense() ([]byte, error) {
	var addrs []byte
	addr := byte(protocol.DeviceAddrStart)

	for {
		asserted, err := e.Link.Sense()
		if err != nil {
			return nil, &Error{Kind: KindTimeout, Err: err}
		}
		if !asserted {
			break
		}
		if int(addr) > protocol.DeviceAddrMax {
			logrus.Warn("jvs: sense line still asserted after 31 devices, stopping address assignment")
			break
		}

		if err := e.t.AssignAddress(addr); err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
		addr++
	}

	return addrs, nil
}

// identifyAll runs the identify flow for every assigned address. A device
// whose identification fails is logged and omitted; it does not abort
// enumeration for the remaining addresses.
func (e *Enumerator) identifyAll(addrs []byte) []*device.Device {
	devices := make([]*device.Device, 0, len(addrs))
	for _, addr := range addrs {
		d, err := e.identifyOne(addr)
		if err != nil {
			logrus.WithField("addr", addr).WithError(err).Warn("jvs: device failed identification, omitting from registry")
			continue
		}
		devices = append(devices, d)
	}
	return devices
}

func (e *Enumerator) identifyOne(addr byte) (*device.Device, error) {
	idBytes, err := e.t.Transact(addr, []byte{protocol.CmdRequestID})
	if err != nil {
		return nil, err
	}
	manufacturer, product, serialNum, version, comment := device.ParseIdentity(idBytes)

	versions := e.identifyVersions(addr)

	capBytes, err := e.t.Transact(addr, []byte{protocol.CmdCapabilities})
	if err != nil {
		return nil, err
	}

	return &device.Device{
		Address:      addr,
		Manufacturer: manufacturer,
		Product:      product,
		Serial:       serialNum,
		Version:      version,
		Comment:      comment,
		Versions:     versions,
		Capabilities: device.DecodeCapabilities(capBytes),
	}, nil
}

// identifyVersions queries the three version opcodes in one packed request.
// A failed or missing report leaves that version at 0.0 and logs a warning,
// matching §4.4's "missing/failed pairs leave that version at 0.0" rule —
// this is non-fatal, unlike RequestID/Capabilities failures.
func (e *Enumerator) identifyVersions(addr byte) device.Versions {
	payload := []byte{protocol.CmdCommandVersion, protocol.CmdJVSVersion, protocol.CmdCommsVersion}
	results, err := e.t.TransactMulti(addr, payload, []int{1, 1, 1})
	if err != nil {
		logrus.WithField("addr", addr).WithError(err).Warn("jvs: version query failed, defaulting to 0.0")
		return device.Versions{}
	}

	var versions device.Versions
	fields := []*float64{&versions.Command, &versions.JVS, &versions.Comms}
	for i, result := range results {
		if result.Report != protocol.ReportSuccess {
			logrus.WithField("addr", addr).WithField("index", i).Warn("jvs: version query report error, defaulting to 0.0")
			continue
		}
		if len(result.Data) != 1 {
			continue
		}
		*fields[i] = device.BCDToFraction(result.Data[0])
	}
	return versions
}
