package poller

import (
	"context"
	"sync/atomic"

	"github.com/amken3d/jvs-host/bus"
	"github.com/amken3d/jvs-host/device"
	"github.com/sirupsen/logrus"
)

// MaxConsecutiveTimeouts is the recommended threshold (§7) after which the
// poller triggers a bus re-reset as a recovery step.
const MaxConsecutiveTimeouts = 8

// Poller drives the input-polling loop over a registry of devices,
// publishing one SwitchSnapshot per device per cycle.
type Poller struct {
	session  bus.Session
	registry *device.Registry

	snapshots           map[byte]*atomic.Value // addr -> SwitchSnapshot
	consecutiveTimeouts int
}

// NewPoller builds a Poller over session, polling the switch-capable
// devices in registry.
func NewPoller(session bus.Session, registry *device.Registry) *Poller {
	p := &Poller{
		session:   session,
		registry:  registry,
		snapshots: make(map[byte]*atomic.Value),
	}
	for _, d := range registry.WithSwitches() {
		p.snapshots[d.Address] = &atomic.Value{}
	}
	return p
}

// Snapshot returns the most recently published SwitchSnapshot for addr, or
// false if addr has no switches capability or has not yet produced one.
func (p *Poller) Snapshot(addr byte) (SwitchSnapshot, bool) {
	v, ok := p.snapshots[addr]
	if !ok {
		return SwitchSnapshot{}, false
	}
	s, ok := v.Load().(SwitchSnapshot)
	return s, ok
}

// Run loops continuously over the switch-capable devices until ctx is
// cancelled, at the one suspension point the design allows between
// devices. A dropped cycle (timeout, checksum, stray packet) retains the
// prior snapshot so edge-detection stays consistent.
func (p *Poller) Run(ctx context.Context) error {
	devices := p.registry.WithSwitches()
	if len(devices) == 0 {
		return nil
	}

	for {
		for _, d := range devices {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if err := p.pollOne(ctx, d); err != nil {
				logrus.WithField("addr", d.Address).WithError(err).Debug("jvs: dropped poll cycle")
				p.recordFailure(ctx, d.Address)
				continue
			}
			p.consecutiveTimeouts = 0
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// recordFailure tracks a dropped cycle and triggers the bus re-reset
// recovery step once MaxConsecutiveTimeouts have accumulated in a row.
func (p *Poller) recordFailure(ctx context.Context, addr byte) {
	p.consecutiveTimeouts++
	if p.consecutiveTimeouts < MaxConsecutiveTimeouts {
		return
	}

	logrus.WithField("addr", addr).Warn("jvs: too many consecutive poll failures, re-resetting bus")
	if _, err := p.session.Enumerate(ctx, bus.EnumerateOptions{}); err != nil {
		logrus.WithError(err).Error("jvs: bus re-reset failed")
	}
	p.consecutiveTimeouts = 0
}

func (p *Poller) pollOne(ctx context.Context, d *device.Device) error {
	players := d.Capabilities.Switches.Players
	raw, err := p.session.ReadSwitches(ctx, d.Address, players)
	if err != nil {
		return err
	}

	snapshot, err := DecodeSwitches(raw, players, d.Capabilities.Switches.SwitchesPerPlayer)
	if err != nil {
		return err
	}

	p.snapshots[d.Address].Store(snapshot)
	return nil
}
