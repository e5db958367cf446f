package poller

import (
	"context"
	"errors"
	"testing"

	"github.com/amken3d/jvs-host/bus"
	"github.com/amken3d/jvs-host/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession scripts ReadSwitches replies for a single device, and counts
// Enumerate calls so tests can assert the re-reset recovery path fires.
type fakeSession struct {
	replies    [][]byte
	errs       []error
	call       int
	enumerated int
}

func (f *fakeSession) Enumerate(ctx context.Context, opts bus.EnumerateOptions) ([]*device.Device, error) {
	f.enumerated++
	return nil, nil
}

func (f *fakeSession) ReadSwitches(ctx context.Context, addr byte, players int) ([]byte, error) {
	i := f.call
	f.call++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return nil, errors.New("fakeSession: out of scripted replies")
}

func oneSwitchDevice() *device.Registry {
	d := &device.Device{
		Address: 0x01,
		Capabilities: device.CapabilityDescriptor{
			Switches: &device.Switches{Players: 1, SwitchesPerPlayer: 8},
		},
	}
	return device.NewRegistry([]*device.Device{d})
}

func TestPollerPublishesSnapshot(t *testing.T) {
	session := &fakeSession{replies: [][]byte{{0x80, 0x40, 0x80}}}
	registry := oneSwitchDevice()
	p := NewPoller(session, registry)

	require.NoError(t, p.pollOne(context.Background(), registry.Devices()[0]))

	snapshot, ok := p.Snapshot(0x01)
	require.True(t, ok)
	assert.True(t, snapshot.System.Test)
}

func TestPollerDropsCycleOnError(t *testing.T) {
	session := &fakeSession{errs: []error{errors.New("boom")}}
	registry := oneSwitchDevice()
	p := NewPoller(session, registry)

	err := p.pollOne(context.Background(), registry.Devices()[0])
	assert.Error(t, err)

	_, ok := p.Snapshot(0x01)
	assert.False(t, ok)
}

func TestPollerRetainsPriorSnapshotAfterDroppedCycle(t *testing.T) {
	session := &fakeSession{
		replies: [][]byte{{0x80, 0x00, 0x00}},
		errs:    []error{nil, errors.New("timeout")},
	}
	registry := oneSwitchDevice()
	p := NewPoller(session, registry)
	dev := registry.Devices()[0]

	require.NoError(t, p.pollOne(context.Background(), dev))
	first, ok := p.Snapshot(0x01)
	require.True(t, ok)

	err := p.pollOne(context.Background(), dev)
	assert.Error(t, err)

	second, ok := p.Snapshot(0x01)
	require.True(t, ok)
	assert.Equal(t, first, second)
}

func TestPollerReResetsAfterConsecutiveTimeouts(t *testing.T) {
	session := &fakeSession{}
	registry := oneSwitchDevice()
	p := NewPoller(session, registry)

	for i := 0; i < MaxConsecutiveTimeouts; i++ {
		p.recordFailure(context.Background(), 0x01)
	}

	assert.Equal(t, 1, session.enumerated)
	assert.Equal(t, 0, p.consecutiveTimeouts)
}
