package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookupAndOrdering(t *testing.T) {
	d1 := &Device{Address: 1}
	d2 := &Device{Address: 2, Capabilities: CapabilityDescriptor{Switches: &Switches{Players: 2, SwitchesPerPlayer: 8}}}

	r := NewRegistry([]*Device{d1, d2})

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []byte{1, 2}, r.Addresses())

	got, ok := r.Get(2)
	require.True(t, ok)
	assert.Same(t, d2, got)

	_, ok = r.Get(9)
	assert.False(t, ok)

	_, err := r.MustGet(9)
	assert.Error(t, err)
}

func TestRegistryWithSwitches(t *testing.T) {
	d1 := &Device{Address: 1}
	d2 := &Device{Address: 2, Capabilities: CapabilityDescriptor{Switches: &Switches{Players: 1, SwitchesPerPlayer: 8}}}

	r := NewRegistry([]*Device{d1, d2})
	withSwitches := r.WithSwitches()

	require.Len(t, withSwitches, 1)
	assert.Equal(t, byte(2), withSwitches[0].Address)
}
