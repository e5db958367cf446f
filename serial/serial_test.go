package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyUSB0")
	assert.Equal(t, "/dev/ttyUSB0", cfg.Device)
	assert.Equal(t, 115200, cfg.Baud)
}

func TestMockLinkReadWrite(t *testing.T) {
	link := NewMockLink([]byte{0xE0, 0x01}, 0)

	b, err := link.ReadByte(0)
	require.NoError(t, err)
	assert.Equal(t, byte(0xE0), b)

	b, err = link.ReadByte(0)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), b)

	_, err = link.ReadByte(0)
	assert.ErrorIs(t, err, ErrTimeout)

	require.NoError(t, link.WriteByte(0x42))
	assert.Equal(t, []byte{0x42}, link.Written)
}

func TestMockLinkSenseSequence(t *testing.T) {
	link := NewMockLink(nil, 2)

	high, err := link.Sense()
	require.NoError(t, err)
	assert.True(t, high)

	high, err = link.Sense()
	require.NoError(t, err)
	assert.True(t, high)

	high, err = link.Sense()
	require.NoError(t, err)
	assert.False(t, high)
}
