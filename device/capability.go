package device

import (
	"github.com/amken3d/jvs-host/protocol"
	"github.com/sirupsen/logrus"
)

// Capability tags, matching the on-wire 4-byte capability block records.
const (
	CapEnd       = 0x00
	CapSwitches  = 0x01
	CapCoins     = 0x02
	CapAnalogIn  = 0x03
	CapRotary    = 0x04
	CapKeypad    = 0x05
	CapLightgun  = 0x06
	CapGPI       = 0x07
	CapCard      = 0x10
	CapHopper    = 0x11
	CapGPO       = 0x12
	CapAnalogOut = 0x13
	CapDisplay   = 0x14
	CapBackup    = 0x15
)

// Switches describes CAP_PLAYERS (0x01).
type Switches struct {
	Players          int
	SwitchesPerPlayer int
}

// AnalogIn describes CAP_ANALOG_IN (0x03).
type AnalogIn struct {
	Channels       int
	EffectiveBits  int
}

// Lightgun describes CAP_LIGHTGUN (0x06).
type Lightgun struct {
	XBits    int
	YBits    int
	Channels int
}

// Display describes CAP_DISPLAY (0x14).
type Display struct {
	Columns      int
	Rows         int
	EncodingName string
}

// CapabilityDescriptor is the decoded capability block: a mapping from
// capability tag to tag-specific parameters.
type CapabilityDescriptor struct {
	Switches  *Switches
	Coins     *int // slots
	AnalogIn  *AnalogIn
	Rotary    *int // channels
	Keypad    bool
	Lightgun  *Lightgun
	GPI       *int // count, 16-bit high-byte-first
	Card      *int // slots
	Hopper    *int // channels
	GPO       *int // banks
	AnalogOut *int // channels
	Display   *Display
	Backup    bool
}

// DecodeCapabilities walks the capability bytes four at a time, per §4.5:
// stop at tag 0x00; skip (but still consume four bytes of) unknown tags to
// preserve forward compatibility; accept a block truncated short of a whole
// 4-byte record or missing its END tag, logging a warning, without reading
// past the end of data.
func DecodeCapabilities(data []byte) CapabilityDescriptor {
	var desc CapabilityDescriptor

	pos := 0
	for pos < len(data) {
		if data[pos] == CapEnd {
			return desc
		}
		if pos+4 > len(data) {
			logrus.WithField("offset", pos).Warn("jvs: capability block truncated, accepting partial record")
			return desc
		}

		tag := data[pos]
		p1, p2, p3 := data[pos+1], data[pos+2], data[pos+3]

		switch tag {
		case CapSwitches:
			desc.Switches = &Switches{Players: int(p1), SwitchesPerPlayer: int(p2)}
		case CapCoins:
			v := int(p1)
			desc.Coins = &v
		case CapAnalogIn:
			desc.AnalogIn = &AnalogIn{Channels: int(p1), EffectiveBits: int(p2)}
		case CapRotary:
			v := int(p1)
			desc.Rotary = &v
		case CapKeypad:
			desc.Keypad = true
		case CapLightgun:
			desc.Lightgun = &Lightgun{XBits: int(p1), YBits: int(p2), Channels: int(p3)}
		case CapGPI:
			v := (int(p1) << 8) | int(p2)
			desc.GPI = &v
		case CapCard:
			v := int(p1)
			desc.Card = &v
		case CapHopper:
			v := int(p1)
			desc.Hopper = &v
		case CapGPO:
			v := int(p1)
			desc.GPO = &v
		case CapAnalogOut:
			v := int(p1)
			desc.AnalogOut = &v
		case CapDisplay:
			desc.Display = &Display{Columns: int(p1), Rows: int(p2), EncodingName: protocol.EncodingName(p3)}
		case CapBackup:
			desc.Backup = true
		default:
			logrus.WithField("tag", tag).Debug("jvs: skipping unknown capability tag")
		}

		pos += 4
	}

	logrus.Warn("jvs: capability block ended without an END tag")
	return desc
}

// HasSwitches reports whether the descriptor declares a switches
// capability, used by the poller to decide which devices to poll.
func (c CapabilityDescriptor) HasSwitches() bool {
	return c.Switches != nil
}
