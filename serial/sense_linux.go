//go:build linux

package serial

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// modemCarrierDetect is TIOCM_CAR (aka TIOCM_CD): the carrier-detect modem
// status bit. USB-RS485 adapters commonly wire the JVS daisy-chain sense
// line to this bit.
const modemCarrierDetect = unix.TIOCM_CAR

// Sense reports the JVS daisy-chain sense line: asserted (true) while there
// is at least one more unaddressed device downstream on the chain.
func (l *NativeLink) Sense() (bool, error) {
	bits, err := unix.IoctlGetInt(int(l.status.Fd()), unix.TIOCMGET)
	if err != nil {
		return false, fmt.Errorf("serial: TIOCMGET: %w", err)
	}
	return bits&modemCarrierDetect != 0, nil
}
