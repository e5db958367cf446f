//go:build !linux && !wasm

package serial

import "fmt"

// Sense is unsupported on non-Linux hosts: there is no portable way to read
// modem status bits through the standard library. Callers on these
// platforms must pass EnumerateOptions.AssumeDevices instead of relying on
// sense-line enumeration.
func (l *NativeLink) Sense() (bool, error) {
	return false, fmt.Errorf("serial: Sense unsupported on this platform")
}
