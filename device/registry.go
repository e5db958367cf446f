package device

import "fmt"

// Registry holds the enumerated set of devices. It is populated only by the
// enumerator during startup and is read-only thereafter — matching §5's
// shared-resource policy, it is never mutated by the poller or any
// consumer.
type Registry struct {
	byAddress map[byte]*Device
	addresses []byte
}

// NewRegistry builds a Registry from the enumerated devices, in address
// order. The enumerator assigns addresses densely (1..N), but it omits a
// device that fails identification, so the registered addresses can have
// gaps; the registry itself does not check density.
func NewRegistry(devices []*Device) *Registry {
	r := &Registry{byAddress: make(map[byte]*Device, len(devices))}
	for _, d := range devices {
		r.byAddress[d.Address] = d
		r.addresses = append(r.addresses, d.Address)
	}
	return r
}

// Get looks up a device by its assigned address.
func (r *Registry) Get(addr byte) (*Device, bool) {
	d, ok := r.byAddress[addr]
	return d, ok
}

// MustGet looks up a device by address, returning an error if absent.
func (r *Registry) MustGet(addr byte) (*Device, error) {
	d, ok := r.byAddress[addr]
	if !ok {
		return nil, fmt.Errorf("device: no device at address %d", addr)
	}
	return d, nil
}

// Addresses returns the enumerated addresses in ascending order.
func (r *Registry) Addresses() []byte {
	out := make([]byte, len(r.addresses))
	copy(out, r.addresses)
	return out
}

// Devices returns all enumerated devices in address order.
func (r *Registry) Devices() []*Device {
	out := make([]*Device, 0, len(r.addresses))
	for _, addr := range r.addresses {
		out = append(out, r.byAddress[addr])
	}
	return out
}

// Len returns the number of enumerated devices.
func (r *Registry) Len() int {
	return len(r.addresses)
}

// WithSwitches returns the subset of devices that declared a switches
// capability, the set the poller drives.
func (r *Registry) WithSwitches() []*Device {
	var out []*Device
	for _, addr := range r.addresses {
		d := r.byAddress[addr]
		if d.Capabilities.HasSwitches() {
			out = append(out, d)
		}
	}
	return out
}
