package p2p

import "sort"

// DeviceList is the address-keyed peer registry. It holds at most one
// entry per address.
type DeviceList struct {
	peers map[string]*Device
}

// NewDeviceList creates an empty registry.
func NewDeviceList() *DeviceList {
	return &DeviceList{peers: make(map[string]*Device)}
}

// Update adds the device or merges it into the existing entry for the
// same address. A newly added device keeps the status it carries; an
// existing entry keeps its own status. Devices without an address are
// ignored.
func (l *DeviceList) Update(d *Device) {
	if d == nil || d.Address == "" {
		return
	}
	if cur, ok := l.peers[d.Address]; ok {
		cur.update(d)
		return
	}
	cp := *d
	l.peers[d.Address] = &cp
}

// Get returns the entry for addr, or nil. The returned pointer aliases
// the registry entry.
func (l *DeviceList) Get(addr string) *Device {
	return l.peers[addr]
}

// Remove drops the entry for addr and reports whether it existed.
func (l *DeviceList) Remove(addr string) bool {
	if _, ok := l.peers[addr]; !ok {
		return false
	}
	delete(l.peers, addr)
	return true
}

// Clear empties the registry and reports whether anything was removed.
func (l *DeviceList) Clear() bool {
	if len(l.peers) == 0 {
		return false
	}
	clear(l.peers)
	return true
}

// UpdateGroupCapability records the group capability bitmap for addr.
func (l *DeviceList) UpdateGroupCapability(addr string, capab uint8) {
	if d, ok := l.peers[addr]; ok {
		d.GroupCapability = capab
	}
}

// UpdateStatus sets the status of addr if it is known.
func (l *DeviceList) UpdateStatus(addr string, status DeviceStatus) {
	if d, ok := l.peers[addr]; ok {
		d.Status = status
	}
}

// IsGroupOwner reports whether addr is known to own a group.
func (l *DeviceList) IsGroupOwner(addr string) bool {
	d, ok := l.peers[addr]
	return ok && d.IsGroupOwner()
}

// Len returns the number of peers.
func (l *DeviceList) Len() int {
	return len(l.peers)
}

// Devices returns a snapshot of all peers ordered by address.
func (l *DeviceList) Devices() []Device {
	out := make([]Device, 0, len(l.peers))
	for _, d := range l.peers {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}
