package p2p

import (
	"net/netip"
	"sort"
)

// Group is an active peer-to-peer group.
type Group struct {
	// NetworkName is the group SSID.
	NetworkName string `json:"networkName,omitempty"`

	// Interface is the group network interface created by the adapter.
	Interface string `json:"interface"`

	Passphrase string `json:"passphrase,omitempty"`

	// IsOwner is true when this device owns the group.
	IsOwner bool `json:"isOwner"`

	// Owner is the group owner device.
	Owner Device `json:"owner"`

	// NetworkID is the persistent network id, or -1.
	NetworkID int `json:"networkId"`

	clients map[string]Device
}

// AddClient adds addr to the client set.
func (g *Group) AddClient(addr string) {
	if g.clients == nil {
		g.clients = make(map[string]Device)
	}
	g.clients[addr] = Device{Address: addr, Status: StatusConnected}
}

// RemoveClient removes addr from the client set and reports whether it
// was present.
func (g *Group) RemoveClient(addr string) bool {
	if _, ok := g.clients[addr]; !ok {
		return false
	}
	delete(g.clients, addr)
	return true
}

// IsClientListEmpty reports whether no clients are attached.
func (g *Group) IsClientListEmpty() bool {
	return len(g.clients) == 0
}

// Contains reports whether addr is the owner or a client of the group.
func (g *Group) Contains(addr string) bool {
	if addr == "" {
		return false
	}
	if g.Owner.Address == addr {
		return true
	}
	_, ok := g.clients[addr]
	return ok
}

// Clients returns the client devices ordered by address.
func (g *Group) Clients() []Device {
	out := make([]Device, 0, len(g.clients))
	for _, d := range g.clients {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Clone returns a deep copy, or nil.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	cp := *g
	cp.clients = make(map[string]Device, len(g.clients))
	for k, v := range g.clients {
		cp.clients[k] = v
	}
	return &cp
}

// ConnectionInfo is the derived connection summary published to
// applications once a group is usable.
type ConnectionInfo struct {
	GroupFormed  bool `json:"groupFormed"`
	IsGroupOwner bool `json:"isGroupOwner"`

	// GroupOwnerAddress is the owner's IP address on the group network.
	GroupOwnerAddress netip.Addr `json:"groupOwnerAddress"`
}

// String returns a short human-readable form.
func (i ConnectionInfo) String() string {
	if !i.GroupFormed {
		return "not formed"
	}
	role := "client"
	if i.IsGroupOwner {
		role = "owner"
	}
	owner := "unknown"
	if i.GroupOwnerAddress.IsValid() {
		owner = i.GroupOwnerAddress.String()
	}
	return "formed role=" + role + " owner=" + owner
}
