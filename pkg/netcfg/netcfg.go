// Package netcfg assigns addresses on the P2P group interface. The group
// owner serves DHCP, a client requests a lease. The DHCP implementation
// itself is external; Configurator only starts and stops it.
package netcfg

import (
	"errors"
	"net/netip"
)

// Group owner addressing.
var (
	ServerAddress = netip.MustParseAddr("192.168.49.1")
	RangeStart    = netip.MustParseAddr("192.168.49.2")
	RangeEnd      = netip.MustParseAddr("192.168.49.254")
)

// PrefixLen is the group subnet prefix length.
const PrefixLen = 24

var (
	ErrCommandFailed = errors.New("netcfg: command failed")
	ErrNoServer      = errors.New("netcfg: dhcp finished without server address")
	ErrClientRunning = errors.New("netcfg: dhcp client already running")
	ErrEmptyCommand  = errors.New("netcfg: empty command")
)

// Result is the outcome of a DHCP client session.
type Result struct {
	Interface string

	// Server is the DHCP server address, which is the group owner.
	Server netip.Addr

	Err error
}

// Configurator manages interface state and DHCP for the group.
type Configurator interface {
	SetInterfaceUp(iface string) error
	SetInterfaceDown(iface string) error
	ClearAddresses(iface string) error

	StartDHCPServer(iface string) error
	StopDHCPServer(iface string) error

	// StartDHCPClient begins lease acquisition and returns at once. report
	// is called exactly once, from another goroutine, unless the client is
	// stopped first.
	StartDHCPClient(iface string, report func(Result)) error
	StopDHCPClient(iface string) error
}
