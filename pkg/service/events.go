package service

import "github.com/p2pcoord/p2pcoord-go/pkg/p2p"

// EventType identifies a notification to observers.
type EventType uint8

const (
	// EventStateChanged - P2P was enabled or disabled.
	EventStateChanged EventType = iota

	// EventPeersChanged - the peer registry changed.
	EventPeersChanged

	// EventDiscoveryChanged - peer discovery started or stopped.
	EventDiscoveryChanged

	// EventConnectionChanged - connectivity or the connection summary
	// changed.
	EventConnectionChanged

	// EventThisDeviceChanged - this device's name or status changed.
	EventThisDeviceChanged

	// EventConnectionEstablished - a group formed and its connection
	// summary is published. Follows the matching EventConnectionChanged.
	EventConnectionEstablished
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventStateChanged:
		return "STATE_CHANGED"
	case EventPeersChanged:
		return "PEERS_CHANGED"
	case EventDiscoveryChanged:
		return "DISCOVERY_CHANGED"
	case EventConnectionChanged:
		return "CONNECTION_CHANGED"
	case EventThisDeviceChanged:
		return "THIS_DEVICE_CHANGED"
	case EventConnectionEstablished:
		return "CONNECTION_ESTABLISHED"
	default:
		return "UNKNOWN"
	}
}

// Event represents a service event.
type Event struct {
	Type EventType

	// Enabled is set for EventStateChanged.
	Enabled bool

	// Discovering is set for EventDiscoveryChanged.
	Discovering bool

	// Connected and Info are set for connection events.
	Connected bool
	Info      p2p.ConnectionInfo

	// Group is the formed group for EventConnectionEstablished.
	Group *p2p.Group

	// Device is this device for EventThisDeviceChanged.
	Device p2p.Device
}

// EventHandler handles service events. Handlers run on the event loop
// and must not block: Submit is fine, Do deadlocks.
type EventHandler func(Event)
