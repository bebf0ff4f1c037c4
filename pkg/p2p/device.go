package p2p

import (
	"errors"
	"strings"
)

// Device errors.
var (
	ErrEmptyAddress = errors.New("device address is empty")
	ErrBadAddress   = errors.New("malformed device address")
)

// DeviceStatus is the discovery/connection status of a peer.
type DeviceStatus uint8

const (
	// StatusConnected indicates the peer is a member of our group.
	StatusConnected DeviceStatus = iota
	// StatusInvited indicates a connection to the peer is being negotiated.
	StatusInvited
	// StatusFailed indicates the adapter reported a failed attempt.
	StatusFailed
	// StatusAvailable indicates the peer was discovered and is idle.
	StatusAvailable
	// StatusUnavailable indicates the peer is known but not reachable.
	StatusUnavailable
)

// String returns the status name.
func (s DeviceStatus) String() string {
	switch s {
	case StatusConnected:
		return "CONNECTED"
	case StatusInvited:
		return "INVITED"
	case StatusFailed:
		return "FAILED"
	case StatusAvailable:
		return "AVAILABLE"
	case StatusUnavailable:
		return "UNAVAILABLE"
	default:
		return "UNKNOWN"
	}
}

// ConfigMethod is a bitmap of WPS configuration methods a device supports.
type ConfigMethod uint16

// WPS configuration method bits.
const (
	ConfigMethodDisplay    ConfigMethod = 0x0008
	ConfigMethodPushButton ConfigMethod = 0x0080
	ConfigMethodKeypad     ConfigMethod = 0x0100
)

// Group capability bits.
const (
	GroupCapabOwner            uint8 = 0x01
	GroupCapabPersistentGroup  uint8 = 0x02
	GroupCapabGroupLimit       uint8 = 0x04
	GroupCapabIntraBSS         uint8 = 0x08
	GroupCapabCrossConnect     uint8 = 0x10
	GroupCapabPersistentReconn uint8 = 0x20
	GroupCapabGroupFormation   uint8 = 0x40
)

// Device is a peer (or this device) as seen by the coordinator.
type Device struct {
	// Address is the P2P device address, lower-case colon-separated hex.
	Address string `json:"address"`

	// Name is the advertised device name.
	Name string `json:"name,omitempty"`

	PrimaryType   string `json:"primaryType,omitempty"`
	SecondaryType string `json:"secondaryType,omitempty"`

	// ConfigMethods lists the provisioning methods the device supports.
	ConfigMethods ConfigMethod `json:"configMethods,omitempty"`

	DeviceCapability uint8 `json:"deviceCapability,omitempty"`
	GroupCapability  uint8 `json:"groupCapability,omitempty"`

	Status DeviceStatus `json:"status"`
}

// WpsPbcSupported reports whether push-button provisioning is supported.
func (d *Device) WpsPbcSupported() bool {
	return d.ConfigMethods&ConfigMethodPushButton != 0
}

// WpsKeypadSupported reports whether PIN entry on the device is supported.
func (d *Device) WpsKeypadSupported() bool {
	return d.ConfigMethods&ConfigMethodKeypad != 0
}

// WpsDisplaySupported reports whether the device can display a PIN.
func (d *Device) WpsDisplaySupported() bool {
	return d.ConfigMethods&ConfigMethodDisplay != 0
}

// IsGroupOwner reports whether the device currently owns a group.
func (d *Device) IsGroupOwner() bool {
	return d.GroupCapability&GroupCapabOwner != 0
}

// update merges the discovery fields of other into d. Status is kept.
func (d *Device) update(other *Device) {
	d.Name = other.Name
	d.PrimaryType = other.PrimaryType
	d.SecondaryType = other.SecondaryType
	d.ConfigMethods = other.ConfigMethods
	d.DeviceCapability = other.DeviceCapability
	d.GroupCapability = other.GroupCapability
}

// String returns a short human-readable form.
func (d Device) String() string {
	if d.Name == "" {
		return d.Address + " (" + d.Status.String() + ")"
	}
	return d.Name + " [" + d.Address + "] (" + d.Status.String() + ")"
}

// NormalizeAddress lower-cases a MAC-style address and checks its shape.
func NormalizeAddress(addr string) (string, error) {
	if addr == "" {
		return "", ErrEmptyAddress
	}
	addr = strings.ToLower(addr)
	parts := strings.Split(addr, ":")
	if len(parts) != 6 {
		return "", ErrBadAddress
	}
	for _, p := range parts {
		if len(p) != 2 || !isHex(p[0]) || !isHex(p[1]) {
			return "", ErrBadAddress
		}
	}
	return addr, nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}
