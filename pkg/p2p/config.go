package p2p

// WpsSetup is a WPS provisioning method.
type WpsSetup uint8

const (
	// WpsPBC is push-button configuration.
	WpsPBC WpsSetup = iota
	// WpsDisplay means this device displays a PIN for the peer to enter.
	WpsDisplay
	// WpsKeypad means the PIN shown by the peer is entered on this device.
	WpsKeypad
	// WpsLabel means a fixed PIN printed on the device.
	WpsLabel
	// WpsInvalid marks an unset method.
	WpsInvalid
)

// String returns the method name.
func (w WpsSetup) String() string {
	switch w {
	case WpsPBC:
		return "PBC"
	case WpsDisplay:
		return "DISPLAY"
	case WpsKeypad:
		return "KEYPAD"
	case WpsLabel:
		return "LABEL"
	case WpsInvalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}

// WpsInfo is a provisioning method with its PIN, if any.
type WpsInfo struct {
	Setup WpsSetup `json:"setup"`
	PIN   string   `json:"pin,omitempty"`
}

// Config describes a connection intent toward one peer.
type Config struct {
	// DeviceAddress is the target peer.
	DeviceAddress string `json:"deviceAddress"`

	Wps WpsInfo `json:"wps"`

	// GroupOwnerIntent is 0..15, or -1 to let the adapter choose.
	GroupOwnerIntent int `json:"groupOwnerIntent"`
}

// NewConfig returns a push-button config for addr with automatic intent.
func NewConfig(addr string) *Config {
	return &Config{
		DeviceAddress:    addr,
		Wps:              WpsInfo{Setup: WpsPBC},
		GroupOwnerIntent: -1,
	}
}

// Clone returns a deep copy, or nil.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// WpsForPeer picks the provisioning method for an invitation from peer,
// preferring push-button, then keypad, then display. Push-button is used
// when the peer is unknown or advertises none of them.
func WpsForPeer(peer *Device) WpsSetup {
	switch {
	case peer == nil:
		return WpsPBC
	case peer.WpsPbcSupported():
		return WpsPBC
	case peer.WpsKeypadSupported():
		return WpsKeypad
	case peer.WpsDisplaySupported():
		return WpsDisplay
	default:
		return WpsPBC
	}
}
