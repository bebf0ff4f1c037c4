package wpa

import (
	"strconv"
	"strings"

	"github.com/p2pcoord/p2pcoord-go/pkg/driver"
	"github.com/p2pcoord/p2pcoord-go/pkg/nsd"
	"github.com/p2pcoord/p2pcoord-go/pkg/p2p"
)

// Device password ids from the WPS specification.
const (
	devPasswordDefault          = 0x00
	devPasswordUserSpecified    = 0x01
	devPasswordPushButton       = 0x04
	devPasswordRegistrarSpecify = 0x05
)

// ParseEvent converts one control interface event line. It reports
// false for lines that carry no coordinator event.
func ParseEvent(line string) (driver.Event, bool) {
	line = stripPrefixes(line)
	tokens, fields := splitEvent(line)
	if len(tokens) == 0 {
		return driver.Event{}, false
	}

	switch tokens[0] {
	case "CTRL-EVENT-TERMINATING":
		return driver.Event{Type: driver.EventDisconnected}, true

	case "P2P-DEVICE-FOUND":
		return driver.Event{Type: driver.EventDeviceFound, Device: parseDevice(tokens, fields)}, true

	case "P2P-DEVICE-LOST":
		return driver.Event{Type: driver.EventDeviceLost, Device: parseDevice(tokens, fields)}, true

	case "P2P-FIND-STOPPED":
		return driver.Event{Type: driver.EventFindStopped}, true

	case "P2P-GO-NEG-REQUEST":
		if len(tokens) < 2 {
			return driver.Event{}, false
		}
		cfg := p2p.NewConfig(strings.ToLower(tokens[1]))
		id, _ := strconv.Atoi(fields["dev_passwd_id"])
		cfg.Wps.Setup = wpsFromPasswordID(id)
		return driver.Event{Type: driver.EventGoNegotiationRequest, Config: cfg}, true

	case "P2P-GO-NEG-SUCCESS":
		return driver.Event{Type: driver.EventGoNegotiationSuccess}, true

	case "P2P-GO-NEG-FAILURE":
		return driver.Event{Type: driver.EventGoNegotiationFailure, Status: status(fields)}, true

	case "P2P-GROUP-FORMATION-SUCCESS":
		return driver.Event{Type: driver.EventGroupFormationSuccess}, true

	case "P2P-GROUP-FORMATION-FAILURE":
		return driver.Event{Type: driver.EventGroupFormationFailure}, true

	case "P2P-GROUP-STARTED", "P2P-GROUP-REMOVED":
		if len(tokens) < 3 {
			return driver.Event{}, false
		}
		g := &p2p.Group{
			Interface:   tokens[1],
			IsOwner:     tokens[2] == "GO",
			NetworkName: fields["ssid"],
			Passphrase:  fields["passphrase"],
			Owner:       p2p.Device{Address: strings.ToLower(fields["go_dev_addr"])},
			NetworkID:   -1,
		}
		typ := driver.EventGroupStarted
		if tokens[0] == "P2P-GROUP-REMOVED" {
			typ = driver.EventGroupRemoved
		}
		return driver.Event{Type: typ, Group: g}, true

	case "P2P-INVITATION-RECEIVED":
		owner := strings.ToLower(fields["go_dev_addr"])
		if owner == "" {
			owner = strings.ToLower(fields["sa"])
		}
		g := &p2p.Group{Owner: p2p.Device{Address: owner}, NetworkID: -1}
		if v, ok := fields["persistent"]; ok {
			if id, err := strconv.Atoi(v); err == nil {
				g.NetworkID = id
			}
		}
		return driver.Event{Type: driver.EventInvitationReceived, Group: g, Config: p2p.NewConfig(owner)}, true

	case "P2P-INVITATION-RESULT":
		return driver.Event{Type: driver.EventInvitationResult, Status: status(fields)}, true

	case "P2P-PROV-DISC-PBC-REQ":
		return provDisc(driver.EventProvDiscPbcRequest, tokens, fields)
	case "P2P-PROV-DISC-PBC-RESP":
		return provDisc(driver.EventProvDiscPbcResponse, tokens, fields)
	case "P2P-PROV-DISC-ENTER-PIN":
		return provDisc(driver.EventProvDiscEnterPin, tokens, fields)
	case "P2P-PROV-DISC-SHOW-PIN":
		ev, ok := provDisc(driver.EventProvDiscShowPin, tokens, fields)
		if ok && len(tokens) > 2 {
			ev.PIN = tokens[2]
		}
		return ev, ok

	case "P2P-SERV-DISC-RESP":
		if len(tokens) < 4 {
			return driver.Event{}, false
		}
		resps, err := nsd.ParseServiceResponses(strings.ToLower(tokens[1]), tokens[3])
		if err != nil && len(resps) == 0 {
			return driver.Event{}, false
		}
		return driver.Event{Type: driver.EventServiceDiscoveryResponse, Responses: resps}, true

	case "AP-STA-CONNECTED", "AP-STA-DISCONNECTED":
		addr := fields["p2p_dev_addr"]
		if addr == "" && len(tokens) > 1 {
			addr = tokens[1]
		}
		if addr == "" {
			return driver.Event{}, false
		}
		typ := driver.EventStaConnected
		if tokens[0] == "AP-STA-DISCONNECTED" {
			typ = driver.EventStaDisconnected
		}
		return driver.Event{Type: typ, Device: &p2p.Device{Address: strings.ToLower(addr)}}, true
	}
	return driver.Event{}, false
}

func parseDevice(tokens []string, fields map[string]string) *p2p.Device {
	addr := fields["p2p_dev_addr"]
	if addr == "" && len(tokens) > 1 {
		addr = tokens[1]
	}
	return &p2p.Device{
		Address:          strings.ToLower(addr),
		Name:             fields["name"],
		PrimaryType:      fields["pri_dev_type"],
		ConfigMethods:    p2p.ConfigMethod(parseHex(fields["config_methods"])),
		DeviceCapability: uint8(parseHex(fields["dev_capab"])),
		GroupCapability:  uint8(parseHex(fields["group_capab"])),
		Status:           p2p.StatusAvailable,
	}
}

func provDisc(typ driver.EventType, tokens []string, fields map[string]string) (driver.Event, bool) {
	if len(tokens) < 2 {
		return driver.Event{}, false
	}
	dev := parseDevice(tokens, fields)
	dev.Address = strings.ToLower(tokens[1])
	return driver.Event{Type: typ, Device: dev}, true
}

func wpsFromPasswordID(id int) p2p.WpsSetup {
	switch id {
	case devPasswordDefault:
		return p2p.WpsLabel
	case devPasswordUserSpecified:
		return p2p.WpsKeypad
	case devPasswordRegistrarSpecify:
		return p2p.WpsDisplay
	case devPasswordPushButton:
		return p2p.WpsPBC
	default:
		return p2p.WpsPBC
	}
}

func status(fields map[string]string) int {
	v, err := strconv.Atoi(fields["status"])
	if err != nil {
		return -1
	}
	return v
}
