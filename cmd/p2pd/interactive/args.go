package interactive

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/p2pcoord/p2pcoord-go/pkg/nsd"
	"github.com/p2pcoord/p2pcoord-go/pkg/p2p"
)

var errUsage = errors.New("usage")

// parseConnect reads "<addr> [pbc|display [pin]|keypad <pin>] [intent <0-15>]".
func parseConnect(args []string) (*p2p.Config, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: connect <addr> [pbc|display [pin]|keypad <pin>] [intent <n>]", errUsage)
	}
	addr, err := p2p.NormalizeAddress(args[0])
	if err != nil {
		return nil, err
	}
	cfg := p2p.NewConfig(addr)

	rest := args[1:]
	for len(rest) > 0 {
		switch strings.ToLower(rest[0]) {
		case "pbc":
			cfg.Wps = p2p.WpsInfo{Setup: p2p.WpsPBC}
			rest = rest[1:]
		case "display":
			cfg.Wps = p2p.WpsInfo{Setup: p2p.WpsDisplay}
			rest = rest[1:]
			if len(rest) > 0 && isPin(rest[0]) {
				cfg.Wps.PIN = rest[0]
				rest = rest[1:]
			}
		case "keypad":
			if len(rest) < 2 || !isPin(rest[1]) {
				return nil, fmt.Errorf("%w: keypad needs a numeric pin", errUsage)
			}
			cfg.Wps = p2p.WpsInfo{Setup: p2p.WpsKeypad, PIN: rest[1]}
			rest = rest[2:]
		case "intent":
			if len(rest) < 2 {
				return nil, fmt.Errorf("%w: intent <0-15>", errUsage)
			}
			n, err := strconv.Atoi(rest[1])
			if err != nil || n < 0 || n > 15 {
				return nil, fmt.Errorf("invalid group owner intent: %s", rest[1])
			}
			cfg.GroupOwnerIntent = n
			rest = rest[2:]
		default:
			return nil, fmt.Errorf("unknown connect option: %s", rest[0])
		}
	}
	return cfg, nil
}

func isPin(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

// parseServiceInfo reads "bonjour <instance> <type> [key=value...]" or
// "upnp <uuid> <device-urn> [service-urn...]".
func parseServiceInfo(args []string) (*nsd.ServiceInfo, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("%w: service add bonjour <instance> <type> [k=v...] | upnp <uuid> <device> [service...]", errUsage)
	}
	switch strings.ToLower(args[0]) {
	case "bonjour":
		txt := make(map[string]string)
		for _, kv := range args[3:] {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || k == "" {
				return nil, fmt.Errorf("invalid txt entry: %s", kv)
			}
			txt[k] = v
		}
		return nsd.NewBonjourServiceInfo(args[1], args[2], txt)
	case "upnp":
		return nsd.NewUPnPServiceInfo(args[1], args[2], args[3:])
	default:
		return nil, fmt.Errorf("unknown protocol: %s", args[0])
	}
}

// parseServiceRequest reads "all", "bonjour [type [instance]]" or
// "upnp [search-target]".
func parseServiceRequest(args []string) (*nsd.ServiceRequest, error) {
	if len(args) == 0 {
		return nsd.NewAllServicesRequest(), nil
	}
	switch strings.ToLower(args[0]) {
	case "all":
		return nsd.NewAllServicesRequest(), nil
	case "bonjour":
		var serviceType, instance string
		if len(args) > 1 {
			serviceType = args[1]
		}
		if len(args) > 2 {
			instance = args[2]
		}
		return nsd.NewBonjourRequest(instance, serviceType)
	case "upnp":
		var st string
		if len(args) > 1 {
			st = args[1]
		}
		return nsd.NewUPnPRequest(st), nil
	default:
		return nil, fmt.Errorf("unknown protocol: %s", args[0])
	}
}

// describeResponse renders a service discovery response on one line.
func describeResponse(r *nsd.ServiceResponse) string {
	from := r.Device.Address
	if r.Device.Name != "" {
		from = r.Device.Name + " [" + r.Device.Address + "]"
	}
	if r.Status != nsd.StatusSuccess {
		return fmt.Sprintf("%s %s: %s", from, r.Protocol, r.Status)
	}
	switch r.Protocol {
	case nsd.ProtocolBonjour:
		rec, err := r.Bonjour()
		if err != nil {
			return fmt.Sprintf("%s bonjour: %v", from, err)
		}
		if rec.Instance != "" {
			return fmt.Sprintf("%s bonjour: %s.%s", from, rec.Instance, rec.Name)
		}
		return fmt.Sprintf("%s bonjour: %s txt=%v", from, rec.Name, rec.TXT)
	case nsd.ProtocolUPnP:
		_, usns, err := r.UPnP()
		if err != nil {
			return fmt.Sprintf("%s upnp: %v", from, err)
		}
		return fmt.Sprintf("%s upnp: %s", from, strings.Join(usns, ", "))
	default:
		return fmt.Sprintf("%s %s: %d bytes", from, r.Protocol, len(r.Data))
	}
}
