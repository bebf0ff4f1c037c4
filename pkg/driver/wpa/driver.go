// Package wpa implements driver.Driver on top of the wpa_supplicant
// control interface.
//
// Two sockets are used: one for request/reply commands and one attached
// for unsolicited events. Commands for a group interface other than the
// configured one are prefixed with IFNAME=, which requires the global
// control interface.
package wpa

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/p2pcoord/p2pcoord-go/pkg/driver"
	plog "github.com/p2pcoord/p2pcoord-go/pkg/log"
	"github.com/p2pcoord/p2pcoord-go/pkg/nsd"
	"github.com/p2pcoord/p2pcoord-go/pkg/p2p"
)

// defaultGroupOwnerIntent is used when a config leaves the intent to the
// adapter.
const defaultGroupOwnerIntent = 7

// Config configures the driver.
type Config struct {
	// CtrlPath is the control socket, e.g. /var/run/wpa_supplicant/p2p0.
	CtrlPath string

	// Interface is the P2P device interface the socket belongs to.
	Interface string

	// Logger is the operational logger. May be nil.
	Logger *slog.Logger

	// ProtocolLogger captures raw control traffic. May be nil.
	ProtocolLogger plog.Logger
}

// Dialer opens the command and event connections.
type Dialer func() (Transport, EventSource, error)

// Driver is a wpa_supplicant backed driver.Driver.
type Driver struct {
	cfg  Config
	dial Dialer

	mu  sync.Mutex
	cmd Transport
	mon EventSource
}

// New creates a driver for cfg.
func New(cfg Config) *Driver {
	d := &Driver{cfg: cfg}
	d.dial = d.dialSockets
	return d
}

// NewWithDialer creates a driver that obtains its connections from dial.
func NewWithDialer(cfg Config, dial Dialer) *Driver {
	return &Driver{cfg: cfg, dial: dial}
}

func (d *Driver) dialSockets() (Transport, EventSource, error) {
	cmd, err := Dial(d.cfg.CtrlPath, d.cfg.ProtocolLogger)
	if err != nil {
		return nil, nil, err
	}
	mon, err := Dial(d.cfg.CtrlPath, d.cfg.ProtocolLogger)
	if err != nil {
		cmd.Close()
		return nil, nil, err
	}
	if err := mon.Attach(); err != nil {
		cmd.Close()
		mon.Close()
		return nil, nil, err
	}
	return cmd, mon, nil
}

// StartMonitoring connects in the background and streams events to sink.
func (d *Driver) StartMonitoring(sink driver.EventSink) error {
	if sink == nil {
		return errors.New("nil event sink")
	}
	go d.monitor(sink)
	return nil
}

func (d *Driver) monitor(sink driver.EventSink) {
	cmd, mon, err := d.dial()
	if err != nil {
		d.log("control connect failed", "path", d.cfg.CtrlPath, "error", err)
		sink(driver.Event{Type: driver.EventConnectFailed})
		return
	}

	d.mu.Lock()
	d.cmd, d.mon = cmd, mon
	d.mu.Unlock()
	sink(driver.Event{Type: driver.EventConnected})

	for {
		line, err := mon.ReadEvent()
		if err != nil {
			d.log("event monitor stopped", "error", err)
			break
		}
		ev, ok := ParseEvent(line)
		if !ok {
			continue
		}
		if ev.Type == driver.EventDisconnected {
			break
		}
		sink(ev)
	}

	d.mu.Lock()
	if d.mon == mon {
		d.cmd, d.mon = nil, nil
	}
	d.mu.Unlock()
	cmd.Close()
	mon.Close()
	sink(driver.Event{Type: driver.EventDisconnected})
}

// CloseConnection closes both sockets; the monitor then reports
// EventDisconnected.
func (d *Driver) CloseConnection() error {
	d.mu.Lock()
	mon := d.mon
	d.mu.Unlock()

	if mon == nil {
		return driver.ErrNotConnected
	}
	return mon.Close()
}

// request sends cmd, optionally scoped to iface, and returns the reply.
func (d *Driver) request(iface, cmd string) (string, error) {
	d.mu.Lock()
	t := d.cmd
	d.mu.Unlock()
	if t == nil {
		return "", driver.ErrNotConnected
	}

	if iface != "" && iface != d.cfg.Interface {
		cmd = "IFNAME=" + iface + " " + cmd
	}
	reply, err := t.Request(cmd)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(reply, "FAIL") || strings.HasPrefix(reply, "UNKNOWN COMMAND") {
		return "", fmt.Errorf("%w: %s: %s", driver.ErrCommandFailed, cmd, reply)
	}
	return reply, nil
}

// boolCommand expects an OK reply.
func (d *Driver) boolCommand(iface, cmd string) error {
	reply, err := d.request(iface, cmd)
	if err != nil {
		return err
	}
	if reply != "OK" {
		return fmt.Errorf("%w: %s: %s", driver.ErrCommandFailed, cmd, reply)
	}
	return nil
}

func (d *Driver) Find(timeout time.Duration) error {
	if timeout <= 0 {
		return d.boolCommand("", "P2P_FIND")
	}
	return d.boolCommand("", fmt.Sprintf("P2P_FIND %d", int(timeout/time.Second)))
}

func (d *Driver) StopFind() error { return d.boolCommand("", "P2P_STOP_FIND") }
func (d *Driver) Flush() error    { return d.boolCommand("", "P2P_FLUSH") }
func (d *Driver) GroupAdd() error { return d.boolCommand("", "P2P_GROUP_ADD") }

func (d *Driver) GroupRemove(iface string) error {
	if iface == "" {
		return fmt.Errorf("%w: group remove without interface", driver.ErrCommandFailed)
	}
	return d.boolCommand("", "P2P_GROUP_REMOVE "+iface)
}

func (d *Driver) Connect(cfg *p2p.Config, join bool) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("%w: nil config", driver.ErrCommandFailed)
	}
	args := []string{cfg.DeviceAddress}
	switch cfg.Wps.Setup {
	case p2p.WpsPBC:
		args = append(args, "pbc")
	case p2p.WpsDisplay:
		if cfg.Wps.PIN != "" {
			args = append(args, cfg.Wps.PIN, "display")
			break
		}
		// The supplicant generates the PIN and returns it.
		args = append(args, "pin")
	case p2p.WpsKeypad:
		args = append(args, cfg.Wps.PIN, "keypad")
	case p2p.WpsLabel:
		args = append(args, cfg.Wps.PIN, "label")
	}
	if join {
		args = append(args, "join")
	} else {
		intent := cfg.GroupOwnerIntent
		if intent < 0 || intent > 15 {
			intent = defaultGroupOwnerIntent
		}
		args = append(args, fmt.Sprintf("go_intent=%d", intent))
	}

	reply, err := d.request("", "P2P_CONNECT "+strings.Join(args, " "))
	if err != nil {
		return "", err
	}
	if cfg.Wps.Setup == p2p.WpsDisplay && cfg.Wps.PIN == "" && reply != "OK" {
		return reply, nil
	}
	return "", nil
}

func (d *Driver) CancelConnect() error { return d.boolCommand("", "P2P_CANCEL") }

func (d *Driver) Reinvoke(networkID int, addr string) error {
	return d.boolCommand("", fmt.Sprintf("P2P_INVITE persistent=%d peer=%s", networkID, addr))
}

func (d *Driver) Invite(group *p2p.Group, addr string) error {
	if group == nil {
		return d.boolCommand("", "P2P_INVITE peer="+addr)
	}
	return d.boolCommand("", fmt.Sprintf("P2P_INVITE group=%s peer=%s go_dev_addr=%s",
		group.Interface, addr, group.Owner.Address))
}

func (d *Driver) ProvisionDiscovery(cfg *p2p.Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", driver.ErrCommandFailed)
	}
	// The method names the peer's role: when we display, the peer uses
	// its keypad and vice versa.
	var method string
	switch cfg.Wps.Setup {
	case p2p.WpsPBC:
		method = "pbc"
	case p2p.WpsDisplay:
		method = "keypad"
	case p2p.WpsKeypad:
		method = "display"
	default:
		return fmt.Errorf("%w: provision discovery with %s", driver.ErrCommandFailed, cfg.Wps.Setup)
	}
	return d.boolCommand("", "P2P_PROV_DISC "+cfg.DeviceAddress+" "+method)
}

func (d *Driver) SetGroupIdle(iface string, idle time.Duration) error {
	return d.boolCommand(iface, fmt.Sprintf("SET p2p_group_idle %d", int(idle/time.Second)))
}

func (d *Driver) SetPowerSave(iface string, enabled bool) error {
	return d.boolCommand(iface, "P2P_SET ps "+boolArg(enabled))
}

func (d *Driver) StartWpsPbc(iface, bssid string) error {
	if bssid == "" {
		return d.boolCommand(iface, "WPS_PBC")
	}
	return d.boolCommand(iface, "WPS_PBC "+bssid)
}

func (d *Driver) StartWpsPinDisplay(iface string) (string, error) {
	return d.request(iface, "WPS_PIN any")
}

func (d *Driver) StartWpsPinKeypad(iface, pin string) error {
	_, err := d.request(iface, "WPS_PIN any "+pin)
	return err
}

func (d *Driver) ServiceAdd(info *nsd.ServiceInfo) error {
	for _, e := range info.Entries {
		if err := d.boolCommand("", "P2P_SERVICE_ADD "+e); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) ServiceDel(info *nsd.ServiceInfo) error {
	for _, e := range info.Entries {
		parts := strings.Fields(e)
		if len(parts) < 2 {
			return fmt.Errorf("%w: malformed service entry %q", driver.ErrCommandFailed, e)
		}
		var cmd string
		switch parts[0] {
		case "upnp":
			cmd = "P2P_SERVICE_DEL " + e
		case "bonjour":
			// Bonjour records are keyed by query only.
			cmd = "P2P_SERVICE_DEL bonjour " + parts[1]
		default:
			return fmt.Errorf("%w: unsupported service protocol %q", driver.ErrCommandFailed, parts[0])
		}
		if err := d.boolCommand("", cmd); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) ServiceFlush() error { return d.boolCommand("", "P2P_SERVICE_FLUSH") }

func (d *Driver) ServiceDiscoveryRequest(addr, query string) (string, error) {
	return d.request("", "P2P_SERV_DISC_REQ "+addr+" "+query)
}

func (d *Driver) ServiceDiscoveryCancel(id string) error {
	return d.boolCommand("", "P2P_SERV_DISC_CANCEL_REQ "+id)
}

func (d *Driver) SetDeviceName(name string) error {
	return d.boolCommand("", "SET device_name "+name)
}

func (d *Driver) SetDeviceType(devType string) error {
	return d.boolCommand("", "SET device_type "+devType)
}

func (d *Driver) SetSsidPostfix(postfix string) error {
	return d.boolCommand("", "P2P_SET ssid_postfix "+postfix)
}

func (d *Driver) SetConfigMethods(methods string) error {
	return d.boolCommand("", "SET config_methods "+methods)
}

func (d *Driver) SetConcurrencyPriority(priority string) error {
	return d.boolCommand("", "P2P_SET conc_pref "+priority)
}

func (d *Driver) SetPersistentReconnect(enabled bool) error {
	return d.boolCommand("", "SET persistent_reconnect "+boolArg(enabled))
}

func (d *Driver) GroupCapability(addr string) (uint8, error) {
	reply, err := d.request("", "P2P_PEER "+addr)
	if err != nil {
		return 0, err
	}
	v, ok := lineValue(reply, "group_capab")
	if !ok {
		return 0, fmt.Errorf("%w: no group_capab for %s", driver.ErrCommandFailed, addr)
	}
	return uint8(parseHex(v)), nil
}

func (d *Driver) DeviceAddress() (string, error) {
	reply, err := d.request("", "STATUS")
	if err != nil {
		return "", err
	}
	v, ok := lineValue(reply, "p2p_device_address")
	if !ok {
		return "", fmt.Errorf("%w: no p2p_device_address in status", driver.ErrCommandFailed)
	}
	return strings.ToLower(v), nil
}

func (d *Driver) log(msg string, args ...any) {
	if d.cfg.Logger != nil {
		d.cfg.Logger.Info(msg, args...)
	}
}

func boolArg(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Compile-time interface satisfaction check.
var _ driver.Driver = (*Driver)(nil)
