package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/p2pcoord/p2pcoord-go/pkg/driver"
	"github.com/p2pcoord/p2pcoord-go/pkg/netcfg"
	"github.com/p2pcoord/p2pcoord-go/pkg/nsd"
	"github.com/p2pcoord/p2pcoord-go/pkg/p2p"
)

const (
	testOwnAddress = "02:00:00:00:00:aa"
	testPeerA      = "02:00:00:00:00:01"
	testPeerB      = "02:00:00:00:00:02"
	testGroupIface = "p2p-p2p0-0"
)

// fakeDriver records adapter commands. Failures are injected per command
// name, the first word of the recorded line.
type fakeDriver struct {
	mu       sync.Mutex
	calls    []string
	fail     map[string]error
	capab    map[string]uint8
	sink     driver.EventSink
	connPin  string
	wpsPin   string
	nextSdID int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		fail:  make(map[string]error),
		capab: make(map[string]uint8),
	}
}

func (f *fakeDriver) record(format string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	line := fmt.Sprintf(format, args...)
	f.calls = append(f.calls, line)
	name, _, _ := strings.Cut(line, " ")
	return f.fail[name]
}

func (f *fakeDriver) failOn(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[name] = err
}

// commands returns the recorded lines and resets the record.
func (f *fakeDriver) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.calls
	f.calls = nil
	return out
}

func (f *fakeDriver) StartMonitoring(sink driver.EventSink) error {
	f.mu.Lock()
	f.sink = sink
	f.mu.Unlock()
	return f.record("monitor")
}

func (f *fakeDriver) CloseConnection() error { return f.record("close") }
func (f *fakeDriver) Find(timeout time.Duration) error {
	return f.record("find %s", timeout)
}
func (f *fakeDriver) StopFind() error { return f.record("stopfind") }
func (f *fakeDriver) Flush() error    { return f.record("flush") }
func (f *fakeDriver) GroupAdd() error { return f.record("groupadd") }
func (f *fakeDriver) GroupRemove(iface string) error {
	return f.record("groupremove %s", iface)
}

func (f *fakeDriver) Connect(cfg *p2p.Config, join bool) (string, error) {
	mode := cfg.Wps.Setup.String()
	if join {
		mode += " join"
	}
	if err := f.record("connect %s %s", cfg.DeviceAddress, mode); err != nil {
		return "", err
	}
	return f.connPin, nil
}

func (f *fakeDriver) CancelConnect() error { return f.record("cancel") }
func (f *fakeDriver) Reinvoke(networkID int, addr string) error {
	return f.record("reinvoke %d %s", networkID, addr)
}
func (f *fakeDriver) Invite(group *p2p.Group, addr string) error {
	return f.record("invite %s %s", group.Interface, addr)
}
func (f *fakeDriver) ProvisionDiscovery(cfg *p2p.Config) error {
	return f.record("provdisc %s %s", cfg.DeviceAddress, cfg.Wps.Setup)
}
func (f *fakeDriver) SetGroupIdle(iface string, idle time.Duration) error {
	return f.record("groupidle %s %s", iface, idle)
}
func (f *fakeDriver) SetPowerSave(iface string, enabled bool) error {
	return f.record("powersave %s %t", iface, enabled)
}
func (f *fakeDriver) StartWpsPbc(iface, bssid string) error {
	return f.record("wpspbc %s", iface)
}
func (f *fakeDriver) StartWpsPinDisplay(iface string) (string, error) {
	if err := f.record("wpsdisplay %s", iface); err != nil {
		return "", err
	}
	return f.wpsPin, nil
}
func (f *fakeDriver) StartWpsPinKeypad(iface, pin string) error {
	return f.record("wpskeypad %s %s", iface, pin)
}
func (f *fakeDriver) ServiceAdd(info *nsd.ServiceInfo) error {
	return f.record("serviceadd %s", info.Key())
}
func (f *fakeDriver) ServiceDel(info *nsd.ServiceInfo) error {
	return f.record("servicedel %s", info.Key())
}
func (f *fakeDriver) ServiceFlush() error { return f.record("serviceflush") }

func (f *fakeDriver) ServiceDiscoveryRequest(addr, query string) (string, error) {
	if err := f.record("sdreq %s %s", addr, query); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSdID++
	return fmt.Sprintf("%x", f.nextSdID), nil
}

func (f *fakeDriver) ServiceDiscoveryCancel(id string) error {
	return f.record("sdcancel %s", id)
}
func (f *fakeDriver) SetDeviceName(name string) error {
	return f.record("devicename %s", name)
}
func (f *fakeDriver) SetDeviceType(devType string) error {
	return f.record("devicetype %s", devType)
}
func (f *fakeDriver) SetSsidPostfix(postfix string) error {
	return f.record("ssidpostfix %s", postfix)
}
func (f *fakeDriver) SetConfigMethods(methods string) error {
	return f.record("configmethods %s", methods)
}
func (f *fakeDriver) SetConcurrencyPriority(priority string) error {
	return f.record("concurrency %s", priority)
}
func (f *fakeDriver) SetPersistentReconnect(enabled bool) error {
	return f.record("persistentreconnect %t", enabled)
}

func (f *fakeDriver) GroupCapability(addr string) (uint8, error) {
	if err := f.record("groupcapab %s", addr); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.capab[addr], nil
}

func (f *fakeDriver) DeviceAddress() (string, error) {
	return testOwnAddress, f.record("deviceaddress")
}

// fakeNetcfg records network configuration calls and keeps the DHCP
// client's report callback for the test to fire.
type fakeNetcfg struct {
	mu     sync.Mutex
	calls  []string
	report func(netcfg.Result)
}

func (f *fakeNetcfg) record(format string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return nil
}

func (f *fakeNetcfg) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.calls
	f.calls = nil
	return out
}

func (f *fakeNetcfg) SetInterfaceUp(iface string) error   { return f.record("up %s", iface) }
func (f *fakeNetcfg) SetInterfaceDown(iface string) error { return f.record("down %s", iface) }
func (f *fakeNetcfg) ClearAddresses(iface string) error   { return f.record("clear %s", iface) }
func (f *fakeNetcfg) StartDHCPServer(iface string) error  { return f.record("dhcpd start %s", iface) }
func (f *fakeNetcfg) StopDHCPServer(iface string) error   { return f.record("dhcpd stop %s", iface) }
func (f *fakeNetcfg) StopDHCPClient(iface string) error   { return f.record("dhcpc stop %s", iface) }

func (f *fakeNetcfg) StartDHCPClient(iface string, report func(netcfg.Result)) error {
	f.mu.Lock()
	f.report = report
	f.mu.Unlock()
	return f.record("dhcpc start %s", iface)
}

func (f *fakeNetcfg) lease(res netcfg.Result) {
	f.mu.Lock()
	report := f.report
	f.mu.Unlock()
	report(res)
}
