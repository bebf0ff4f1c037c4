package service

import (
	"context"
	"errors"
	"net/netip"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	consentmocks "github.com/p2pcoord/p2pcoord-go/pkg/consent/mocks"
	"github.com/p2pcoord/p2pcoord-go/pkg/discovery/mocks"
	"github.com/p2pcoord/p2pcoord-go/pkg/driver"
	"github.com/p2pcoord/p2pcoord-go/pkg/netcfg"
	"github.com/p2pcoord/p2pcoord-go/pkg/nsd"
	"github.com/p2pcoord/p2pcoord-go/pkg/p2p"
	"github.com/p2pcoord/p2pcoord-go/pkg/persistence"
	"github.com/p2pcoord/p2pcoord-go/pkg/session"
)

var errAdapter = errors.New("adapter said FAIL")

// harness drives a service synchronously: messages are processed by
// Drain on the test goroutine.
type harness struct {
	t      *testing.T
	svc    *Service
	drv    *fakeDriver
	net    *fakeNetcfg
	clk    *clock.Mock
	events []Event
}

func newHarness(t *testing.T, opts ...func(*Config)) *harness {
	t.Helper()
	h := &harness{
		t:   t,
		drv: newFakeDriver(),
		net: &fakeNetcfg{},
		clk: clock.NewMock(),
	}
	cfg := DefaultConfig()
	cfg.Driver = h.drv
	cfg.NetConfig = h.net
	cfg.Clock = h.clk
	cfg.DeviceID = "abcd1234"
	for _, opt := range opts {
		opt(&cfg)
	}

	svc, err := New(cfg)
	require.NoError(t, err)
	svc.OnEvent(func(e Event) { h.events = append(h.events, e) })
	require.NoError(t, svc.machine.Start())
	h.svc = svc
	return h
}

func (h *harness) submit(req Request) Reply {
	h.t.Helper()
	done := make(chan Reply, 1)
	h.svc.Submit(req, done)
	h.svc.machine.Drain()
	select {
	case r := <-done:
		return r
	default:
		h.t.Fatalf("no reply to %s", req.Op)
		return Reply{}
	}
}

func (h *harness) event(ev driver.Event) {
	h.svc.onDriverEvent(ev)
	h.svc.machine.Drain()
}

func (h *harness) state() string { return h.svc.State() }

// enable brings the service to Inactive and clears everything recorded
// on the way.
func (h *harness) enable() {
	h.t.Helper()
	h.svc.Enable()
	h.svc.machine.Drain()
	require.Equal(h.t, StateEnabling, h.state())
	h.event(driver.Event{Type: driver.EventConnected})
	require.Equal(h.t, StateInactive, h.state())
	h.drv.commands()
	h.net.commands()
	h.events = nil
}

func (h *harness) found(addr, name string, methods p2p.ConfigMethod) {
	h.event(driver.Event{
		Type:   driver.EventDeviceFound,
		Device: &p2p.Device{Address: addr, Name: name, ConfigMethods: methods},
	})
}

func (h *harness) eventTypes() []EventType {
	out := make([]EventType, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Type)
	}
	return out
}

func (h *harness) peer(addr string) p2p.Device {
	h.t.Helper()
	dev := h.svc.peers.Get(addr)
	require.NotNil(h.t, dev, "peer %s", addr)
	return *dev
}

// ownerGroup forms an autonomous group with this device as owner.
func (h *harness) ownerGroup() {
	h.t.Helper()
	r := h.submit(Request{Op: OpCreateGroup})
	require.Equal(h.t, StatusAccepted, r.Status)
	h.event(driver.Event{Type: driver.EventGroupStarted, Group: &p2p.Group{
		Interface: testGroupIface,
		IsOwner:   true,
		Owner:     p2p.Device{Address: testOwnAddress},
		NetworkID: -1,
	}})
	require.Equal(h.t, StateGroupCreated, h.state())
	h.drv.commands()
	h.net.commands()
	h.events = nil
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	_, err := New(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg.Driver = newFakeDriver()
	cfg.NetConfig = &fakeNetcfg{}
	cfg.DeviceID = "ab"
	_, err = New(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNotSupportedRefusesEverything(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.P2PSupported = false })
	require.Equal(t, StateNotSupported, h.state())

	r := h.submit(Request{Op: OpDiscoverPeers})
	assert.Equal(t, StatusFailed, r.Status)
	assert.ErrorIs(t, r.Err(), ErrUnsupported)

	// Snapshot queries are still answered.
	r = h.submit(Request{Op: OpRequestPeers})
	assert.Equal(t, StatusSucceeded, r.Status)

	client := session.NewChanClient(4)
	r = h.submit(Request{Op: OpSetDialogListener, Client: client})
	assert.Equal(t, ReasonUnsupported, r.Reason)
	msg := <-client.Messages()
	assert.Equal(t, session.MsgListenerDetached, msg.Type)

	h.svc.Enable()
	h.svc.machine.Drain()
	assert.Equal(t, StateNotSupported, h.state())
	assert.Empty(t, h.drv.commands())
}

func TestDisabledRepliesBusy(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newHarness(t, func(c *Config) { c.Metrics = reg })
	require.Equal(t, StateDisabled, h.state())

	for _, op := range []Op{OpConnect, OpCreateGroup, OpDiscoverPeers, OpAddServiceRequest} {
		r := h.submit(Request{Op: op})
		assert.Equal(t, StatusFailed, r.Status, op.String())
		assert.ErrorIs(t, r.Err(), ErrBusy, op.String())
	}

	r := h.submit(Request{Op: OpRequestConnectionInfo})
	require.Equal(t, StatusSucceeded, r.Status)
	require.NotNil(t, r.Info)
	assert.False(t, r.Info.GroupFormed)

	if got := testutil.ToFloat64(h.svc.metrics.requests.WithLabelValues("CONNECT", "FAILED", "BUSY")); got != 1 {
		t.Errorf("busy CONNECT count = %v, want 1", got)
	}
}

func TestEnableInitializesAdapter(t *testing.T) {
	h := newHarness(t)

	h.svc.Enable()
	h.svc.machine.Drain()
	assert.Equal(t, StateEnabling, h.state())
	assert.Equal(t, []string{"up p2p0"}, h.net.commands())

	h.event(driver.Event{Type: driver.EventConnected})
	assert.Equal(t, StateInactive, h.state())

	cmds := h.drv.commands()
	assert.Contains(t, cmds, "persistentreconnect true")
	assert.Contains(t, cmds, "devicename p2p_abcd")
	assert.Contains(t, cmds, "ssidpostfix -p2p_abcd")
	assert.Contains(t, cmds, "devicetype "+DefaultDeviceType)
	assert.Contains(t, cmds, "concurrency sta")
	assert.Contains(t, cmds, "serviceflush")

	assert.Equal(t, testOwnAddress, h.svc.thisDevice.Address)
	assert.Equal(t, p2p.StatusAvailable, h.svc.thisDevice.Status)
	require.NotEmpty(t, h.events)
	assert.Equal(t, EventStateChanged, h.events[0].Type)
	assert.True(t, h.events[0].Enabled)
}

func TestEnablingDefersDisable(t *testing.T) {
	h := newHarness(t)

	h.svc.Enable()
	h.svc.Disable()
	h.svc.machine.Drain()
	require.Equal(t, StateEnabling, h.state())

	h.event(driver.Event{Type: driver.EventConnected})
	assert.Equal(t, StateDisabling, h.state())
	assert.Contains(t, h.drv.commands(), "close")

	h.event(driver.Event{Type: driver.EventDisconnected})
	assert.Equal(t, StateDisabled, h.state())
}

func TestUnexpectedDisconnectDisables(t *testing.T) {
	h := newHarness(t)
	h.enable()
	h.found(testPeerA, "Phone", p2p.ConfigMethodPushButton)

	h.event(driver.Event{Type: driver.EventDisconnected})
	assert.Equal(t, StateDisabled, h.state())
	assert.Zero(t, h.svc.peers.Len())
}

func TestDiscoverPeers(t *testing.T) {
	h := newHarness(t)
	h.enable()

	r := h.submit(Request{Op: OpDiscoverPeers})
	assert.Equal(t, StatusSucceeded, r.Status)
	assert.Equal(t, []string{"find 2m0s"}, h.drv.commands())
	require.Len(t, h.events, 1)
	assert.True(t, h.events[0].Discovering)

	h.found(testPeerA, "Phone", p2p.ConfigMethodPushButton)
	h.found(testOwnAddress, "Me", 0)
	assert.Equal(t, 1, h.svc.peers.Len())

	h.event(driver.Event{Type: driver.EventFindStopped})
	assert.Equal(t, EventDiscoveryChanged, h.events[len(h.events)-1].Type)
	assert.False(t, h.events[len(h.events)-1].Discovering)
	assert.Equal(t, []string{"flush"}, h.drv.commands())

	h.event(driver.Event{Type: driver.EventDeviceLost, Device: &p2p.Device{Address: testPeerA}})
	assert.Zero(t, h.svc.peers.Len())
}

func TestDiscoverPeersAdapterFailure(t *testing.T) {
	h := newHarness(t)
	h.enable()
	h.drv.failOn("find", errAdapter)

	r := h.submit(Request{Op: OpDiscoverPeers})
	assert.Equal(t, StatusFailed, r.Status)
	assert.ErrorIs(t, r.Err(), ErrAdapter)
	assert.Empty(t, h.events)
}

func TestCreateGroupOwnerPath(t *testing.T) {
	h := newHarness(t)
	h.enable()

	r := h.submit(Request{Op: OpCreateGroup})
	assert.Equal(t, StatusAccepted, r.Status)
	assert.Equal(t, StateGroupNegotiation, h.state())
	assert.Equal(t, []string{"groupadd"}, h.drv.commands())

	h.event(driver.Event{Type: driver.EventGroupStarted, Group: &p2p.Group{
		Interface: testGroupIface,
		IsOwner:   true,
		NetworkID: -1,
	}})
	assert.Equal(t, StateGroupCreated, h.state())
	assert.Equal(t, []string{"dhcpd start " + testGroupIface}, h.net.commands())

	r = h.submit(Request{Op: OpRequestConnectionInfo})
	require.NotNil(t, r.Info)
	assert.True(t, r.Info.GroupFormed)
	assert.True(t, r.Info.IsGroupOwner)
	assert.Equal(t, netcfg.ServerAddress, r.Info.GroupOwnerAddress)

	types := h.eventTypes()
	require.GreaterOrEqual(t, len(types), 2)
	assert.Equal(t, []EventType{EventConnectionChanged, EventConnectionEstablished}, types[len(types)-2:])
	assert.True(t, h.events[len(h.events)-1].Connected)
	assert.Equal(t, testGroupIface, h.events[len(h.events)-1].Group.Interface)

	r = h.submit(Request{Op: OpRequestGroupInfo})
	require.NotNil(t, r.Group)
	assert.True(t, r.Group.IsOwner)
}

func TestCreateGroupFailureStaysInactive(t *testing.T) {
	h := newHarness(t)
	h.enable()
	h.drv.failOn("groupadd", errAdapter)

	r := h.submit(Request{Op: OpCreateGroup})
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, ReasonAdapter, r.Reason)
	assert.Equal(t, StateInactive, h.state())
}

func TestConnectToGroupOwnerJoins(t *testing.T) {
	h := newHarness(t)
	h.enable()
	h.found(testPeerA, "TV", p2p.ConfigMethodPushButton)
	h.drv.capab[testPeerA] = p2p.GroupCapabOwner

	r := h.submit(Request{Op: OpConnect, Config: p2p.NewConfig(testPeerA)})
	assert.Equal(t, StatusAccepted, r.Status)
	assert.Equal(t, StateGroupNegotiation, h.state())
	assert.Equal(t, []string{
		"groupcapab " + testPeerA,
		"stopfind",
		"connect " + testPeerA + " PBC join",
	}, h.drv.commands())
	assert.Equal(t, p2p.StatusInvited, h.peer(testPeerA).Status)
}

func TestConnectWithoutAddressFails(t *testing.T) {
	h := newHarness(t)
	h.enable()

	r := h.submit(Request{Op: OpConnect, Config: &p2p.Config{}})
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, StateInactive, h.state())
}

func TestConnectClientPathWithDHCP(t *testing.T) {
	h := newHarness(t)
	h.enable()
	h.found(testPeerA, "Phone", p2p.ConfigMethodPushButton)

	r := h.submit(Request{Op: OpConnect, Config: p2p.NewConfig(testPeerA)})
	require.Equal(t, StatusAccepted, r.Status)
	assert.Equal(t, StateProvisionDiscovery, h.state())
	assert.Equal(t, []string{
		"groupcapab " + testPeerA,
		"stopfind",
		"provdisc " + testPeerA + " PBC",
	}, h.drv.commands())

	// A response from someone else is not ours.
	h.event(driver.Event{Type: driver.EventProvDiscPbcResponse, Device: &p2p.Device{Address: testPeerB}})
	assert.Equal(t, StateProvisionDiscovery, h.state())

	h.event(driver.Event{Type: driver.EventProvDiscPbcResponse, Device: &p2p.Device{Address: testPeerA}})
	assert.Equal(t, StateGroupNegotiation, h.state())
	assert.Equal(t, []string{"connect " + testPeerA + " PBC"}, h.drv.commands())

	h.event(driver.Event{Type: driver.EventGoNegotiationSuccess})
	assert.Equal(t, StateGroupNegotiation, h.state())

	h.event(driver.Event{Type: driver.EventGroupStarted, Group: &p2p.Group{
		Interface: testGroupIface,
		Owner:     p2p.Device{Address: testPeerA},
		NetworkID: -1,
	}})
	assert.Equal(t, StateGroupCreated, h.state())
	assert.Equal(t, []string{"groupidle " + testGroupIface + " 2s"}, h.drv.commands())
	assert.Equal(t, []string{"dhcpc start " + testGroupIface}, h.net.commands())
	assert.Equal(t, p2p.StatusConnected, h.peer(testPeerA).Status)
	assert.Equal(t, p2p.StatusConnected, h.svc.thisDevice.Status)
	assert.False(t, h.svc.info.GroupFormed)

	owner := netip.MustParseAddr("192.168.49.1")
	h.net.lease(netcfg.Result{Interface: testGroupIface, Server: owner})
	h.svc.machine.Drain()

	assert.True(t, h.svc.info.GroupFormed)
	assert.False(t, h.svc.info.IsGroupOwner)
	assert.Equal(t, owner, h.svc.info.GroupOwnerAddress)
	assert.Equal(t, []string{"powersave " + testGroupIface + " true"}, h.drv.commands())
	assert.Equal(t, EventConnectionEstablished, h.events[len(h.events)-1].Type)
}

func TestDHCPFailureRemovesGroup(t *testing.T) {
	h := newHarness(t)
	h.enable()
	r := h.submit(Request{Op: OpConnect, Config: p2p.NewConfig(testPeerA)})
	require.Equal(t, StatusAccepted, r.Status)
	h.event(driver.Event{Type: driver.EventProvDiscPbcResponse, Device: &p2p.Device{Address: testPeerA}})
	h.event(driver.Event{Type: driver.EventGroupStarted, Group: &p2p.Group{
		Interface: testGroupIface,
		Owner:     p2p.Device{Address: testPeerA},
		NetworkID: -1,
	}})
	h.drv.commands()
	h.net.commands()

	h.net.lease(netcfg.Result{Interface: testGroupIface, Err: netcfg.ErrNoServer})
	h.svc.machine.Drain()
	assert.Equal(t, []string{"groupremove " + testGroupIface}, h.drv.commands())
	assert.False(t, h.svc.info.GroupFormed)

	h.event(driver.Event{Type: driver.EventGroupRemoved})
	assert.Equal(t, StateInactive, h.state())
	assert.Equal(t, []string{"dhcpc stop " + testGroupIface, "clear " + testGroupIface}, h.net.commands())
}

func TestProvisionDiscoveryShowPin(t *testing.T) {
	prompter := consentmocks.NewMockPrompter(t)
	h := newHarness(t, func(c *Config) { c.Prompter = prompter })
	h.enable()
	h.found(testPeerA, "Printer", p2p.ConfigMethodDisplay)

	cfg := p2p.NewConfig(testPeerA)
	cfg.Wps.Setup = p2p.WpsDisplay
	r := h.submit(Request{Op: OpConnect, Config: cfg})
	require.Equal(t, StatusAccepted, r.Status)
	h.drv.commands()

	prompter.EXPECT().ShowPin("Printer", "12345670").Once()
	h.event(driver.Event{
		Type:   driver.EventProvDiscShowPin,
		Device: &p2p.Device{Address: testPeerA},
		PIN:    "12345670",
	})
	assert.Equal(t, StateGroupNegotiation, h.state())
	assert.Equal(t, []string{"connect " + testPeerA + " DISPLAY"}, h.drv.commands())
	assert.Equal(t, "12345670", h.svc.pending.Wps.PIN)
}

func TestProvisionDiscoveryFailureRecovers(t *testing.T) {
	h := newHarness(t)
	h.enable()
	h.drv.failOn("provdisc", errAdapter)

	r := h.submit(Request{Op: OpConnect, Config: p2p.NewConfig(testPeerA)})
	assert.Equal(t, StatusAccepted, r.Status)
	assert.Equal(t, StateInactive, h.state())
	assert.Nil(t, h.svc.pending)
	// Recovery flushes and restarts discovery.
	cmds := h.drv.commands()
	assert.Contains(t, cmds, "flush")
	assert.Contains(t, cmds, "find 2m0s")
}

func TestGroupCreatingDiscoverPeersBusy(t *testing.T) {
	h := newHarness(t)
	h.enable()
	h.submit(Request{Op: OpConnect, Config: p2p.NewConfig(testPeerA)})

	r := h.submit(Request{Op: OpDiscoverPeers})
	assert.ErrorIs(t, r.Err(), ErrBusy)
	assert.Equal(t, StateProvisionDiscovery, h.state())
}

func TestCancelConnectAlwaysSucceeds(t *testing.T) {
	h := newHarness(t)
	h.enable()
	h.submit(Request{Op: OpConnect, Config: p2p.NewConfig(testPeerA)})
	h.drv.commands()
	h.drv.failOn("cancel", errAdapter)

	r := h.submit(Request{Op: OpCancelConnect})
	assert.Equal(t, StatusSucceeded, r.Status)
	assert.Equal(t, StateInactive, h.state())
	assert.Equal(t, []string{"cancel", "flush", "find 2m0s"}, h.drv.commands())
}

func TestGroupCreatingTimeout(t *testing.T) {
	h := newHarness(t)
	h.enable()

	h.submit(Request{Op: OpConnect, Config: p2p.NewConfig(testPeerA)})
	require.Equal(t, StateProvisionDiscovery, h.state())

	h.clk.Add(DefaultGroupCreatingTimeout - time.Second)
	h.svc.machine.Drain()
	assert.Equal(t, StateProvisionDiscovery, h.state())

	// The mock clock runs timer callbacks on their own goroutine.
	h.clk.Add(time.Second)
	require.Eventually(t, func() bool {
		h.svc.machine.Drain()
		return h.state() == StateInactive
	}, time.Second, time.Millisecond)
	assert.Nil(t, h.svc.pending)
}

func TestStaleTimeoutIgnored(t *testing.T) {
	h := newHarness(t)
	h.enable()

	h.submit(Request{Op: OpConnect, Config: p2p.NewConfig(testPeerA)})
	h.submit(Request{Op: OpCancelConnect})
	require.Equal(t, StateInactive, h.state())

	h.clk.Add(60 * time.Second)
	h.submit(Request{Op: OpConnect, Config: p2p.NewConfig(testPeerA)})
	require.Equal(t, StateProvisionDiscovery, h.state())

	// First attempt's timer fires and is discarded.
	h.clk.Add(60 * time.Second)
	require.Eventually(t, func() bool { return h.svc.machine.Drain() > 0 }, time.Second, time.Millisecond)
	assert.Equal(t, StateProvisionDiscovery, h.state())

	h.clk.Add(60 * time.Second)
	require.Eventually(t, func() bool {
		h.svc.machine.Drain()
		return h.state() == StateInactive
	}, time.Second, time.Millisecond)
}

func TestInboundNegotiationReject(t *testing.T) {
	prompter := consentmocks.NewMockPrompter(t)
	h := newHarness(t, func(c *Config) { c.Prompter = prompter })
	h.enable()
	h.found(testPeerA, "Phone", p2p.ConfigMethodPushButton)

	prompter.EXPECT().PromptInvitation(mock.MatchedBy(func(d p2p.Device) bool {
		return d.Address == testPeerA && d.Name == "Phone"
	}), mock.Anything).Once()
	h.event(driver.Event{Type: driver.EventGoNegotiationRequest, Config: p2p.NewConfig(testPeerA)})
	require.Equal(t, StateUserAuthorizingInvitation, h.state())

	h.svc.Reject()
	h.svc.machine.Drain()
	assert.Equal(t, StateInactive, h.state())
	assert.Nil(t, h.svc.pending)
	assert.Empty(t, h.drv.commands())
}

func TestInboundNegotiationAcceptWithPin(t *testing.T) {
	prompter := consentmocks.NewMockPrompter(t)
	prompter.EXPECT().PromptInvitation(mock.Anything, mock.Anything).Once()
	h := newHarness(t, func(c *Config) { c.Prompter = prompter })
	h.enable()

	cfg := p2p.NewConfig(testPeerA)
	cfg.Wps.Setup = p2p.WpsKeypad
	h.event(driver.Event{Type: driver.EventGoNegotiationRequest, Config: cfg})
	require.Equal(t, StateUserAuthorizingInvitation, h.state())

	h.svc.Accept("11223344")
	h.svc.machine.Drain()
	assert.Equal(t, StateGroupNegotiation, h.state())
	assert.Equal(t, []string{"stopfind", "connect " + testPeerA + " KEYPAD"}, h.drv.commands())
	assert.Equal(t, "11223344", h.svc.pending.Wps.PIN)
}

func TestInvitationRemembersPersistentGroup(t *testing.T) {
	store := persistence.NewStore(filepath.Join(t.TempDir(), "state.json"))
	prompter := consentmocks.NewMockPrompter(t)
	prompter.EXPECT().PromptInvitation(mock.Anything, mock.Anything).Once()
	h := newHarness(t, func(c *Config) {
		c.Store = store
		c.Prompter = prompter
	})
	h.enable()

	h.event(driver.Event{Type: driver.EventInvitationReceived, Group: &p2p.Group{
		NetworkName: "DIRECT-xy-TV",
		Owner:       p2p.Device{Address: testPeerA},
		NetworkID:   5,
	}})
	require.Equal(t, StateUserAuthorizingInvitation, h.state())
	id, ok := store.NetworkFor(testPeerA)
	require.True(t, ok)
	assert.Equal(t, 5, id)

	h.svc.Accept("")
	h.svc.machine.Drain()
	assert.Equal(t, StateGroupNegotiation, h.state())
	assert.Equal(t, []string{"stopfind", "connect " + testPeerA + " PBC join"}, h.drv.commands())
}

func TestConnectReinvokesPersistentGroup(t *testing.T) {
	store := persistence.NewStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, store.RememberGroup(testPeerA, 3, "DIRECT-ab-Phone"))
	h := newHarness(t, func(c *Config) { c.Store = store })
	h.enable()

	r := h.submit(Request{Op: OpConnect, Config: p2p.NewConfig(testPeerA)})
	assert.Equal(t, StatusAccepted, r.Status)
	assert.Equal(t, StateGroupNegotiation, h.state())
	assert.Equal(t, []string{"groupcapab " + testPeerA, "reinvoke 3 " + testPeerA}, h.drv.commands())
}

func TestFailedReinvokeForgetsNetwork(t *testing.T) {
	store := persistence.NewStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, store.RememberGroup(testPeerA, 3, "DIRECT-ab-Phone"))
	h := newHarness(t, func(c *Config) { c.Store = store })
	h.enable()
	h.drv.failOn("reinvoke", errAdapter)

	r := h.submit(Request{Op: OpConnect, Config: p2p.NewConfig(testPeerA)})
	assert.Equal(t, StatusAccepted, r.Status)
	assert.Equal(t, StateProvisionDiscovery, h.state())

	_, ok := store.NetworkFor(testPeerA)
	assert.False(t, ok)
}

func TestGroupRemovedResetsMembers(t *testing.T) {
	h := newHarness(t)
	h.enable()
	h.found(testPeerA, "Phone", p2p.ConfigMethodPushButton)
	h.found(testPeerB, "Tablet", p2p.ConfigMethodPushButton)
	h.ownerGroup()

	h.event(driver.Event{Type: driver.EventStaConnected, Device: &p2p.Device{Address: testPeerA}})
	assert.Equal(t, p2p.StatusConnected, h.peer(testPeerA).Status)

	// A member leaving discovery is not a lost peer.
	h.event(driver.Event{Type: driver.EventDeviceLost, Device: &p2p.Device{Address: testPeerA}})
	assert.Equal(t, 2, h.svc.peers.Len())

	r := h.submit(Request{Op: OpRemoveGroup})
	assert.Equal(t, StatusSucceeded, r.Status)
	assert.Equal(t, StateGroupCreated, h.state())

	h.event(driver.Event{Type: driver.EventGroupRemoved})
	assert.Equal(t, StateInactive, h.state())
	assert.Nil(t, h.svc.group)
	assert.Equal(t, p2p.StatusAvailable, h.peer(testPeerA).Status)
	assert.Equal(t, []string{"dhcpd stop " + testGroupIface, "clear " + testGroupIface}, h.net.commands())
	assert.Equal(t, []string{"groupremove " + testGroupIface, "flush"}, h.drv.commands())
	assert.False(t, h.svc.connected)
	assert.False(t, h.svc.info.GroupFormed)
	assert.Equal(t, p2p.StatusAvailable, h.svc.thisDevice.Status)
}

func TestLastClientLeavingRemovesNegotiatedGroup(t *testing.T) {
	client := session.NewChanClient(8)
	h := newHarness(t, func(c *Config) {
		c.IsForeground = func(id string) bool { return id == client.ID() }
	})
	h.enable()
	h.found(testPeerA, "Phone", p2p.ConfigMethodPushButton)

	// Answer the peer's request through a foreground listener.
	r := h.submit(Request{Op: OpSetDialogListener, Client: client})
	require.Equal(t, StatusSucceeded, r.Status)
	require.Equal(t, session.MsgListenerAttached, (<-client.Messages()).Type)

	h.event(driver.Event{Type: driver.EventGoNegotiationRequest, Config: p2p.NewConfig(testPeerA)})
	require.Equal(t, StateInactive, h.state())
	msg := <-client.Messages()
	require.Equal(t, session.MsgConnectionRequested, msg.Type)

	r = h.submit(Request{Op: OpConnect, Client: client, Config: p2p.NewConfig(testPeerA)})
	require.Equal(t, StatusAccepted, r.Status)
	require.Equal(t, StateGroupNegotiation, h.state())

	h.event(driver.Event{Type: driver.EventGroupStarted, Group: &p2p.Group{
		Interface: testGroupIface,
		IsOwner:   true,
		NetworkID: -1,
	}})
	require.Equal(t, StateGroupCreated, h.state())
	h.drv.commands()

	h.event(driver.Event{Type: driver.EventStaConnected, Device: &p2p.Device{Address: testPeerA}})
	h.event(driver.Event{Type: driver.EventStaDisconnected, Device: &p2p.Device{Address: testPeerA}})
	assert.Equal(t, p2p.StatusAvailable, h.peer(testPeerA).Status)
	assert.Equal(t, []string{"groupremove " + testGroupIface}, h.drv.commands())
}

func TestAutonomousGroupSurvivesEmptyClientList(t *testing.T) {
	h := newHarness(t)
	h.enable()
	h.ownerGroup()

	h.event(driver.Event{Type: driver.EventStaConnected, Device: &p2p.Device{Address: testPeerA}})
	h.event(driver.Event{Type: driver.EventStaDisconnected, Device: &p2p.Device{Address: testPeerA}})
	assert.Empty(t, h.drv.commands())
	assert.Equal(t, StateGroupCreated, h.state())
}

func TestDisableWhileGroupedRemovesGroupFirst(t *testing.T) {
	h := newHarness(t)
	h.enable()
	h.ownerGroup()

	h.svc.Disable()
	h.svc.machine.Drain()
	assert.Equal(t, StateGroupCreated, h.state())
	assert.Equal(t, []string{"groupremove " + testGroupIface}, h.drv.commands())

	h.event(driver.Event{Type: driver.EventGroupRemoved})
	assert.Equal(t, StateDisabling, h.state())
	assert.Contains(t, h.drv.commands(), "close")
}

func TestGroupedConnectInvitesPeer(t *testing.T) {
	h := newHarness(t)
	h.enable()
	h.found(testPeerB, "Tablet", p2p.ConfigMethodPushButton)
	h.ownerGroup()

	r := h.submit(Request{Op: OpConnect, Config: p2p.NewConfig(testPeerB)})
	assert.Equal(t, StatusAccepted, r.Status)
	assert.Equal(t, []string{"invite " + testGroupIface + " " + testPeerB}, h.drv.commands())
	assert.Equal(t, p2p.StatusInvited, h.peer(testPeerB).Status)

	h.drv.failOn("invite", errAdapter)
	r = h.submit(Request{Op: OpConnect, Config: p2p.NewConfig(testPeerB)})
	assert.Equal(t, StatusFailed, r.Status)
}

func TestGroupedConnectWithoutAddressShowsPin(t *testing.T) {
	prompter := consentmocks.NewMockPrompter(t)
	h := newHarness(t, func(c *Config) { c.Prompter = prompter })
	h.enable()
	h.ownerGroup()
	h.drv.wpsPin = "87654321"

	prompter.EXPECT().ShowPin("any", "87654321").Once()
	cfg := &p2p.Config{Wps: p2p.WpsInfo{Setup: p2p.WpsDisplay}}
	r := h.submit(Request{Op: OpConnect, Config: cfg})
	assert.Equal(t, StatusAccepted, r.Status)
	assert.Equal(t, []string{"wpsdisplay " + testGroupIface}, h.drv.commands())
}

func TestJoinRequestAccepted(t *testing.T) {
	prompter := consentmocks.NewMockPrompter(t)
	h := newHarness(t, func(c *Config) { c.Prompter = prompter })
	h.enable()
	h.ownerGroup()

	prompter.EXPECT().PromptJoin(mock.MatchedBy(func(d p2p.Device) bool {
		return d.Address == testPeerA
	}), mock.Anything).Once()
	h.event(driver.Event{Type: driver.EventProvDiscPbcRequest, Device: &p2p.Device{Address: testPeerA}})
	require.Equal(t, StateUserAuthorizingJoin, h.state())

	// Further requests wait for the answer.
	h.event(driver.Event{Type: driver.EventProvDiscPbcRequest, Device: &p2p.Device{Address: testPeerB}})
	assert.Equal(t, testPeerA, h.svc.pending.DeviceAddress)

	h.svc.Accept("")
	h.svc.machine.Drain()
	assert.Equal(t, StateGroupCreated, h.state())
	assert.Equal(t, []string{"wpspbc " + testGroupIface}, h.drv.commands())
	assert.Nil(t, h.svc.pending)
	// Leaving the child state must not tear the group down.
	assert.True(t, h.svc.connected)
}

func TestJoinRequestRejected(t *testing.T) {
	prompter := consentmocks.NewMockPrompter(t)
	prompter.EXPECT().PromptJoin(mock.Anything, mock.Anything).Once()
	h := newHarness(t, func(c *Config) { c.Prompter = prompter })
	h.enable()
	h.ownerGroup()

	h.event(driver.Event{Type: driver.EventProvDiscEnterPin, Device: &p2p.Device{Address: testPeerA}})
	require.Equal(t, StateUserAuthorizingJoin, h.state())

	h.svc.Reject()
	h.svc.machine.Drain()
	assert.Equal(t, StateGroupCreated, h.state())
	assert.Empty(t, h.drv.commands())
}

func TestJoinAnsweredByListener(t *testing.T) {
	client := session.NewChanClient(8)
	h := newHarness(t, func(c *Config) {
		c.IsForeground = func(id string) bool { return id == client.ID() }
	})
	h.enable()
	r := h.submit(Request{Op: OpSetDialogListener, Client: client})
	require.Equal(t, StatusSucceeded, r.Status)
	assert.Equal(t, session.MsgListenerAttached, (<-client.Messages()).Type)
	h.ownerGroup()

	h.event(driver.Event{Type: driver.EventProvDiscPbcRequest, Device: &p2p.Device{Address: testPeerA}})
	assert.Equal(t, StateGroupCreated, h.state())
	msg := <-client.Messages()
	require.Equal(t, session.MsgConnectionRequested, msg.Type)
	assert.Equal(t, testPeerA, msg.Device.Address)

	r = h.submit(Request{Op: OpConnect, Client: client, Config: p2p.NewConfig(testPeerA)})
	assert.Equal(t, StatusAccepted, r.Status)
	assert.Equal(t, []string{"wpspbc " + testGroupIface}, h.drv.commands())
}

func TestDialogListenerRequiresForeground(t *testing.T) {
	h := newHarness(t)

	client := session.NewChanClient(4)
	r := h.submit(Request{Op: OpSetDialogListener, Client: client})
	assert.ErrorIs(t, r.Err(), ErrNotForeground)

	r = h.submit(Request{Op: OpSetDialogListener, Client: client, Reset: true})
	assert.Equal(t, StatusSucceeded, r.Status)
}

func TestServiceRequests(t *testing.T) {
	h := newHarness(t)
	h.enable()
	client := session.NewChanClient(8)

	r := h.submit(Request{Op: OpDiscoverServices})
	assert.ErrorIs(t, r.Err(), ErrNoServiceRequests)

	r = h.submit(Request{Op: OpAddServiceRequest, Client: client, ServiceRequest: nsd.NewAllServicesRequest()})
	require.Equal(t, StatusSucceeded, r.Status)
	require.NotNil(t, r.ServiceRequest)
	assert.Equal(t, uint8(1), r.ServiceRequest.TransactionID)
	assert.Equal(t, "1", h.svc.servdisc.RequestID())

	r = h.submit(Request{Op: OpDiscoverServices})
	assert.Equal(t, StatusSucceeded, r.Status)

	// A peer find cancels the outstanding service query.
	h.drv.commands()
	h.submit(Request{Op: OpDiscoverPeers})
	assert.Equal(t, []string{"sdcancel 2", "find 2m0s"}, h.drv.commands())

	r = h.submit(Request{Op: OpClearServiceRequests, Client: client})
	assert.Equal(t, StatusSucceeded, r.Status)
	r = h.submit(Request{Op: OpDiscoverServices})
	assert.ErrorIs(t, r.Err(), ErrNoServiceRequests)
}

func TestForgetSessionDropsItsServices(t *testing.T) {
	h := newHarness(t)
	h.enable()
	client := session.NewChanClient(8)
	info, err := nsd.NewBonjourServiceInfo("Office", "_ipp._tcp", map[string]string{"port": "631"})
	require.NoError(t, err)

	r := h.submit(Request{Op: OpAddLocalService, Client: client, Service: info})
	require.Equal(t, StatusSucceeded, r.Status)
	h.drv.commands()

	h.svc.ForgetSession(client.ID())
	h.svc.machine.Drain()
	assert.Equal(t, []string{"servicedel " + info.Key()}, h.drv.commands())
	assert.Zero(t, h.svc.sessions.Len())
}

func TestSetDeviceNamePersists(t *testing.T) {
	store := persistence.NewStore(filepath.Join(t.TempDir(), "state.json"))
	h := newHarness(t, func(c *Config) { c.Store = store })
	h.enable()

	r := h.submit(Request{Op: OpSetDeviceName, DeviceName: "Kitchen"})
	assert.Equal(t, StatusSucceeded, r.Status)
	assert.Equal(t, []string{"devicename Kitchen", "ssidpostfix -Kitchen"}, h.drv.commands())

	name, err := store.DeviceName()
	require.NoError(t, err)
	assert.Equal(t, "Kitchen", name)
	assert.Equal(t, EventThisDeviceChanged, h.events[len(h.events)-1].Type)

	r = h.submit(Request{Op: OpSetDeviceName})
	assert.Equal(t, StatusFailed, r.Status)
}

func TestMirrorFollowsGroup(t *testing.T) {
	adv := mocks.NewMockAdvertiser(t)
	h := newHarness(t, func(c *Config) { c.Advertiser = adv })
	h.enable()

	client := session.NewChanClient(8)
	info, err := nsd.NewBonjourServiceInfo("Office", "_ipp._tcp", map[string]string{"port": "631"})
	require.NoError(t, err)
	r := h.submit(Request{Op: OpAddLocalService, Client: client, Service: info})
	require.Equal(t, StatusSucceeded, r.Status)

	adv.EXPECT().Advertise(mock.Anything, testGroupIface, mock.Anything).Return(nil).Once()
	h.ownerGroup()
	assert.True(t, h.svc.mirror.Active())
	require.Len(t, h.svc.mirror.Records(), 1)
	assert.Equal(t, 631, h.svc.mirror.Records()[0].Port)

	adv.EXPECT().StopAll().Once()
	h.event(driver.Event{Type: driver.EventGroupRemoved})
	assert.False(t, h.svc.mirror.Active())
}

func TestUnexpectedGroupStartedRemoved(t *testing.T) {
	h := newHarness(t)
	h.enable()

	h.event(driver.Event{Type: driver.EventGroupStarted, Group: &p2p.Group{Interface: testGroupIface}})
	assert.Equal(t, StateInactive, h.state())
	assert.Equal(t, []string{"groupremove " + testGroupIface}, h.drv.commands())
}

func TestStartDoStop(t *testing.T) {
	drv := newFakeDriver()
	cfg := DefaultConfig()
	cfg.Driver = drv
	cfg.NetConfig = &fakeNetcfg{}
	svc, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Start(ctx))
	assert.ErrorIs(t, svc.Start(ctx), ErrAlreadyStarted)

	reply, err := svc.Do(ctx, Request{Op: OpRequestPeers})
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, reply.Status)

	_, err = svc.Do(ctx, Request{Op: OpDiscoverPeers})
	assert.ErrorIs(t, err, ErrBusy)

	require.NoError(t, svc.Stop())
	assert.Contains(t, drv.commands(), "close")
	assert.ErrorIs(t, svc.Stop(), ErrNotStarted)
}

// negotiate drives a push-button connect to testPeerA into
// GroupNegotiation and clears what was recorded on the way.
func (h *harness) negotiate() {
	h.t.Helper()
	h.found(testPeerA, "Phone", p2p.ConfigMethodPushButton)
	r := h.submit(Request{Op: OpConnect, Config: p2p.NewConfig(testPeerA)})
	require.Equal(h.t, StatusAccepted, r.Status)
	require.Equal(h.t, StateProvisionDiscovery, h.state())
	h.event(driver.Event{Type: driver.EventProvDiscPbcResponse, Device: &p2p.Device{Address: testPeerA}})
	require.Equal(h.t, StateGroupNegotiation, h.state())
	h.drv.commands()
	h.net.commands()
	h.events = nil
}

func TestGroupNegotiationOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		event     driver.EventType
		wantState string
		wantCmds  []string
	}{
		{"negotiation failure", driver.EventGoNegotiationFailure, StateInactive, []string{"flush", "find 2m0s"}},
		{"group removed", driver.EventGroupRemoved, StateInactive, []string{"flush", "find 2m0s"}},
		{"formation failure", driver.EventGroupFormationFailure, StateGroupNegotiation, nil},
		{"negotiation success", driver.EventGoNegotiationSuccess, StateGroupNegotiation, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.enable()
			h.negotiate()

			h.event(driver.Event{Type: tt.event})
			if got := h.state(); got != tt.wantState {
				t.Errorf("State() = %v, want %v", got, tt.wantState)
			}
			assert.Equal(t, tt.wantCmds, h.drv.commands())
			if tt.wantState == StateInactive {
				assert.Nil(t, h.svc.pending)
			} else {
				assert.NotNil(t, h.svc.pending)
			}
		})
	}
}

func TestProvisionDiscoveryEnterPin(t *testing.T) {
	tests := []struct {
		name      string
		pin       string
		wantState string
	}{
		{"pin known", "12345670", StateGroupNegotiation},
		{"pin missing", "", StateUserAuthorizingInvitation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.enable()
			h.found(testPeerA, "Printer", p2p.ConfigMethodKeypad)

			cfg := p2p.NewConfig(testPeerA)
			cfg.Wps = p2p.WpsInfo{Setup: p2p.WpsKeypad, PIN: tt.pin}
			r := h.submit(Request{Op: OpConnect, Config: cfg})
			require.Equal(t, StatusAccepted, r.Status)
			h.drv.commands()

			h.event(driver.Event{Type: driver.EventProvDiscEnterPin, Device: &p2p.Device{Address: testPeerA}})
			if got := h.state(); got != tt.wantState {
				t.Errorf("State() = %v, want %v", got, tt.wantState)
			}
			if tt.pin != "" {
				assert.Equal(t, []string{"connect " + testPeerA + " KEYPAD"}, h.drv.commands())
				return
			}

			assert.Empty(t, h.drv.commands(), "nothing sent before the user answers")
			h.svc.Accept("11223344")
			h.svc.machine.Drain()
			assert.Equal(t, StateGroupNegotiation, h.state())
			assert.Equal(t, []string{"stopfind", "connect " + testPeerA + " KEYPAD"}, h.drv.commands())
			assert.Equal(t, "11223344", h.svc.pending.Wps.PIN)
		})
	}
}

func TestGroupCreatingDeviceLost(t *testing.T) {
	tests := []struct {
		name      string
		lost      string
		wantPeers []string
	}{
		{"negotiating peer kept", testPeerA, []string{testPeerA, testPeerB}},
		{"other peer removed", testPeerB, []string{testPeerA}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.enable()
			h.found(testPeerB, "Laptop", p2p.ConfigMethodPushButton)
			h.negotiate()

			h.event(driver.Event{Type: driver.EventDeviceLost, Device: &p2p.Device{Address: tt.lost}})
			assert.Equal(t, StateGroupNegotiation, h.state())

			var addrs []string
			for _, d := range h.svc.peers.Devices() {
				addrs = append(addrs, d.Address)
			}
			assert.ElementsMatch(t, tt.wantPeers, addrs)
			assert.Equal(t, tt.lost == testPeerB, len(h.events) > 0, "peers changed event")
		})
	}
}

func TestEnablingConnectFailedDisables(t *testing.T) {
	h := newHarness(t)
	h.svc.Enable()
	h.svc.machine.Drain()
	require.Equal(t, StateEnabling, h.state())

	h.event(driver.Event{Type: driver.EventConnectFailed})
	assert.Equal(t, StateDisabled, h.state())

	r := h.submit(Request{Op: OpDiscoverPeers})
	assert.ErrorIs(t, r.Err(), ErrBusy)
}

func TestMirrorWithdrawsServicesOfGoneSessions(t *testing.T) {
	tests := []struct {
		name   string
		remove func(h *harness, c *session.ChanClient, info *nsd.ServiceInfo)
	}{
		{"forgotten session", func(h *harness, c *session.ChanClient, _ *nsd.ServiceInfo) {
			h.svc.ForgetSession(c.ID())
			h.svc.machine.Drain()
		}},
		{"dead session purged", func(h *harness, c *session.ChanClient, _ *nsd.ServiceInfo) {
			c.Close()
			other, err := nsd.NewBonjourServiceInfo("Lobby", "_ipp._tcp", nil)
			require.NoError(h.t, err)
			h.submit(Request{Op: OpAddLocalService, Client: session.NewChanClient(1), Service: other})
		}},
		{"explicit removal", func(h *harness, c *session.ChanClient, info *nsd.ServiceInfo) {
			h.submit(Request{Op: OpRemoveLocalService, Client: c, Service: info})
		}},
		{"clear", func(h *harness, c *session.ChanClient, _ *nsd.ServiceInfo) {
			h.submit(Request{Op: OpClearLocalServices, Client: c})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adv := mocks.NewMockAdvertiser(t)
			h := newHarness(t, func(c *Config) { c.Advertiser = adv })
			h.enable()

			client := session.NewChanClient(8)
			info, err := nsd.NewBonjourServiceInfo("Office", "_ipp._tcp", map[string]string{"port": "631"})
			require.NoError(t, err)
			r := h.submit(Request{Op: OpAddLocalService, Client: client, Service: info})
			require.Equal(t, StatusSucceeded, r.Status)

			adv.EXPECT().Advertise(mock.Anything, testGroupIface, mock.Anything).Return(nil).Once()
			h.ownerGroup()
			require.Len(t, h.svc.mirror.Records(), 1)

			adv.EXPECT().Withdraw(mock.Anything).Return(nil).Once()
			tt.remove(h, client, info)
			assert.Empty(t, h.svc.mirror.Records())
			assert.Contains(t, h.drv.commands(), "servicedel "+info.Key())
		})
	}
}
