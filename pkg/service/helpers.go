package service

import (
	"net/netip"
	"strconv"

	"go.uber.org/multierr"

	"github.com/p2pcoord/p2pcoord-go/pkg/log"
	"github.com/p2pcoord/p2pcoord-go/pkg/netcfg"
	"github.com/p2pcoord/p2pcoord-go/pkg/p2p"
	"github.com/p2pcoord/p2pcoord-go/pkg/statemachine"
)

// reply answers c. Requests the machine issued to itself have no reply
// target and are only counted.
func (s *Service) reply(c *call, r Reply) {
	if c == nil {
		return
	}
	r.Op = c.req.Op
	s.metrics.requests.WithLabelValues(r.Op.String(), r.Status.String(), r.Reason.String()).Inc()
	s.tracer.Reply(c.sessionID(), r.Op.String(), r.Status.String(), r.Reason.String(), c.start)

	if c.done == nil {
		return
	}
	select {
	case c.done <- r:
	default:
		s.logger.Warn("reply dropped", "op", r.Op, "status", r.Status)
	}
}

func (s *Service) replyStatus(c *call, status Status) {
	s.reply(c, Reply{Status: status})
}

func (s *Service) replyFailed(c *call, reason Reason) {
	s.reply(c, Reply{Status: StatusFailed, Reason: reason})
}

// replyResult answers with Succeeded, or Failed when err is set.
func (s *Service) replyResult(c *call, command string, err error) {
	if s.adapterErr(command, err) {
		s.replyFailed(c, ReasonAdapter)
		return
	}
	s.replyStatus(c, StatusSucceeded)
}

// selfRequest queues op as if an application had asked, with no reply
// target.
func (s *Service) selfRequest(op Op) {
	s.machine.Send(requestMessage(&call{req: Request{Op: op}, start: s.clock.Now()}))
}

func (s *Service) sendStateChanged(enabled bool) {
	s.emitEvent(Event{Type: EventStateChanged, Enabled: enabled})
}

func (s *Service) sendPeersChanged() {
	s.metrics.peers.Set(float64(s.peers.Len()))
	s.emitEvent(Event{Type: EventPeersChanged})
}

func (s *Service) sendDiscoveryChanged(started bool) {
	if s.discoveryStarted == started {
		return
	}
	s.discoveryStarted = started
	s.debugLog("discovery changed", "started", started)
	s.emitEvent(Event{Type: EventDiscoveryChanged, Discovering: started})
}

func (s *Service) sendThisDeviceChanged() {
	s.emitEvent(Event{Type: EventThisDeviceChanged, Device: s.thisDevice})
}

func (s *Service) sendConnectionChanged() {
	s.emitEvent(Event{Type: EventConnectionChanged, Connected: s.connected, Info: s.info})
}

// publishConnection announces a formed group with its summary.
func (s *Service) publishConnection(owner netip.Addr) {
	s.info = p2p.ConnectionInfo{
		GroupFormed:       true,
		IsGroupOwner:      s.group.IsOwner,
		GroupOwnerAddress: owner,
	}
	s.sendConnectionChanged()
	s.emitEvent(Event{
		Type:      EventConnectionEstablished,
		Connected: s.connected,
		Info:      s.info,
		Group:     s.group.Clone(),
	})
}

func (s *Service) setConnectivity(connected bool, reason string) {
	if s.connected == connected {
		return
	}
	old, next := connectivityName(s.connected), connectivityName(connected)
	s.connected = connected
	s.tracer.StateChange(log.StateEntityConnectivity, old, next, reason)
}

func connectivityName(connected bool) string {
	if connected {
		return "CONNECTED"
	}
	return "DISCONNECTED"
}

func (s *Service) updateThisDevice(status p2p.DeviceStatus) {
	s.thisDevice.Status = status
	s.sendThisDeviceChanged()
}

// setPeerStatus updates a registry entry and traces the change.
func (s *Service) setPeerStatus(addr string, status p2p.DeviceStatus) {
	dev := s.peers.Get(addr)
	if dev == nil || dev.Status == status {
		return
	}
	s.tracer.PeerState(addr, dev.Status.String(), status.String())
	s.peers.UpdateStatus(addr, status)
}

// deviceFor returns the registry entry for addr, or a bare device.
func (s *Service) deviceFor(addr string) p2p.Device {
	if dev := s.peers.Get(addr); dev != nil {
		return *dev
	}
	return p2p.Device{Address: addr}
}

func (s *Service) deviceName(addr string) string {
	if dev := s.peers.Get(addr); dev != nil && dev.Name != "" {
		return dev.Name
	}
	return addr
}

// refreshGroupCapability asks the adapter whether addr owns a group.
func (s *Service) refreshGroupCapability(addr string) {
	capab, err := s.drv.GroupCapability(addr)
	if s.adapterErr("group capability", err) {
		return
	}
	s.peers.UpdateGroupCapability(addr, capab)
}

// persistedDeviceName returns the stored name, or the default built from
// the prefix and the device id.
func (s *Service) persistedDeviceName() string {
	if s.config.Store != nil {
		name, err := s.config.Store.DeviceName()
		if err != nil {
			s.logger.Warn("device name load failed", "error", err)
		}
		if name != "" {
			return name
		}
	}
	return s.config.DeviceNamePrefix + "_" + s.config.DeviceID[:4]
}

func (s *Service) setAndPersistDeviceName(name string) bool {
	if name == "" {
		return false
	}
	if s.adapterErr("set device name", s.drv.SetDeviceName(name)) {
		return false
	}
	s.thisDevice.Name = name
	s.adapterErr("set ssid postfix", s.drv.SetSsidPostfix("-"+name))

	if s.config.Store != nil {
		if err := s.config.Store.SetDeviceName(name); err != nil {
			s.logger.Warn("device name save failed", "error", err)
		}
	}
	s.sendThisDeviceChanged()
	return true
}

// initializeSettings pushes the device configuration to a freshly
// connected adapter and resets all bookkeeping that does not survive a
// restart of P2P.
func (s *Service) initializeSettings() {
	s.adapterErr("set persistent reconnect", s.drv.SetPersistentReconnect(true))

	s.thisDevice.Name = s.persistedDeviceName()
	s.adapterErr("set device name", s.drv.SetDeviceName(s.thisDevice.Name))
	// The group SSID becomes DIRECT-xy-<name>.
	s.adapterErr("set ssid postfix", s.drv.SetSsidPostfix("-"+s.thisDevice.Name))
	s.adapterErr("set device type", s.drv.SetDeviceType(s.thisDevice.PrimaryType))
	s.adapterErr("set config methods", s.drv.SetConfigMethods(configMethods))
	s.adapterErr("set concurrency priority", s.drv.SetConcurrencyPriority(concurrencyPriority))

	addr, err := s.drv.DeviceAddress()
	if !s.adapterErr("device address", err) {
		s.thisDevice.Address = addr
	}
	s.updateThisDevice(p2p.StatusAvailable)
	s.debugLog("device settings initialized", "name", s.thisDevice.Name, "address", s.thisDevice.Address)

	s.sessions.Clear()
	s.adapterErr("flush", s.drv.Flush())
	s.adapterErr("service flush", s.drv.ServiceFlush())
	s.servdisc.Reset()
}

// groupCreationFailure recovers from a failed or cancelled negotiation:
// the adapter's peer state is flushed and discovery restarted.
func (s *Service) groupCreationFailure() {
	s.pending = nil
	s.adapterErr("flush", s.drv.Flush())
	s.servdisc.Forget()
	s.selfRequest(OpDiscoverPeers)
}

// connectWithPinDisplay connects and shows the PIN the adapter generated,
// if any.
func (s *Service) connectWithPinDisplay(cfg *p2p.Config, join bool) {
	pin, err := s.drv.Connect(cfg, join)
	if s.adapterErr("connect", err) {
		return
	}
	if _, err := strconv.Atoi(pin); err != nil {
		return
	}
	s.showPin(cfg.DeviceAddress, pin)
}

// showPin hands pin to the foreground listener, or to the prompter.
func (s *Service) showPin(addr, pin string) {
	if s.consent.SendShowPin(pin) {
		return
	}
	if s.prompter == nil {
		s.logger.Info("pin for peer", "peer", addr, "pin", pin)
		return
	}
	s.prompter.ShowPin(s.deviceName(addr), pin)
}

// startGroupCreatingTimer arms the timeout for the current attempt. Only
// the delivery carrying the latest generation is honoured.
func (s *Service) startGroupCreatingTimer() {
	s.timeoutGen++
	s.machine.SendDelayed(&statemachine.Message{
		What: whatGroupCreatingTimeout,
		Arg:  s.timeoutGen,
	}, s.config.GroupCreatingTimeout)
}

// startDHCPClient starts lease acquisition and feeds the result back into
// the event loop.
func (s *Service) startDHCPClient(iface string) {
	err := s.netcfg.StartDHCPClient(iface, func(res netcfg.Result) {
		s.machine.Send(&statemachine.Message{What: whatDhcpResult, Obj: res})
	})
	if s.adapterErr("dhcp client start", err) {
		s.machine.Send(&statemachine.Message{
			What: whatDhcpResult,
			Obj:  netcfg.Result{Interface: iface, Err: err},
		})
	}
}

// teardownAddressing stops the DHCP side of g and clears its addresses.
func (s *Service) teardownAddressing(g *p2p.Group) error {
	var err error
	if g.IsOwner {
		err = multierr.Append(err, s.netcfg.StopDHCPServer(g.Interface))
	} else {
		err = multierr.Append(err, s.netcfg.StopDHCPClient(g.Interface))
	}
	return multierr.Append(err, s.netcfg.ClearAddresses(g.Interface))
}
