package service

import (
	"strconv"

	"github.com/p2pcoord/p2pcoord-go/pkg/netcfg"
	"github.com/p2pcoord/p2pcoord-go/pkg/p2p"
	"github.com/p2pcoord/p2pcoord-go/pkg/statemachine"
)

func (s *Service) enterGroupCreated() {
	s.setConnectivity(true, "group started")
	s.updateThisDevice(p2p.StatusConnected)

	// The owner runs the DHCP server, so its address is known already.
	if s.group != nil && s.group.IsOwner {
		s.publishConnection(netcfg.ServerAddress)
		s.startMirror()
	}
}

func (s *Service) exitGroupCreated() {
	s.provDiscDevice = nil
	s.updateThisDevice(p2p.StatusAvailable)
	s.info = p2p.ConnectionInfo{}
	s.setConnectivity(false, "group removed")
	s.sendConnectionChanged()
	s.stopMirror()
}

func (s *Service) processGroupCreated(msg *statemachine.Message) bool {
	if c := callOf(msg); c != nil {
		switch c.req.Op {
		case OpConnect:
			s.groupedConnect(c)
		case OpRemoveGroup:
			s.replyResult(c, "group remove", s.drv.GroupRemove(s.group.Interface))
		default:
			return false
		}
		return true
	}

	switch msg.What {
	case whatStaConnected:
		dev := eventOf(msg).Device
		if dev == nil || dev.Address == "" {
			s.logger.Warn("station connected without address")
			return true
		}
		if s.provDiscDevice != nil && s.provDiscDevice.Address == dev.Address {
			s.provDiscDevice = nil
		}
		s.group.AddClient(dev.Address)
		s.setPeerStatus(dev.Address, p2p.StatusConnected)
		s.debugLog("station connected", "peer", dev.Address)
		s.sendPeersChanged()

	case whatStaDisconnected:
		dev := eventOf(msg).Device
		if dev == nil || dev.Address == "" {
			s.logger.Warn("station disconnected without address")
			return true
		}
		s.setPeerStatus(dev.Address, p2p.StatusAvailable)
		if s.group.RemoveClient(dev.Address) {
			s.debugLog("station disconnected", "peer", dev.Address)
			if !s.autonomous && s.group.IsClientListEmpty() {
				s.logger.Info("last client left, removing group", "iface", s.group.Interface)
				s.adapterErr("group remove", s.drv.GroupRemove(s.group.Interface))
			}
		} else {
			s.debugLog("disconnect from unknown client", "peer", dev.Address, "clients", len(s.group.Clients()))
		}
		s.sendPeersChanged()

	case whatDhcpResult:
		res, _ := msg.Obj.(netcfg.Result)
		s.dhcpResult(res)

	case whatGroupRemoved:
		s.groupRemoved()

	case whatDeviceLost:
		dev := eventOf(msg).Device
		if dev == nil || !s.group.Contains(dev.Address) {
			return false
		}
		// A member stops answering discovery while connected.
		s.debugLog("ignored loss of group member", "peer", dev.Address)

	case whatDisable:
		s.selfRequest(OpRemoveGroup)
		s.machine.Defer(msg)

	case whatProvDiscPbcReq, whatProvDiscEnterPin, whatProvDiscShowPin:
		s.joinRequested(msg)

	case whatGroupStarted:
		s.logger.Warn("duplicate group started, ignored")

	default:
		return false
	}
	return true
}

func (s *Service) dhcpResult(res netcfg.Result) {
	if res.Interface != "" && res.Interface != s.group.Interface {
		s.debugLog("dhcp result for another interface", "iface", res.Interface)
		return
	}
	if res.Err != nil || !res.Server.IsValid() {
		s.logger.Warn("dhcp failed, removing group", "iface", s.group.Interface, "error", res.Err)
		s.adapterErr("group remove", s.drv.GroupRemove(s.group.Interface))
		return
	}
	s.debugLog("dhcp lease acquired", "server", res.Server)
	s.publishConnection(res.Server)
	s.adapterErr("set power save", s.drv.SetPowerSave(s.group.Interface, true))
	s.startMirror()
}

func (s *Service) groupRemoved() {
	g := s.group
	s.logger.Info("group removed", "iface", g.Interface, "owner", g.IsOwner)

	changed := false
	for _, dev := range s.peers.Devices() {
		if g.Contains(dev.Address) {
			s.setPeerStatus(dev.Address, p2p.StatusAvailable)
			changed = true
		}
	}
	s.adapterErr("dhcp teardown", s.teardownAddressing(g))

	s.group = nil
	s.adapterErr("flush", s.drv.Flush())
	s.servdisc.Forget()
	if changed {
		s.sendPeersChanged()
	}
	s.machine.TransitionTo(StateInactive)
}

// groupedConnect handles CONNECT while we own a group. A peer that just
// ran provision discovery with us, or no peer at all, is enrolled with
// WPS on the group interface; anyone else is invited.
func (s *Service) groupedConnect(c *call) {
	cfg := c.req.Config
	if cfg == nil {
		s.replyFailed(c, ReasonAdapter)
		return
	}
	iface := s.group.Interface
	addr := cfg.DeviceAddress

	if addr != "" && (s.provDiscDevice == nil || s.provDiscDevice.Address != addr) {
		s.debugLog("inviting peer", "peer", addr)
		if s.adapterErr("invite", s.drv.Invite(s.group, addr)) {
			s.replyFailed(c, ReasonAdapter)
			return
		}
		s.setPeerStatus(addr, p2p.StatusInvited)
		s.sendPeersChanged()
		s.replyStatus(c, StatusAccepted)
		return
	}

	var err error
	switch {
	case cfg.Wps.Setup == p2p.WpsPBC:
		err = s.drv.StartWpsPbc(iface, "")
	case cfg.Wps.PIN == "":
		var pin string
		pin, err = s.drv.StartWpsPinDisplay(iface)
		if _, perr := strconv.Atoi(pin); err == nil && perr == nil {
			target := addr
			if target == "" {
				target = "any"
			}
			s.showPin(target, pin)
		}
	default:
		err = s.drv.StartWpsPinKeypad(iface, cfg.Wps.PIN)
	}
	if s.adapterErr("wps start", err) {
		s.replyFailed(c, ReasonAdapter)
		return
	}
	if addr != "" {
		s.setPeerStatus(addr, p2p.StatusInvited)
		s.sendPeersChanged()
	}
	s.replyStatus(c, StatusAccepted)
}

// joinRequested records a peer asking to join through provision
// discovery and asks for consent.
func (s *Service) joinRequested(msg *statemachine.Message) {
	ev := eventOf(msg)
	if ev.Device == nil || ev.Device.Address == "" {
		return
	}
	dev := *ev.Device
	s.provDiscDevice = &dev

	cfg := p2p.NewConfig(dev.Address)
	switch msg.What {
	case whatProvDiscEnterPin:
		cfg.Wps.Setup = p2p.WpsKeypad
	case whatProvDiscShowPin:
		cfg.Wps.Setup = p2p.WpsDisplay
		cfg.Wps.PIN = ev.PIN
	}
	s.pending = cfg
	s.debugLog("join requested", "peer", dev.Address, "wps", cfg.Wps.Setup)

	if !s.consent.SendConnectNotice(&dev, s.pending) {
		s.machine.TransitionTo(StateUserAuthorizingJoin)
	}
}

func (s *Service) enterUserAuthorizingJoin() {
	if s.pending == nil {
		return
	}
	if s.prompter == nil {
		s.logger.Info("join request awaiting answer", "peer", s.pending.DeviceAddress, "wps", s.pending.Wps.Setup)
		return
	}
	s.prompter.PromptJoin(s.deviceFor(s.pending.DeviceAddress), *s.pending)
}

func (s *Service) processUserAuthorizingJoin(msg *statemachine.Message) bool {
	switch msg.What {
	case whatProvDiscPbcReq, whatProvDiscEnterPin, whatProvDiscShowPin:
		// One join at a time.
		s.debugLog("ignored join request while authorizing", "event", describe(msg))

	case whatUserAccept:
		if s.pending != nil {
			iface := s.group.Interface
			if s.pending.Wps.Setup == p2p.WpsPBC {
				s.adapterErr("wps pbc", s.drv.StartWpsPbc(iface, ""))
			} else {
				pin := s.pending.Wps.PIN
				if answer, _ := msg.Obj.(string); answer != "" {
					pin = answer
				}
				s.adapterErr("wps pin keypad", s.drv.StartWpsPinKeypad(iface, pin))
			}
		}
		s.pending = nil
		s.machine.TransitionTo(StateGroupCreated)

	case whatUserReject:
		s.debugLog("join request rejected")
		s.pending = nil
		s.machine.TransitionTo(StateGroupCreated)

	default:
		return false
	}
	return true
}
