package service

import (
	"github.com/p2pcoord/p2pcoord-go/pkg/p2p"
	"github.com/p2pcoord/p2pcoord-go/pkg/statemachine"
)

func (s *Service) enterEnabled() {
	s.sendStateChanged(true)
	s.sendConnectionChanged()
	s.initializeSettings()
}

func (s *Service) exitEnabled() {
	s.sendStateChanged(false)
}

func (s *Service) processEnabled(msg *statemachine.Message) bool {
	if c := callOf(msg); c != nil {
		return s.enabledRequest(c)
	}

	switch msg.What {
	case whatEnable:
		// Already up.
	case whatDisable:
		if s.peers.Clear() {
			s.sendPeersChanged()
		}
		s.adapterErr("close connection", s.drv.CloseConnection())
		s.machine.TransitionTo(StateDisabling)
	case whatDisconnected:
		s.logger.Warn("unexpected loss of adapter connection")
		if s.group != nil {
			s.adapterErr("dhcp teardown", s.teardownAddressing(s.group))
			s.group = nil
		}
		s.pending = nil
		if s.peers.Clear() {
			s.sendPeersChanged()
		}
		s.machine.TransitionTo(StateDisabled)
	case whatDeviceFound:
		dev := eventOf(msg).Device
		if dev == nil || dev.Address == s.thisDevice.Address {
			return true
		}
		s.peers.Update(dev)
		s.sendPeersChanged()
	case whatDeviceLost:
		dev := eventOf(msg).Device
		if dev != nil && s.peers.Remove(dev.Address) {
			s.sendPeersChanged()
		}
	case whatFindStopped:
		s.sendDiscoveryChanged(false)
	case whatServDiscResponse:
		for _, resp := range eventOf(msg).Responses {
			if !s.servdisc.Dispatch(resp, s.peers.Get) {
				s.debugLog("service response without owner", "peer", resp.Device.Address, "tx", resp.TransactionID)
			}
		}
	default:
		return false
	}
	return true
}

func (s *Service) enabledRequest(c *call) bool {
	req := c.req
	switch req.Op {
	case OpSetDeviceName:
		if !s.setAndPersistDeviceName(req.DeviceName) {
			s.replyFailed(c, ReasonAdapter)
			return true
		}
		s.replyStatus(c, StatusSucceeded)

	case OpDiscoverPeers:
		// A peer find supersedes any service discovery in flight.
		s.servdisc.Cancel()
		if s.adapterErr("find", s.drv.Find(s.config.DiscoveryTimeout)) {
			s.replyFailed(c, ReasonAdapter)
			return true
		}
		s.replyStatus(c, StatusSucceeded)
		s.sendDiscoveryChanged(true)

	case OpStopDiscovery:
		s.replyResult(c, "stop find", s.drv.StopFind())

	case OpDiscoverServices:
		if !s.servdisc.Update() {
			s.replyFailed(c, ReasonNoServiceRequests)
			return true
		}
		if s.adapterErr("find", s.drv.Find(s.config.DiscoveryTimeout)) {
			s.replyFailed(c, ReasonAdapter)
			return true
		}
		s.replyStatus(c, StatusSucceeded)

	case OpAddLocalService:
		if req.Client == nil || req.Service == nil || !s.servdisc.AddLocalService(req.Client, req.Service) {
			s.replyFailed(c, ReasonAdapter)
			return true
		}
		s.mirrorAdd(req.Service)
		s.replyStatus(c, StatusSucceeded)

	case OpRemoveLocalService:
		if req.Client != nil && req.Service != nil {
			s.servdisc.RemoveLocalService(req.Client, req.Service)
		}
		s.replyStatus(c, StatusSucceeded)

	case OpClearLocalServices:
		if req.Client != nil {
			s.servdisc.ClearLocalServices(req.Client)
		}
		s.replyStatus(c, StatusSucceeded)

	case OpAddServiceRequest:
		if req.Client == nil || req.ServiceRequest == nil {
			s.replyFailed(c, ReasonAdapter)
			return true
		}
		stored, ok := s.servdisc.AddRequest(req.Client, req.ServiceRequest)
		if !ok {
			s.replyFailed(c, ReasonAdapter)
			return true
		}
		s.reply(c, Reply{Status: StatusSucceeded, ServiceRequest: stored.Clone()})

	case OpRemoveServiceRequest:
		if req.Client != nil && req.ServiceRequest != nil {
			s.servdisc.RemoveRequest(req.Client, req.ServiceRequest)
		}
		s.replyStatus(c, StatusSucceeded)

	case OpClearServiceRequests:
		if req.Client != nil {
			s.servdisc.ClearRequests(req.Client)
		}
		s.replyStatus(c, StatusSucceeded)

	default:
		return false
	}
	return true
}

func (s *Service) processInactive(msg *statemachine.Message) bool {
	if c := callOf(msg); c != nil {
		switch c.req.Op {
		case OpConnect:
			s.inactiveConnect(c)
		case OpCreateGroup:
			s.autonomous = true
			if s.adapterErr("group add", s.drv.GroupAdd()) {
				s.replyFailed(c, ReasonAdapter)
				return true
			}
			s.replyStatus(c, StatusAccepted)
			s.machine.TransitionTo(StateGroupNegotiation)
		default:
			return false
		}
		return true
	}

	switch msg.What {
	case whatGoNegRequest:
		cfg := eventOf(msg).Config
		if cfg == nil {
			return true
		}
		s.pending = cfg.Clone()
		s.autonomous = false
		s.joinExisting = false
		if !s.consent.SendConnectNotice(s.peers.Get(cfg.DeviceAddress), s.pending) {
			s.machine.TransitionTo(StateUserAuthorizingInvitation)
		}

	case whatInvitationRecv:
		s.invitationReceived(eventOf(msg).Group)

	case whatFindStopped:
		s.adapterErr("flush", s.drv.Flush())
		s.servdisc.Forget()
		s.sendDiscoveryChanged(false)

	case whatProvDiscPbcReq, whatProvDiscEnterPin, whatProvDiscShowPin:
		// A negotiation request follows.

	default:
		return false
	}
	return true
}

func (s *Service) inactiveConnect(c *call) {
	if c.req.Config == nil || c.req.Config.DeviceAddress == "" {
		s.replyFailed(c, ReasonAdapter)
		return
	}
	cfg := c.req.Config.Clone()
	addr := cfg.DeviceAddress
	s.autonomous = false

	s.refreshGroupCapability(addr)
	join := s.peers.IsGroupOwner(addr)

	switch {
	case s.pending != nil && s.pending.DeviceAddress == addr:
		// Answer the request the peer already made.
		s.pending = cfg
		s.adapterErr("stop find", s.drv.StopFind())
		s.connectWithPinDisplay(cfg, join)
		s.machine.TransitionTo(StateGroupNegotiation)

	case s.reinvoke(addr):
		s.pending = cfg
		s.machine.TransitionTo(StateGroupNegotiation)

	default:
		s.pending = cfg
		s.adapterErr("stop find", s.drv.StopFind())
		if join {
			// The owner runs provision discovery itself.
			s.connectWithPinDisplay(cfg, true)
			s.machine.TransitionTo(StateGroupNegotiation)
		} else {
			s.machine.TransitionTo(StateProvisionDiscovery)
		}
	}

	s.setPeerStatus(addr, p2p.StatusInvited)
	s.sendPeersChanged()
	s.replyStatus(c, StatusAccepted)
}

// reinvoke restarts a persistent group remembered for addr. A network the
// adapter refuses to reinvoke is forgotten.
func (s *Service) reinvoke(addr string) bool {
	if s.config.Store == nil {
		return false
	}
	netID, ok := s.config.Store.NetworkFor(addr)
	if !ok {
		return false
	}
	if s.adapterErr("reinvoke", s.drv.Reinvoke(netID, addr)) {
		if err := s.config.Store.ForgetNetwork(netID); err != nil {
			s.logger.Warn("forget network failed", "network", netID, "error", err)
		}
		return false
	}
	s.debugLog("reinvoked persistent group", "peer", addr, "network", netID)
	return true
}

func (s *Service) invitationReceived(g *p2p.Group) {
	if g == nil || g.Owner.Address == "" {
		s.debugLog("ignored invitation without owner")
		return
	}
	owner := g.Owner.Address

	cfg := p2p.NewConfig(owner)
	cfg.Wps.Setup = p2p.WpsForPeer(s.peers.Get(owner))
	s.pending = cfg
	s.autonomous = false
	s.joinExisting = true

	if g.NetworkID >= 0 && s.config.Store != nil {
		if err := s.config.Store.RememberGroup(owner, g.NetworkID, g.NetworkName); err != nil {
			s.logger.Warn("remember group failed", "peer", owner, "error", err)
		}
	}

	if !s.consent.SendConnectNotice(s.peers.Get(owner), s.pending) {
		s.machine.TransitionTo(StateUserAuthorizingInvitation)
	}
}
