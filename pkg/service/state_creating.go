package service

import (
	"github.com/p2pcoord/p2pcoord-go/pkg/p2p"
	"github.com/p2pcoord/p2pcoord-go/pkg/statemachine"
)

func (s *Service) enterGroupCreating() {
	s.startGroupCreatingTimer()
}

func (s *Service) processGroupCreating(msg *statemachine.Message) bool {
	if c := callOf(msg); c != nil {
		switch c.req.Op {
		case OpDiscoverPeers:
			s.replyFailed(c, ReasonBusy)
		case OpCancelConnect:
			// Whatever the adapter says, the attempt is over.
			s.adapterErr("cancel connect", s.drv.CancelConnect())
			s.groupCreationFailure()
			s.machine.TransitionTo(StateInactive)
			s.replyStatus(c, StatusSucceeded)
		default:
			return false
		}
		return true
	}

	switch msg.What {
	case whatGroupCreatingTimeout:
		if msg.Arg != s.timeoutGen {
			s.debugLog("stale group creation timeout", "gen", msg.Arg, "current", s.timeoutGen)
			return true
		}
		s.logger.Info("group creation timed out")
		s.groupCreationFailure()
		s.machine.TransitionTo(StateInactive)
	case whatDeviceLost:
		dev := eventOf(msg).Device
		if dev != nil && s.pending != nil && dev.Address != s.pending.DeviceAddress {
			return false
		}
		s.debugLog("ignored loss of negotiating peer")
	default:
		return false
	}
	return true
}

func (s *Service) enterUserAuthorizingInvitation() {
	if s.pending == nil {
		return
	}
	addr := s.pending.DeviceAddress
	if s.prompter == nil {
		s.logger.Info("connection request awaiting answer", "peer", addr, "wps", s.pending.Wps.Setup)
		return
	}
	s.prompter.PromptInvitation(s.deviceFor(addr), *s.pending)
}

func (s *Service) processUserAuthorizingInvitation(msg *statemachine.Message) bool {
	switch msg.What {
	case whatUserAccept:
		if s.pending == nil {
			s.machine.TransitionTo(StateInactive)
			return true
		}
		if pin, _ := msg.Obj.(string); pin != "" && s.pending.Wps.Setup == p2p.WpsKeypad {
			s.pending.Wps.PIN = pin
		}
		s.adapterErr("stop find", s.drv.StopFind())
		s.connectWithPinDisplay(s.pending, s.joinExisting)
		s.setPeerStatus(s.pending.DeviceAddress, p2p.StatusInvited)
		s.sendPeersChanged()
		s.machine.TransitionTo(StateGroupNegotiation)
	case whatUserReject:
		s.debugLog("connection request rejected")
		s.pending = nil
		s.machine.TransitionTo(StateInactive)
	default:
		return false
	}
	return true
}

func (s *Service) enterProvisionDiscovery() {
	if s.pending == nil {
		return
	}
	if s.adapterErr("provision discovery", s.drv.ProvisionDiscovery(s.pending)) {
		s.groupCreationFailure()
		s.machine.TransitionTo(StateInactive)
	}
}

func (s *Service) processProvisionDiscovery(msg *statemachine.Message) bool {
	switch msg.What {
	case whatProvDiscPbcResp, whatProvDiscEnterPin, whatProvDiscShowPin:
	default:
		return false
	}

	ev := eventOf(msg)
	if s.pending == nil || ev.Device == nil || ev.Device.Address != s.pending.DeviceAddress {
		return false
	}
	setup := s.pending.Wps.Setup

	switch {
	case msg.What == whatProvDiscPbcResp && setup == p2p.WpsPBC:
		s.connectWithPinDisplay(s.pending, false)
		s.machine.TransitionTo(StateGroupNegotiation)

	case msg.What == whatProvDiscEnterPin && setup == p2p.WpsKeypad:
		if s.pending.Wps.PIN != "" {
			s.connectWithPinDisplay(s.pending, false)
			s.machine.TransitionTo(StateGroupNegotiation)
			return true
		}
		s.joinExisting = false
		s.machine.TransitionTo(StateUserAuthorizingInvitation)

	case msg.What == whatProvDiscShowPin && setup == p2p.WpsDisplay:
		s.pending.Wps.PIN = ev.PIN
		s.connectWithPinDisplay(s.pending, false)
		s.showPin(s.pending.DeviceAddress, ev.PIN)
		s.machine.TransitionTo(StateGroupNegotiation)

	default:
		return false
	}
	return true
}

func (s *Service) processGroupNegotiation(msg *statemachine.Message) bool {
	switch msg.What {
	case whatGoNegSuccess, whatFormationSuccess:
		// Group started is the signal that counts.
	case whatGroupStarted:
		g := eventOf(msg).Group
		if g == nil {
			return true
		}
		s.groupStarted(g)
	case whatGoNegFailure, whatGroupRemoved:
		s.debugLog("group negotiation failed", "event", describe(msg))
		s.groupCreationFailure()
		s.machine.TransitionTo(StateInactive)
	case whatFormationFailure:
		// Always followed by group removed, which does the cleanup.
	default:
		return false
	}
	return true
}

func (s *Service) groupStarted(g *p2p.Group) {
	s.group = g.Clone()
	iface := s.group.Interface
	s.metrics.groupsFormed.WithLabelValues(roleLabel(s.group.IsOwner)).Inc()

	if s.group.IsOwner {
		s.adapterErr("dhcp server start", s.netcfg.StartDHCPServer(iface))
	} else {
		s.adapterErr("set group idle", s.drv.SetGroupIdle(iface, s.config.GroupIdleTime))
		s.startDHCPClient(iface)
		s.setPeerStatus(s.group.Owner.Address, p2p.StatusConnected)
		s.sendPeersChanged()
	}
	s.logger.Info("group started", "iface", iface, "owner", s.group.IsOwner, "ssid", s.group.NetworkName)

	s.pending = nil
	s.machine.TransitionTo(StateGroupCreated)
}
