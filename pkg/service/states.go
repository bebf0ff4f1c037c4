package service

import (
	"github.com/p2pcoord/p2pcoord-go/pkg/session"
	"github.com/p2pcoord/p2pcoord-go/pkg/statemachine"
)

// states is the state table. Parents come before their children.
//
//	Default
//	├── NotSupported
//	├── Disabling
//	├── Disabled
//	├── Enabling
//	└── Enabled
//	    ├── Inactive
//	    ├── GroupCreating
//	    │   ├── UserAuthorizingInvitation
//	    │   ├── ProvisionDiscovery
//	    │   └── GroupNegotiation
//	    └── GroupCreated
//	        └── UserAuthorizingJoin
func (s *Service) states() []statemachine.State {
	return []statemachine.State{
		{Name: StateDefault, Process: s.processDefault},
		{Name: StateNotSupported, Parent: StateDefault, Process: s.processNotSupported},
		{Name: StateDisabling, Parent: StateDefault, Process: s.processDisabling},
		{Name: StateDisabled, Parent: StateDefault, Process: s.processDisabled},
		{Name: StateEnabling, Parent: StateDefault, Process: s.processEnabling},
		{
			Name:    StateEnabled,
			Parent:  StateDefault,
			Enter:   s.enterEnabled,
			Exit:    s.exitEnabled,
			Process: s.processEnabled,
		},
		{Name: StateInactive, Parent: StateEnabled, Process: s.processInactive},
		{
			Name:    StateGroupCreating,
			Parent:  StateEnabled,
			Enter:   s.enterGroupCreating,
			Process: s.processGroupCreating,
		},
		{
			Name:    StateUserAuthorizingInvitation,
			Parent:  StateGroupCreating,
			Enter:   s.enterUserAuthorizingInvitation,
			Process: s.processUserAuthorizingInvitation,
		},
		{
			Name:    StateProvisionDiscovery,
			Parent:  StateGroupCreating,
			Enter:   s.enterProvisionDiscovery,
			Process: s.processProvisionDiscovery,
		},
		{Name: StateGroupNegotiation, Parent: StateGroupCreating, Process: s.processGroupNegotiation},
		{
			Name:    StateGroupCreated,
			Parent:  StateEnabled,
			Enter:   s.enterGroupCreated,
			Exit:    s.exitGroupCreated,
			Process: s.processGroupCreated,
		},
		{
			Name:    StateUserAuthorizingJoin,
			Parent:  StateGroupCreated,
			Enter:   s.enterUserAuthorizingJoin,
			Process: s.processUserAuthorizingJoin,
		},
	}
}

// processDefault answers snapshot queries everywhere and refuses every
// other operation with Busy. Stray adapter events are dropped.
func (s *Service) processDefault(msg *statemachine.Message) bool {
	if c := callOf(msg); c != nil {
		switch c.req.Op {
		case OpRequestPeers:
			s.reply(c, Reply{Status: StatusSucceeded, Peers: s.peers.Devices()})
		case OpRequestConnectionInfo:
			info := s.info
			s.reply(c, Reply{Status: StatusSucceeded, Info: &info})
		case OpRequestGroupInfo:
			s.reply(c, Reply{Status: StatusSucceeded, Group: s.group.Clone()})
		case OpSetDialogListener:
			s.setDialogListener(c)
		default:
			s.replyFailed(c, ReasonBusy)
		}
		return true
	}

	switch msg.What {
	case whatGroupStarted:
		// Nobody asked for this group.
		if g := eventOf(msg).Group; g != nil {
			s.logger.Warn("unexpected group started, removing", "iface", g.Interface)
			s.adapterErr("group remove", s.drv.GroupRemove(g.Interface))
		}
	case whatSessionGone:
		if id, ok := msg.Obj.(string); ok && s.servdisc.DropSession(id) {
			s.debugLog("session dropped", "session", id)
		}
	case whatEnable, whatDisable, whatUserAccept, whatUserReject,
		whatGroupCreatingTimeout, whatDhcpResult:
		s.debugLog("ignored", "state", s.machine.Current(), "msg", describe(msg))
	default:
		if !isDriverEvent(msg) {
			return false
		}
		s.debugLog("ignored adapter event", "state", s.machine.Current(), "event", describe(msg))
	}
	return true
}

func (s *Service) setDialogListener(c *call) {
	if err := s.consent.SetListener(c.req.Client, c.req.Reset); err != nil {
		s.replyFailed(c, ReasonNotForeground)
		return
	}
	if !c.req.Reset && c.req.Client != nil {
		_ = c.req.Client.Deliver(session.Message{Type: session.MsgListenerAttached})
	}
	s.replyStatus(c, StatusSucceeded)
}

// processNotSupported is terminal: every operation is refused.
func (s *Service) processNotSupported(msg *statemachine.Message) bool {
	c := callOf(msg)
	if c == nil {
		return false
	}
	switch c.req.Op {
	case OpRequestPeers, OpRequestConnectionInfo, OpRequestGroupInfo:
		return false
	case OpSetDialogListener:
		if c.req.Client != nil {
			_ = c.req.Client.Deliver(session.Message{
				Type:   session.MsgListenerDetached,
				Reason: ReasonUnsupported.String(),
			})
		}
	}
	s.replyFailed(c, ReasonUnsupported)
	return true
}

func (s *Service) processDisabling(msg *statemachine.Message) bool {
	switch msg.What {
	case whatDisconnected:
		s.debugLog("adapter connection closed")
		s.machine.TransitionTo(StateDisabled)
	case whatEnable, whatDisable:
		s.machine.Defer(msg)
	default:
		return false
	}
	return true
}

func (s *Service) processDisabled(msg *statemachine.Message) bool {
	switch msg.What {
	case whatEnable:
		if err := s.netcfg.SetInterfaceUp(s.config.Interface); err != nil {
			s.adapterErr("interface up", err)
		}
		if s.adapterErr("start monitoring", s.drv.StartMonitoring(s.onDriverEvent)) {
			return true
		}
		s.machine.TransitionTo(StateEnabling)
	case whatDisable:
		// Already down.
	default:
		return false
	}
	return true
}

func (s *Service) processEnabling(msg *statemachine.Message) bool {
	switch msg.What {
	case whatConnected:
		s.machine.TransitionTo(StateInactive)
	case whatConnectFailed, whatDisconnected:
		s.logger.Warn("adapter connection failed", "event", describe(msg))
		s.machine.TransitionTo(StateDisabled)
	case whatEnable, whatDisable:
		s.machine.Defer(msg)
	default:
		return false
	}
	return true
}
