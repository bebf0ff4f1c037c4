// Package service provides the P2P coordinator.
//
// A Service owns the radio adapter on behalf of every application
// session. It runs a hierarchical state machine on a single event loop:
// application requests, adapter events, consent answers, DHCP results and
// the group creation timeout are queued and processed one at a time.
//
// # States
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
//
// A request the current state does not handle bubbles up to Default,
// which answers status queries and refuses everything else with Busy.
//
// Example usage:
//
//	config := service.DefaultConfig()
//	config.Driver = wpa.New(wpa.Config{Interface: "p2p0"})
//	config.NetConfig = netcfg.NewCommandConfigurator(netcfg.CommandConfig{}, nil, logger)
//
//	svc, err := service.New(config)
//	svc.Start(ctx)
//	defer svc.Stop()
//
//	svc.Enable()
//	reply, err := svc.Do(ctx, service.Request{Op: service.OpDiscoverPeers})
//
// # Events
//
// Observers register with OnEvent. Events are delivered from the event
// loop in the order the state changes happen; a formed group produces
// EventConnectionChanged followed by EventConnectionEstablished.
package service
