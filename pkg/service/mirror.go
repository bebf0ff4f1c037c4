package service

import "github.com/p2pcoord/p2pcoord-go/pkg/nsd"

// Local services are mirrored over mDNS on the group interface while a
// group is usable. Without an Advertiser these are no-ops.

func (s *Service) startMirror() {
	if s.mirror == nil || s.group == nil {
		return
	}
	n := s.mirror.Start(s.ctx, s.group.Interface, s.sessions.Services())
	s.debugLog("mdns mirror started", "iface", s.group.Interface, "services", n)
}

func (s *Service) stopMirror() {
	if s.mirror == nil {
		return
	}
	s.mirror.Stop()
}

func (s *Service) mirrorAdd(info *nsd.ServiceInfo) {
	if s.mirror == nil {
		return
	}
	s.mirror.Add(s.ctx, info)
}

func (s *Service) mirrorRemove(info *nsd.ServiceInfo) {
	if s.mirror == nil {
		return
	}
	s.mirror.Remove(info)
}
