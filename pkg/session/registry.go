package session

import (
	"sort"

	"github.com/p2pcoord/p2pcoord-go/pkg/nsd"
)

// Session holds the service registrations of one application session.
type Session struct {
	client   Client
	requests map[uint8]*nsd.ServiceRequest
	services []*nsd.ServiceInfo
}

// Client returns the session handle.
func (s *Session) Client() Client { return s.client }

// ID returns the session id.
func (s *Session) ID() string { return s.client.ID() }

// Request returns the request registered under transaction id, or nil.
func (s *Session) Request(txID uint8) *nsd.ServiceRequest {
	return s.requests[txID]
}

// Requests returns the registered requests ordered by transaction id.
func (s *Session) Requests() []*nsd.ServiceRequest {
	ids := make([]int, 0, len(s.requests))
	for id := range s.requests {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	out := make([]*nsd.ServiceRequest, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.requests[uint8(id)])
	}
	return out
}

// Services returns the registered local services in registration order.
func (s *Session) Services() []*nsd.ServiceInfo {
	return append([]*nsd.ServiceInfo(nil), s.services...)
}

func (s *Session) empty() bool {
	return len(s.requests) == 0 && len(s.services) == 0
}

// Registry maps session ids to their registrations.
type Registry struct {
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Get returns the session for c, creating it when create is set.
func (r *Registry) Get(c Client, create bool) *Session {
	if c == nil {
		return nil
	}
	if s, ok := r.sessions[c.ID()]; ok {
		return s
	}
	if !create {
		return nil
	}
	s := &Session{client: c, requests: make(map[uint8]*nsd.ServiceRequest)}
	r.sessions[c.ID()] = s
	return s
}

// AddRequest stores req under its transaction id.
func (r *Registry) AddRequest(c Client, req *nsd.ServiceRequest) {
	s := r.Get(c, true)
	if s == nil {
		return
	}
	s.requests[req.TransactionID] = req
}

// RemoveRequest drops the first request of c matching req and reports
// whether one was found. The session is evicted once empty.
func (r *Registry) RemoveRequest(c Client, req *nsd.ServiceRequest) bool {
	s := r.Get(c, false)
	if s == nil {
		return false
	}
	for _, cur := range s.Requests() {
		if cur.Matches(req) {
			delete(s.requests, cur.TransactionID)
			r.evictIfEmpty(s)
			return true
		}
	}
	return false
}

// ClearRequests drops every request of c and reports whether any existed.
func (r *Registry) ClearRequests(c Client) bool {
	s := r.Get(c, false)
	if s == nil || len(s.requests) == 0 {
		return false
	}
	clear(s.requests)
	r.evictIfEmpty(s)
	return true
}

// AddService registers info for c. It reports false if c already
// registered the same service.
func (r *Registry) AddService(c Client, info *nsd.ServiceInfo) bool {
	s := r.Get(c, true)
	if s == nil {
		return false
	}
	for _, cur := range s.services {
		if cur.Equal(info) {
			return false
		}
	}
	s.services = append(s.services, info)
	return true
}

// RemoveService drops info from c and returns the stored descriptor.
func (r *Registry) RemoveService(c Client, info *nsd.ServiceInfo) *nsd.ServiceInfo {
	s := r.Get(c, false)
	if s == nil {
		return nil
	}
	for i, cur := range s.services {
		if cur.Equal(info) {
			s.services = append(s.services[:i], s.services[i+1:]...)
			r.evictIfEmpty(s)
			return cur
		}
	}
	return nil
}

// ClearServices drops every local service of c and returns them.
func (r *Registry) ClearServices(c Client) []*nsd.ServiceInfo {
	s := r.Get(c, false)
	if s == nil {
		return nil
	}
	out := s.services
	s.services = nil
	r.evictIfEmpty(s)
	return out
}

// Remove purges the session with the given id and returns it.
func (r *Registry) Remove(id string) *Session {
	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	delete(r.sessions, id)
	return s
}

// Probe sends a ping to every session and purges the ones that fail.
// The purged sessions are returned so their services can be withdrawn.
func (r *Registry) Probe() []*Session {
	var dead []*Session
	for _, s := range r.Sessions() {
		if err := s.client.Deliver(Message{Type: MsgPing}); err != nil {
			dead = append(dead, r.Remove(s.ID()))
		}
	}
	return dead
}

// Sessions returns all sessions ordered by id.
func (r *Registry) Sessions() []*Session {
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Services returns every registered local service across sessions.
func (r *Registry) Services() []*nsd.ServiceInfo {
	var out []*nsd.ServiceInfo
	for _, s := range r.Sessions() {
		out = append(out, s.services...)
	}
	return out
}

// RequestInUse reports whether any session holds a request under txID.
func (r *Registry) RequestInUse(txID uint8) bool {
	for _, s := range r.sessions {
		if _, ok := s.requests[txID]; ok {
			return true
		}
	}
	return false
}

// Len returns the number of sessions.
func (r *Registry) Len() int { return len(r.sessions) }

// Clear forgets every session.
func (r *Registry) Clear() { clear(r.sessions) }

func (r *Registry) evictIfEmpty(s *Session) {
	if s.empty() {
		delete(r.sessions, s.ID())
	}
}
