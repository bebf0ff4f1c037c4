// Package servdisc merges the service discovery registrations of every
// application session into the single adapter-level state the radio
// supports: one set of local services and one outstanding discovery
// request.
package servdisc

import (
	"log/slog"
	"strings"

	"github.com/p2pcoord/p2pcoord-go/pkg/nsd"
	"github.com/p2pcoord/p2pcoord-go/pkg/p2p"
	"github.com/p2pcoord/p2pcoord-go/pkg/session"
)

// BroadcastAddress targets a discovery request at every peer.
const BroadcastAddress = "00:00:00:00:00:00"

// Adapter is the subset of the driver the aggregator needs.
type Adapter interface {
	ServiceAdd(info *nsd.ServiceInfo) error
	ServiceDel(info *nsd.ServiceInfo) error
	ServiceDiscoveryRequest(addr, query string) (string, error)
	ServiceDiscoveryCancel(id string) error
}

// PeerLookup resolves a peer address against the peer registry.
type PeerLookup func(addr string) *p2p.Device

// Aggregator owns the transaction id counter and the outstanding
// discovery request id.
type Aggregator struct {
	adapter  Adapter
	sessions *session.Registry
	logger   *slog.Logger

	txID  uint8
	reqID string

	onWithdraw func(*nsd.ServiceInfo)
}

// New creates an aggregator over sessions. logger may be nil.
func New(adapter Adapter, sessions *session.Registry, logger *slog.Logger) *Aggregator {
	return &Aggregator{adapter: adapter, sessions: sessions, logger: logger}
}

// SetWithdrawHandler registers fn to be called with every local service
// withdrawn from the adapter, whichever path removed it.
func (a *Aggregator) SetWithdrawHandler(fn func(*nsd.ServiceInfo)) {
	a.onWithdraw = fn
}

// Reset forgets the transaction counter and the outstanding request
// without talking to the adapter.
func (a *Aggregator) Reset() {
	a.txID = 0
	a.reqID = ""
}

// RequestID returns the outstanding adapter request id, or "".
func (a *Aggregator) RequestID() string { return a.reqID }

// Active reports whether a combined request is outstanding.
func (a *Aggregator) Active() bool { return a.reqID != "" }

// Forget drops the outstanding request id without cancelling it, for
// when the adapter has already discarded it (flush, group teardown).
func (a *Aggregator) Forget() { a.reqID = "" }

// nextTransactionID returns the next id not held by a registered
// request, skipping zero on wrap. It reports false when all 255 ids are
// in use.
func (a *Aggregator) nextTransactionID() (uint8, bool) {
	for range 255 {
		a.txID++
		if a.txID == 0 {
			a.txID++
		}
		if !a.sessions.RequestInUse(a.txID) {
			return a.txID, true
		}
	}
	return 0, false
}

// CombinedQuery concatenates every live request of every session.
func (a *Aggregator) CombinedQuery() string {
	var sb strings.Builder
	for _, s := range a.sessions.Sessions() {
		for _, req := range s.Requests() {
			sb.WriteString(req.SupplicantQuery())
		}
	}
	return sb.String()
}

// Cancel withdraws the outstanding request, if any.
func (a *Aggregator) Cancel() {
	if a.reqID == "" {
		return
	}
	if err := a.adapter.ServiceDiscoveryCancel(a.reqID); err != nil {
		a.debug("discovery cancel failed", "id", a.reqID, "error", err)
	}
	a.reqID = ""
}

// Update cancels the outstanding request and submits the recomputed
// combined query. It reports false when there is nothing to submit or
// the adapter refused the submission.
func (a *Aggregator) Update() bool {
	a.Cancel()

	query := a.CombinedQuery()
	if query == "" {
		return false
	}
	id, err := a.adapter.ServiceDiscoveryRequest(BroadcastAddress, query)
	if err != nil || id == "" {
		a.debug("discovery request failed", "error", err)
		return false
	}
	a.reqID = id
	return true
}

// AddRequest assigns a transaction id to a copy of req, registers it for
// c and resubmits the combined query. It returns the registered copy and
// whether the submission succeeded.
func (a *Aggregator) AddRequest(c session.Client, req *nsd.ServiceRequest) (*nsd.ServiceRequest, bool) {
	a.purgeDead()

	id, ok := a.nextTransactionID()
	if !ok {
		a.debug("no free transaction id", "session", c.ID())
		return nil, false
	}
	stored := req.Clone()
	stored.TransactionID = id
	a.sessions.AddRequest(c, stored)
	return stored, a.Update()
}

// RemoveRequest drops the matching request of c and resubmits.
func (a *Aggregator) RemoveRequest(c session.Client, req *nsd.ServiceRequest) {
	if !a.sessions.RemoveRequest(c, req) {
		return
	}
	a.Update()
}

// ClearRequests drops every request of c and resubmits.
func (a *Aggregator) ClearRequests(c session.Client) {
	if !a.sessions.ClearRequests(c) {
		return
	}
	a.Update()
}

// AddLocalService registers info for c with the adapter.
func (a *Aggregator) AddLocalService(c session.Client, info *nsd.ServiceInfo) bool {
	a.PurgeDead()

	if !a.sessions.AddService(c, info) {
		return false
	}
	if err := a.adapter.ServiceAdd(info); err != nil {
		a.debug("service add failed", "service", info.String(), "error", err)
		a.sessions.RemoveService(c, info)
		return false
	}
	return true
}

// RemoveLocalService withdraws info registered by c.
func (a *Aggregator) RemoveLocalService(c session.Client, info *nsd.ServiceInfo) {
	stored := a.sessions.RemoveService(c, info)
	if stored == nil {
		return
	}
	a.serviceDel(stored)
}

// ClearLocalServices withdraws every service registered by c.
func (a *Aggregator) ClearLocalServices(c session.Client) {
	for _, info := range a.sessions.ClearServices(c) {
		a.serviceDel(info)
	}
}

// PurgeDead probes every session and withdraws the services of the ones
// that no longer answer. The combined query is resubmitted when a purged
// session had requests. It reports the number of purged sessions.
func (a *Aggregator) PurgeDead() int {
	n, resubmit := a.purgeDead()
	if resubmit {
		a.Update()
	}
	return n
}

func (a *Aggregator) purgeDead() (n int, resubmit bool) {
	dead := a.sessions.Probe()
	for _, s := range dead {
		a.debug("purging dead session", "session", s.ID())
		if a.retire(s) {
			resubmit = true
		}
	}
	return len(dead), resubmit
}

// retire withdraws the services of a removed session and reports whether
// it held requests.
func (a *Aggregator) retire(s *session.Session) bool {
	for _, info := range s.Services() {
		a.serviceDel(info)
	}
	return len(s.Requests()) > 0
}

// DropSession forgets the session with id, withdrawing its services and
// resubmitting the combined query if it had requests. It reports whether
// the session was known.
func (a *Aggregator) DropSession(id string) bool {
	s := a.sessions.Remove(id)
	if s == nil {
		return false
	}
	if a.retire(s) {
		a.Update()
	}
	return true
}

// Dispatch delivers resp to the session owning its transaction id,
// annotated with the registry entry of the responding peer when known.
// It reports whether an owner was found.
func (a *Aggregator) Dispatch(resp *nsd.ServiceResponse, lookup PeerLookup) bool {
	for _, s := range a.sessions.Sessions() {
		if s.Request(resp.TransactionID) == nil {
			continue
		}
		out := *resp
		if lookup != nil {
			if dev := lookup(resp.Device.Address); dev != nil {
				out.Device = *dev
			}
		}
		if err := s.Client().Deliver(session.Message{Type: session.MsgServiceResponse, Response: &out}); err != nil {
			a.debug("response delivery failed, purging session", "session", s.ID(), "error", err)
			if purged := a.sessions.Remove(s.ID()); purged != nil && a.retire(purged) {
				a.Update()
			}
		}
		return true
	}
	return false
}

func (a *Aggregator) serviceDel(info *nsd.ServiceInfo) {
	if err := a.adapter.ServiceDel(info); err != nil {
		a.debug("service del failed", "service", info.String(), "error", err)
	}
	if a.onWithdraw != nil {
		a.onWithdraw(info)
	}
}

func (a *Aggregator) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
