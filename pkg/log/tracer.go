package log

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// Tracer stamps service-layer events with a run id and the current time
// before handing them to a Logger.
type Tracer struct {
	logger Logger
	clock  clock.Clock
	runID  string
}

// NewTracer returns a tracer writing to logger. A nil logger discards and
// a nil clock uses the wall clock.
func NewTracer(logger Logger, clk clock.Clock) *Tracer {
	if clk == nil {
		clk = clock.New()
	}
	return &Tracer{logger: OrNoop(logger), clock: clk, runID: uuid.NewString()}
}

// RunID returns the id placed in every event's ConnectionID.
func (t *Tracer) RunID() string {
	return t.runID
}

func (t *Tracer) emit(e Event) {
	e.Timestamp = t.clock.Now()
	e.ConnectionID = t.runID
	e.Layer = LayerService
	t.logger.Log(e)
}

// StateChange records a transition of entity from old to new.
func (t *Tracer) StateChange(entity StateEntity, old, new, reason string) {
	t.emit(Event{
		Direction: DirectionOut,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   entity,
			OldState: old,
			NewState: new,
			Reason:   reason,
		},
	})
}

// PeerState records a peer status change.
func (t *Tracer) PeerState(addr, old, new string) {
	t.emit(Event{
		Direction:   DirectionOut,
		Category:    CategoryState,
		PeerAddress: addr,
		StateChange: &StateChangeEvent{Entity: StateEntityPeer, OldState: old, NewState: new},
	})
}

// Request records an inbound application request.
func (t *Tracer) Request(sessionID, op string) {
	t.emit(Event{
		Direction: DirectionIn,
		Category:  CategoryRequest,
		SessionID: sessionID,
		Request:   &RequestEvent{Op: op},
	})
}

// Reply records the answer to a request received at start.
func (t *Tracer) Reply(sessionID, op, status, reason string, start time.Time) {
	d := t.clock.Since(start)
	t.emit(Event{
		Direction: DirectionOut,
		Category:  CategoryRequest,
		SessionID: sessionID,
		Request:   &RequestEvent{Op: op, Status: status, Reason: reason, ProcessingTime: &d},
	})
}

// Driver records a parsed adapter event.
func (t *Tracer) Driver(kind, peer, iface string, status *int) {
	e := Event{
		Direction:   DirectionIn,
		Category:    CategoryMessage,
		PeerAddress: peer,
		Driver:      &DriverEventData{Type: kind, Interface: iface, Status: status},
	}
	e.Timestamp = t.clock.Now()
	e.ConnectionID = t.runID
	e.Layer = LayerDriver
	t.logger.Log(e)
}

// Error records a failure at layer while doing context.
func (t *Tracer) Error(layer Layer, context string, err error) {
	if err == nil {
		return
	}
	t.emit(Event{
		Direction: DirectionOut,
		Category:  CategoryError,
		Error:     &ErrorEventData{Layer: layer, Message: err.Error(), Context: context},
	})
}
