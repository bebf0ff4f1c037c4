package log

import "time"

// Event is one captured protocol event. CBOR encoding uses integer keys
// for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID correlates events of one control connection or one
	// coordinator run (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	Direction Direction `cbor:"3,keyasint"`
	Layer     Layer     `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// SessionID is the application session concerned, if any.
	SessionID string `cbor:"6,keyasint,omitempty"`

	// PeerAddress is the P2P device address concerned, if any.
	PeerAddress string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Control socket line
	Driver      *DriverEventData  `cbor:"11,keyasint,omitempty"` // Parsed adapter event
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Coordinator state
	Request     *RequestEvent     `cbor:"13,keyasint,omitempty"` // Application request/reply
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates message flow relative to the coordinator.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates where the event was captured.
type Layer uint8

const (
	// LayerTransport is the raw control socket.
	LayerTransport Layer = 0
	// LayerDriver is the parsed adapter event stream.
	LayerDriver Layer = 1
	// LayerService is the coordinator and its application surface.
	LayerService Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerDriver:
		return "DRIVER"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryRequest Category = 1
	CategoryState   Category = 2
	CategoryError   Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryRequest:
		return "REQUEST"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent is a raw control socket line.
type FrameEvent struct {
	Size int    `cbor:"1,keyasint"`
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates Data was cut short.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// DriverEventData is a parsed adapter event.
type DriverEventData struct {
	// Type is the event name, e.g. GROUP_STARTED.
	Type string `cbor:"1,keyasint"`

	Interface string `cbor:"2,keyasint,omitempty"`
	Status    *int   `cbor:"3,keyasint,omitempty"`
	Detail    string `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures coordinator lifecycle changes.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	// StateEntityMachine is the coordination state machine.
	StateEntityMachine StateEntity = 0
	// StateEntityConnectivity is the group network connectivity.
	StateEntityConnectivity StateEntity = 1
	// StateEntityPeer is a peer's discovery/connection status.
	StateEntityPeer StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityMachine:
		return "MACHINE"
	case StateEntityConnectivity:
		return "CONNECTIVITY"
	case StateEntityPeer:
		return "PEER"
	default:
		return "UNKNOWN"
	}
}

// RequestEvent is an application request (DirectionIn) or its reply
// (DirectionOut).
type RequestEvent struct {
	Op     string `cbor:"1,keyasint"`
	Status string `cbor:"2,keyasint,omitempty"`
	Reason string `cbor:"3,keyasint,omitempty"`

	// ProcessingTime is set on replies. Stored as nanoseconds.
	ProcessingTime *time.Duration `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`
	Code    *int   `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
