package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/p2pcoord/p2pcoord-go/pkg/nsd"
	"github.com/p2pcoord/p2pcoord-go/pkg/p2p"
)

// Client errors.
var (
	ErrClientClosed = errors.New("client closed")
	ErrQueueFull    = errors.New("client queue full")
)

// MessageType identifies an unsolicited message sent to a session.
type MessageType uint8

const (
	// MsgPing is a liveness probe. It carries no payload.
	MsgPing MessageType = iota
	// MsgServiceResponse carries a service discovery response.
	MsgServiceResponse
	// MsgConnectionRequested asks the foreground listener to confirm an
	// inbound connection.
	MsgConnectionRequested
	// MsgShowPinRequested asks the foreground listener to display a PIN.
	MsgShowPinRequested
	// MsgListenerAttached confirms a consent listener registration.
	MsgListenerAttached
	// MsgListenerDetached tells a listener it was revoked.
	MsgListenerDetached
)

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case MsgPing:
		return "PING"
	case MsgServiceResponse:
		return "SERVICE_RESPONSE"
	case MsgConnectionRequested:
		return "CONNECTION_REQUESTED"
	case MsgShowPinRequested:
		return "SHOW_PIN_REQUESTED"
	case MsgListenerAttached:
		return "LISTENER_ATTACHED"
	case MsgListenerDetached:
		return "LISTENER_DETACHED"
	default:
		return "UNKNOWN"
	}
}

// Message is an unsolicited message for a session.
type Message struct {
	Type MessageType

	Response *nsd.ServiceResponse
	Device   *p2p.Device
	Config   *p2p.Config
	PIN      string

	// Reason explains a detach.
	Reason string
}

// Client is the transport-facing handle of an application session.
type Client interface {
	// ID uniquely identifies the session.
	ID() string

	// Deliver sends msg to the session without blocking. A non-nil
	// error means the session is unreachable.
	Deliver(msg Message) error
}

// ChanClient is an in-process Client backed by a buffered channel.
type ChanClient struct {
	id string
	ch chan Message

	mu     sync.Mutex
	closed bool
}

// NewChanClient creates a client with a fresh session id and room for
// size queued messages.
func NewChanClient(size int) *ChanClient {
	return &ChanClient{
		id: uuid.NewString(),
		ch: make(chan Message, size),
	}
}

// ID returns the session id.
func (c *ChanClient) ID() string { return c.id }

// Deliver queues msg. Pings are answered without queueing.
func (c *ChanClient) Deliver(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	if msg.Type == MsgPing {
		return nil
	}
	select {
	case c.ch <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Messages returns the receive side of the queue. It is closed by Close.
func (c *ChanClient) Messages() <-chan Message { return c.ch }

// Close marks the client dead. Safe to call more than once.
func (c *ChanClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}

// Compile-time interface satisfaction check.
var _ Client = (*ChanClient)(nil)
