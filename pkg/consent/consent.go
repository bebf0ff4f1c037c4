// Package consent routes user-consent requests for inbound connections.
//
// A single foreground session may register as the consent listener. While
// it is in the foreground it receives connection-requested and
// show-pin-requested messages and answers by issuing its own requests.
// Otherwise the coordinator falls back to a Prompter, which renders a
// local dialog and reports the answer asynchronously.
package consent

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/p2pcoord/p2pcoord-go/pkg/p2p"
	"github.com/p2pcoord/p2pcoord-go/pkg/session"
)

// ErrNotForeground is returned when a listener registration comes from,
// or would displace, a session that is not allowed to own the listener.
var ErrNotForeground = errors.New("session not in foreground")

// ReasonNotForeground is the detach reason sent to a revoked listener.
const ReasonNotForeground = "not in foreground"

// ForegroundFunc reports whether the session with id is in the foreground.
type ForegroundFunc func(sessionID string) bool

// Prompter shows consent dialogs. Calls must not block; the user's answer
// is fed back to the coordinator as an accept or reject.
type Prompter interface {
	// PromptInvitation asks whether to accept a connection from dev.
	// A keypad setup in cfg means the answer carries a PIN.
	PromptInvitation(dev p2p.Device, cfg p2p.Config)

	// PromptJoin asks whether dev may join the group we own.
	PromptJoin(dev p2p.Device, cfg p2p.Config)

	// ShowPin displays a PIN the user must enter on the peer.
	ShowPin(peerName, pin string)
}

// Manager owns the consent listener registration.
type Manager struct {
	mu           sync.Mutex
	isForeground ForegroundFunc
	listener     session.Client
	logger       *slog.Logger
}

// NewManager returns a manager using isForeground. A nil predicate
// treats every session as background.
func NewManager(isForeground ForegroundFunc, logger *slog.Logger) *Manager {
	if isForeground == nil {
		isForeground = func(string) bool { return false }
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{isForeground: isForeground, logger: logger}
}

// Listener returns the registered listener, or nil.
func (m *Manager) Listener() session.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listener
}

func (m *Manager) foreground(c session.Client) bool {
	return c != nil && m.isForeground(c.ID())
}

// SetListener registers c, or with reset clears the registration. A
// listener belonging to another session is displaced only when that
// session has left the foreground; it is told so. Registering requires c
// to be in the foreground.
func (m *Manager) SetListener(c session.Client, reset bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listener != nil && (c == nil || m.listener.ID() != c.ID()) {
		if m.foreground(m.listener) {
			return ErrNotForeground
		}
		m.detachLocked(ReasonNotForeground)
	}

	if reset {
		m.listener = nil
		return nil
	}
	if !m.foreground(c) {
		return ErrNotForeground
	}
	m.listener = c
	m.logger.Debug("consent listener set", "session", c.ID())
	return nil
}

// Forget drops the listener if it belongs to session id.
func (m *Manager) Forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener != nil && m.listener.ID() == id {
		m.listener = nil
	}
}

func (m *Manager) detachLocked(reason string) {
	if m.listener == nil {
		return
	}
	_ = m.listener.Deliver(session.Message{Type: session.MsgListenerDetached, Reason: reason})
	m.logger.Debug("consent listener detached", "session", m.listener.ID(), "reason", reason)
	m.listener = nil
}

// sendLocked delivers msg to the foreground listener. A listener that has
// left the foreground is detached; one that cannot be reached is dropped.
func (m *Manager) sendLocked(msg session.Message) bool {
	if !m.foreground(m.listener) {
		m.detachLocked(ReasonNotForeground)
		return false
	}
	if err := m.listener.Deliver(msg); err != nil {
		m.logger.Debug("consent listener unreachable", "session", m.listener.ID(), "error", err)
		m.listener = nil
		return false
	}
	return true
}

// SendConnectNotice asks the foreground listener to confirm a connection
// from dev. A nil dev is replaced by a bare device at cfg's address. It
// reports whether the listener took the request.
func (m *Manager) SendConnectNotice(dev *p2p.Device, cfg *p2p.Config) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dev == nil {
		dev = &p2p.Device{Address: cfg.DeviceAddress}
	}
	d := *dev
	c := cfg.Clone()
	return m.sendLocked(session.Message{Type: session.MsgConnectionRequested, Device: &d, Config: c})
}

// SendShowPin asks the foreground listener to display pin.
func (m *Manager) SendShowPin(pin string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sendLocked(session.Message{Type: session.MsgShowPinRequested, PIN: pin})
}
