// Package statemachine implements a hierarchical state machine driven by
// a single ordered message queue.
//
// States are declared as a table of (name, parent, handlers). A message is
// offered to the current state first; if its Process function returns
// false the message falls through to the parent, and so on up to the
// root. Transitions requested while processing a message are applied once
// the handler returns: states are exited up to the lowest common ancestor
// and entered down to the destination.
//
// A state may defer a message it cannot handle yet. Deferred messages are
// moved, in their original order, to the front of the queue after the
// next transition completes.
//
// Only Send, SendDelayed and Current are safe to call from other
// goroutines. Everything else must be called from state handlers or from
// the goroutine running Run or Drain.
package statemachine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// Machine errors.
var (
	ErrDuplicateState = errors.New("duplicate state")
	ErrUnknownState   = errors.New("unknown state")
	ErrUnknownParent  = errors.New("unknown parent state")
	ErrNotStarted     = errors.New("state machine not started")
	ErrAlreadyStarted = errors.New("state machine already started")
)

// Message is a unit of work for the machine.
type Message struct {
	// What identifies the message kind.
	What int

	// Arg is a small integer argument.
	Arg int

	// Obj is the payload.
	Obj any
}

// State is one row of the state table. Enter and Exit may be nil.
type State struct {
	Name    string
	Parent  string
	Enter   func()
	Exit    func()
	Process func(msg *Message) bool
}

// Config configures a Machine.
type Config struct {
	// Name is used in log output.
	Name string

	// Logger receives transition and unhandled-message logs. May be nil.
	Logger *slog.Logger

	// Clock drives delayed messages. Defaults to the wall clock.
	Clock clock.Clock

	// Describe names a message for logging. Defaults to its What value.
	Describe func(msg *Message) string

	// OnTransition is called after each completed transition with the
	// deepest state left and the destination.
	OnTransition func(from, to string)

	// OnUnhandled is called when no state in the active chain handled a
	// message.
	OnUnhandled func(state string, msg *Message)
}

type stateInfo struct {
	State
	parent *stateInfo
	active bool
}

// Machine is a hierarchical state machine.
type Machine struct {
	cfg Config

	states  map[string]*stateInfo
	initial *stateInfo
	current *stateInfo
	dest    *stateInfo

	deferred []*Message
	started  bool

	mu    sync.Mutex
	queue []*Message
	wake  chan struct{}

	currentName atomic.Value
}

// New creates an empty machine.
func New(cfg Config) *Machine {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Describe == nil {
		cfg.Describe = func(msg *Message) string { return fmt.Sprintf("what=%d", msg.What) }
	}
	m := &Machine{
		cfg:    cfg,
		states: make(map[string]*stateInfo),
		wake:   make(chan struct{}, 1),
	}
	m.currentName.Store("")
	return m
}

// AddStates adds rows to the state table. Parents must be added before
// their children.
func (m *Machine) AddStates(states ...State) error {
	for _, st := range states {
		if _, ok := m.states[st.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateState, st.Name)
		}
		info := &stateInfo{State: st}
		if st.Parent != "" {
			p, ok := m.states[st.Parent]
			if !ok {
				return fmt.Errorf("%w: %s (parent of %s)", ErrUnknownParent, st.Parent, st.Name)
			}
			info.parent = p
		}
		m.states[st.Name] = info
	}
	return nil
}

// SetInitialState selects the state entered by Start.
func (m *Machine) SetInitialState(name string) error {
	s, ok := m.states[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownState, name)
	}
	m.initial = s
	return nil
}

// Start enters the initial state and its ancestors, root first.
func (m *Machine) Start() error {
	if m.started {
		return ErrAlreadyStarted
	}
	if m.initial == nil {
		return fmt.Errorf("%w: no initial state", ErrUnknownState)
	}
	m.started = true

	var chain []*stateInfo
	for s := m.initial; s != nil; s = s.parent {
		chain = append(chain, s)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		m.enter(chain[i])
	}
	m.performTransitions("")
	return nil
}

// Current returns the name of the deepest active state.
func (m *Machine) Current() string {
	return m.currentName.Load().(string)
}

// Send appends msg to the queue.
func (m *Machine) Send(msg *Message) {
	m.mu.Lock()
	m.queue = append(m.queue, msg)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// SendDelayed sends msg after d on the machine's clock. The timer is not
// cancellable; handlers must recognise stale deliveries themselves.
func (m *Machine) SendDelayed(msg *Message, d time.Duration) {
	m.cfg.Clock.AfterFunc(d, func() { m.Send(msg) })
}

// Defer parks msg until the next transition completes.
func (m *Machine) Defer(msg *Message) {
	m.deferred = append(m.deferred, msg)
}

// TransitionTo requests a transition applied after the current handler
// returns.
func (m *Machine) TransitionTo(name string) {
	s, ok := m.states[name]
	if !ok {
		panic(fmt.Sprintf("statemachine: transition to unknown state %q", name))
	}
	m.dest = s
}

// Run processes messages until ctx is done.
func (m *Machine) Run(ctx context.Context) error {
	if !m.started {
		return ErrNotStarted
	}
	for {
		m.Drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.wake:
		}
	}
}

// Drain processes queued messages until the queue is empty and returns
// how many were processed. It must not run concurrently with Run.
func (m *Machine) Drain() int {
	n := 0
	for {
		msg := m.pop()
		if msg == nil {
			return n
		}
		m.process(msg)
		n++
	}
}

func (m *Machine) pop() *Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return nil
	}
	msg := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	return msg
}

func (m *Machine) process(msg *Message) {
	handled := false
	for s := m.current; s != nil; s = s.parent {
		if s.Process != nil && s.Process(msg) {
			handled = true
			break
		}
	}
	if !handled {
		name := ""
		if m.current != nil {
			name = m.current.Name
		}
		if m.cfg.OnUnhandled != nil {
			m.cfg.OnUnhandled(name, msg)
		}
		m.debug("unhandled message", "state", name, "msg", m.cfg.Describe(msg))
	}
	m.performTransitions(m.cfg.Describe(msg))
}

func (m *Machine) performTransitions(cause string) {
	transitioned := false
	for m.dest != nil {
		dest := m.dest
		m.dest = nil
		from := m.current.Name

		// Walk up from the destination to the first active ancestor.
		var toEnter []*stateInfo
		common := dest
		for common != nil && !common.active {
			toEnter = append(toEnter, common)
			common = common.parent
		}

		for s := m.current; s != common; s = s.parent {
			m.exit(s)
		}
		m.current = common
		for i := len(toEnter) - 1; i >= 0; i-- {
			m.enter(toEnter[i])
		}
		if len(toEnter) == 0 {
			m.setCurrent(dest)
		}

		transitioned = true
		m.debug("transition", "from", from, "to", dest.Name, "msg", cause)
		if m.cfg.OnTransition != nil {
			m.cfg.OnTransition(from, dest.Name)
		}
	}

	if transitioned && len(m.deferred) > 0 {
		m.mu.Lock()
		m.queue = append(m.deferred, m.queue...)
		m.mu.Unlock()
		m.deferred = nil
	}
}

func (m *Machine) enter(s *stateInfo) {
	s.active = true
	m.setCurrent(s)
	if s.Enter != nil {
		s.Enter()
	}
}

func (m *Machine) exit(s *stateInfo) {
	if s.Exit != nil {
		s.Exit()
	}
	s.active = false
}

func (m *Machine) setCurrent(s *stateInfo) {
	m.current = s
	if s != nil {
		m.currentName.Store(s.Name)
	}
}

func (m *Machine) debug(msg string, args ...any) {
	if m.cfg.Logger != nil {
		m.cfg.Logger.Debug(msg, append([]any{"machine", m.cfg.Name}, args...)...)
	}
}
