package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/p2pcoord/p2pcoord-go/pkg/consent"
	"github.com/p2pcoord/p2pcoord-go/pkg/discovery"
	"github.com/p2pcoord/p2pcoord-go/pkg/driver"
	"github.com/p2pcoord/p2pcoord-go/pkg/log"
	"github.com/p2pcoord/p2pcoord-go/pkg/netcfg"
	"github.com/p2pcoord/p2pcoord-go/pkg/p2p"
	"github.com/p2pcoord/p2pcoord-go/pkg/servdisc"
	"github.com/p2pcoord/p2pcoord-go/pkg/session"
	"github.com/p2pcoord/p2pcoord-go/pkg/statemachine"
)

// Service coordinates P2P discovery, negotiation and group lifecycle.
//
// Every field below the machine is owned by the event loop. Public
// methods only enqueue messages, except OnEvent and State.
type Service struct {
	config  Config
	logger  *slog.Logger
	clock   clock.Clock
	tracer  *log.Tracer
	metrics *metrics

	drv      driver.Driver
	netcfg   netcfg.Configurator
	prompter consent.Prompter
	machine  *statemachine.Machine

	peers    *p2p.DeviceList
	sessions *session.Registry
	servdisc *servdisc.Aggregator
	consent  *consent.Manager
	mirror   *discovery.Mirror

	thisDevice p2p.Device
	group      *p2p.Group
	pending    *p2p.Config

	// autonomous marks a group we created on request rather than
	// negotiated; joinExisting marks an invitation into a peer's group.
	autonomous   bool
	joinExisting bool

	// provDiscDevice is the peer whose provision discovery we answered
	// while owning a group; a CONNECT to it starts WPS directly.
	provDiscDevice *p2p.Device

	info             p2p.ConnectionInfo
	connected        bool
	discoveryStarted bool
	timeoutGen       int

	// ctx scopes mDNS announcements. Set by Start.
	ctx context.Context

	handlersMu sync.RWMutex
	handlers   []EventHandler

	runMu   sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a service. It does not touch the adapter until Start.
func New(config Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	if config.DeviceID == "" {
		config.DeviceID = uuid.NewString()
	}
	if config.DeviceNamePrefix == "" {
		config.DeviceNamePrefix = DefaultDeviceNamePrefix
	}
	if config.GroupIdleTime <= 0 {
		config.GroupIdleTime = DefaultGroupIdleTime
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m, err := newMetrics(config.Metrics)
	if err != nil {
		return nil, err
	}

	s := &Service{
		config:   config,
		logger:   logger,
		clock:    config.Clock,
		tracer:   log.NewTracer(log.OrNoop(config.ProtocolLogger), config.Clock),
		metrics:  m,
		drv:      config.Driver,
		netcfg:   config.NetConfig,
		prompter: config.Prompter,
		peers:    p2p.NewDeviceList(),
		sessions: session.NewRegistry(),
		consent:  consent.NewManager(config.IsForeground, logger),
		ctx:      context.Background(),
		thisDevice: p2p.Device{
			PrimaryType: config.DeviceType,
			Status:      p2p.StatusUnavailable,
		},
	}
	s.servdisc = servdisc.New(s.drv, s.sessions, logger)
	s.servdisc.SetWithdrawHandler(s.mirrorRemove)
	if config.Advertiser != nil {
		s.mirror = discovery.NewMirror(config.Advertiser, logger)
	}

	s.machine = statemachine.New(statemachine.Config{
		Name:         "p2p",
		Logger:       logger,
		Clock:        config.Clock,
		Describe:     describe,
		OnTransition: s.onTransition,
		OnUnhandled:  s.onUnhandled,
	})
	if err := s.machine.AddStates(s.states()...); err != nil {
		return nil, err
	}
	initial := StateDisabled
	if !config.P2PSupported {
		initial = StateNotSupported
	}
	if err := s.machine.SetInitialState(initial); err != nil {
		return nil, err
	}
	return s, nil
}

// Start enters the initial state and runs the event loop until Stop or
// ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	if err := s.machine.Start(); err != nil {
		return err
	}
	s.started = true

	runCtx, cancel := context.WithCancel(ctx)
	s.ctx = runCtx
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		if err := s.machine.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("event loop stopped", "error", err)
		}
	}()

	s.logger.Info("p2p service started", "iface", s.config.Interface, "run", s.tracer.RunID())
	return nil
}

// Stop halts the event loop and releases the adapter and the group
// network configuration. The service cannot be restarted.
func (s *Service) Stop() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if !s.started {
		return ErrNotStarted
	}
	s.cancel()
	<-s.done
	s.started = false

	// The loop is gone, so the owned state is ours now.
	var err error
	if s.group != nil {
		err = multierr.Append(err, s.drv.GroupRemove(s.group.Interface))
		err = multierr.Append(err, s.teardownAddressing(s.group))
	}
	s.stopMirror()
	if cerr := s.drv.CloseConnection(); !errors.Is(cerr, driver.ErrNotConnected) {
		err = multierr.Append(err, cerr)
	}
	s.logger.Info("p2p service stopped")
	return err
}

// OnEvent registers a handler for service events.
func (s *Service) OnEvent(handler EventHandler) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// State returns the name of the current state.
func (s *Service) State() string {
	return s.machine.Current()
}

// RunID identifies this service instance in protocol logs.
func (s *Service) RunID() string {
	return s.tracer.RunID()
}

// Submit enqueues req. The reply is sent on done, which must have room
// for it: a reply that cannot be delivered immediately is dropped. A nil
// done discards the reply.
func (s *Service) Submit(req Request, done chan<- Reply) {
	c := &call{req: req, done: done, start: s.clock.Now()}
	s.tracer.Request(c.sessionID(), req.Op.String())
	s.machine.Send(requestMessage(c))
}

// Do submits req and waits for its reply. The error is ctx's error or
// the reply's Err.
func (s *Service) Do(ctx context.Context, req Request) (Reply, error) {
	done := make(chan Reply, 1)
	s.Submit(req, done)
	select {
	case r := <-done:
		return r, r.Err()
	case <-ctx.Done():
		return Reply{Op: req.Op, Status: StatusFailed}, ctx.Err()
	}
}

// Enable asks the service to bring P2P up.
func (s *Service) Enable() {
	s.machine.Send(&statemachine.Message{What: whatEnable})
}

// Disable asks the service to bring P2P down.
func (s *Service) Disable() {
	s.machine.Send(&statemachine.Message{What: whatDisable})
}

// Accept answers a pending consent prompt positively. pin is used when
// the provisioning method requires entering the peer's PIN.
func (s *Service) Accept(pin string) {
	s.machine.Send(&statemachine.Message{What: whatUserAccept, Obj: pin})
}

// Reject answers a pending consent prompt negatively.
func (s *Service) Reject() {
	s.machine.Send(&statemachine.Message{What: whatUserReject})
}

// ForgetSession drops everything registered by the session with id, for
// transports that do notice disconnects.
func (s *Service) ForgetSession(id string) {
	s.consent.Forget(id)
	s.machine.Send(&statemachine.Message{What: whatSessionGone, Obj: id})
}

// onDriverEvent is the adapter's event sink.
func (s *Service) onDriverEvent(ev driver.Event) {
	var peer, iface string
	if ev.Device != nil {
		peer = ev.Device.Address
	}
	if ev.Group != nil {
		iface = ev.Group.Interface
		if peer == "" {
			peer = ev.Group.Owner.Address
		}
	}
	var status *int
	switch ev.Type {
	case driver.EventGoNegotiationFailure, driver.EventGroupFormationFailure, driver.EventInvitationResult:
		st := ev.Status
		status = &st
	}
	s.tracer.Driver(ev.Type.String(), peer, iface, status)
	s.machine.Send(driverMessage(ev))
}

func (s *Service) onTransition(from, to string) {
	s.metrics.transitions.WithLabelValues(to).Inc()
	s.tracer.StateChange(log.StateEntityMachine, from, to, "")
}

func (s *Service) onUnhandled(state string, msg *statemachine.Message) {
	s.logger.Warn("unhandled message", "state", state, "msg", describe(msg))
	if c := callOf(msg); c != nil {
		s.replyFailed(c, ReasonBusy)
	}
}

func (s *Service) emitEvent(event Event) {
	s.handlersMu.RLock()
	handlers := make([]EventHandler, len(s.handlers))
	copy(handlers, s.handlers)
	s.handlersMu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

func (s *Service) debugLog(msg string, args ...any) {
	s.logger.Debug(msg, args...)
}

// adapterErr records a failed adapter command. It reports whether err
// was non-nil.
func (s *Service) adapterErr(command string, err error) bool {
	if err == nil {
		return false
	}
	s.metrics.adapterFailures.WithLabelValues(command).Inc()
	s.tracer.Error(log.LayerDriver, command, err)
	s.logger.Warn("adapter command failed", "command", command, "error", err)
	return true
}
