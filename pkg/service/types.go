package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/p2pcoord/p2pcoord-go/pkg/consent"
	"github.com/p2pcoord/p2pcoord-go/pkg/discovery"
	"github.com/p2pcoord/p2pcoord-go/pkg/driver"
	"github.com/p2pcoord/p2pcoord-go/pkg/log"
	"github.com/p2pcoord/p2pcoord-go/pkg/netcfg"
)

// Service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrAlreadyStarted = errors.New("service already started")
	ErrInvalidConfig  = errors.New("invalid configuration")

	// Application-visible failure kinds. Reply.Err maps a failed reply
	// onto one of these.
	ErrBusy              = errors.New("operation not allowed in current state")
	ErrUnsupported       = errors.New("peer-to-peer not supported")
	ErrAdapter           = errors.New("adapter command failed")
	ErrNoServiceRequests = errors.New("no service requests registered")
	ErrNotForeground     = errors.New("session not in foreground")
)

// Defaults.
const (
	DefaultInterface        = "p2p0"
	DefaultDeviceNamePrefix = "p2p"

	// DefaultDeviceType is the WSC primary device type: category 10
	// (telephone), OUI 0050F204, sub-category 5.
	DefaultDeviceType = "10-0050F204-5"

	DefaultGroupCreatingTimeout = 120 * time.Second
	DefaultDiscoveryTimeout     = 120 * time.Second
	DefaultGroupIdleTime        = 2 * time.Second
)

// Adapter settings pushed on every enable.
const (
	configMethods       = "virtual_push_button physical_display keypad"
	concurrencyPriority = "sta"
)

// DeviceStore persists the device name and the persistent groups learnt
// from invitations. persistence.Store implements it.
type DeviceStore interface {
	DeviceName() (string, error)
	SetDeviceName(name string) error
	NetworkFor(addr string) (int, bool)
	RememberGroup(addr string, networkID int, name string) error
	ForgetNetwork(networkID int) error
}

// Config configures a Service.
type Config struct {
	// Interface is the adapter's P2P device interface.
	Interface string

	// P2PSupported reports whether the platform has P2P capability. When
	// false the service stays in NotSupported and refuses everything.
	P2PSupported bool

	// DeviceID is a stable identifier whose first four characters build
	// the default device name. Generated when empty.
	DeviceID string

	// DeviceNamePrefix prefixes the default device name.
	DeviceNamePrefix string

	// DeviceType is the WSC primary device type pushed to the adapter.
	DeviceType string

	// GroupCreatingTimeout bounds a connection attempt.
	GroupCreatingTimeout time.Duration

	// DiscoveryTimeout is passed to every find.
	DiscoveryTimeout time.Duration

	// GroupIdleTime is set on the group interface in the client role.
	GroupIdleTime time.Duration

	// Driver is the radio adapter. Required.
	Driver driver.Driver

	// NetConfig configures addressing on the group interface. Required.
	NetConfig netcfg.Configurator

	// Prompter renders consent dialogs when no foreground listener takes
	// the request. If nil, prompts are only logged and the answer must be
	// given through Accept or Reject.
	Prompter consent.Prompter

	// IsForeground reports whether a session is in the foreground. If
	// nil, no session ever is.
	IsForeground consent.ForegroundFunc

	// Store persists the device name and remembered persistent groups.
	// If nil, both live only as long as the process.
	Store DeviceStore

	// Advertiser, if set, mirrors local Bonjour services over mDNS on
	// the group interface while a group is formed.
	Advertiser discovery.Advertiser

	// Clock drives the group creation timeout. Defaults to the wall clock.
	Clock clock.Clock

	// Metrics, if set, receives the service's collectors.
	Metrics prometheus.Registerer

	// ProtocolLogger receives structured protocol events. May be nil.
	ProtocolLogger log.Logger

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interface:            DefaultInterface,
		P2PSupported:         true,
		DeviceNamePrefix:     DefaultDeviceNamePrefix,
		DeviceType:           DefaultDeviceType,
		GroupCreatingTimeout: DefaultGroupCreatingTimeout,
		DiscoveryTimeout:     DefaultDiscoveryTimeout,
		GroupIdleTime:        DefaultGroupIdleTime,
	}
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.Interface == "" {
		return ErrInvalidConfig
	}
	if c.Driver == nil || c.NetConfig == nil {
		return ErrInvalidConfig
	}
	if c.GroupCreatingTimeout <= 0 || c.DiscoveryTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.DeviceID != "" && len(c.DeviceID) < 4 {
		return ErrInvalidConfig
	}
	return nil
}

// State names.
const (
	StateDefault                   = "Default"
	StateNotSupported              = "NotSupported"
	StateDisabling                 = "Disabling"
	StateDisabled                  = "Disabled"
	StateEnabling                  = "Enabling"
	StateEnabled                   = "Enabled"
	StateInactive                  = "Inactive"
	StateGroupCreating             = "GroupCreating"
	StateUserAuthorizingInvitation = "UserAuthorizingInvitation"
	StateProvisionDiscovery        = "ProvisionDiscovery"
	StateGroupNegotiation          = "GroupNegotiation"
	StateGroupCreated              = "GroupCreated"
	StateUserAuthorizingJoin       = "UserAuthorizingJoin"
)
