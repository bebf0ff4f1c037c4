// Package driver defines the boundary between the coordinator and the
// radio adapter: imperative commands issued from the coordinator's event
// loop and asynchronous events reported back through an EventSink.
//
// Commands are expected to return quickly and report failure as an
// error value. The wpa subpackage implements the interface on top of the
// wpa_supplicant control socket.
package driver

import (
	"errors"
	"time"

	"github.com/p2pcoord/p2pcoord-go/pkg/nsd"
	"github.com/p2pcoord/p2pcoord-go/pkg/p2p"
)

// Driver errors.
var (
	ErrCommandFailed = errors.New("driver command failed")
	ErrNotConnected  = errors.New("driver not connected")
)

// EventSink receives adapter events. It must not block.
type EventSink func(Event)

// Driver is the radio adapter.
type Driver interface {
	// StartMonitoring connects to the adapter and begins delivering
	// events to sink. The outcome is reported asynchronously with
	// EventConnected or EventConnectFailed.
	StartMonitoring(sink EventSink) error

	// CloseConnection disconnects; EventDisconnected follows.
	CloseConnection() error

	Find(timeout time.Duration) error
	StopFind() error
	Flush() error

	// GroupAdd starts an autonomous group with this device as owner.
	GroupAdd() error
	GroupRemove(iface string) error

	// Connect starts negotiation, or joins an existing group when join
	// is set. A generated PIN is returned for display methods.
	Connect(cfg *p2p.Config, join bool) (pin string, err error)
	CancelConnect() error
	Reinvoke(networkID int, addr string) error
	Invite(group *p2p.Group, addr string) error
	ProvisionDiscovery(cfg *p2p.Config) error

	SetGroupIdle(iface string, idle time.Duration) error
	SetPowerSave(iface string, enabled bool) error

	StartWpsPbc(iface, bssid string) error
	StartWpsPinDisplay(iface string) (pin string, err error)
	StartWpsPinKeypad(iface, pin string) error

	ServiceAdd(info *nsd.ServiceInfo) error
	ServiceDel(info *nsd.ServiceInfo) error
	ServiceFlush() error
	ServiceDiscoveryRequest(addr, query string) (id string, err error)
	ServiceDiscoveryCancel(id string) error

	SetDeviceName(name string) error
	SetDeviceType(devType string) error
	SetSsidPostfix(postfix string) error
	SetConfigMethods(methods string) error
	SetConcurrencyPriority(priority string) error
	SetPersistentReconnect(enabled bool) error

	GroupCapability(addr string) (uint8, error)
	DeviceAddress() (string, error)
}

// EventType identifies an adapter event.
type EventType uint8

const (
	EventConnected EventType = iota
	EventConnectFailed
	EventDisconnected
	EventDeviceFound
	EventDeviceLost
	EventFindStopped
	EventGoNegotiationRequest
	EventGoNegotiationSuccess
	EventGoNegotiationFailure
	EventGroupFormationSuccess
	EventGroupFormationFailure
	EventGroupStarted
	EventGroupRemoved
	EventInvitationReceived
	EventInvitationResult
	EventProvDiscPbcRequest
	EventProvDiscPbcResponse
	EventProvDiscEnterPin
	EventProvDiscShowPin
	EventServiceDiscoveryResponse
	EventStaConnected
	EventStaDisconnected
)

var eventNames = map[EventType]string{
	EventConnected:                "CONNECTED",
	EventConnectFailed:            "CONNECT_FAILED",
	EventDisconnected:             "DISCONNECTED",
	EventDeviceFound:              "DEVICE_FOUND",
	EventDeviceLost:               "DEVICE_LOST",
	EventFindStopped:              "FIND_STOPPED",
	EventGoNegotiationRequest:     "GO_NEGOTIATION_REQUEST",
	EventGoNegotiationSuccess:     "GO_NEGOTIATION_SUCCESS",
	EventGoNegotiationFailure:     "GO_NEGOTIATION_FAILURE",
	EventGroupFormationSuccess:    "GROUP_FORMATION_SUCCESS",
	EventGroupFormationFailure:    "GROUP_FORMATION_FAILURE",
	EventGroupStarted:             "GROUP_STARTED",
	EventGroupRemoved:             "GROUP_REMOVED",
	EventInvitationReceived:       "INVITATION_RECEIVED",
	EventInvitationResult:         "INVITATION_RESULT",
	EventProvDiscPbcRequest:       "PROV_DISC_PBC_REQUEST",
	EventProvDiscPbcResponse:      "PROV_DISC_PBC_RESPONSE",
	EventProvDiscEnterPin:         "PROV_DISC_ENTER_PIN",
	EventProvDiscShowPin:          "PROV_DISC_SHOW_PIN",
	EventServiceDiscoveryResponse: "SERVICE_DISCOVERY_RESPONSE",
	EventStaConnected:             "STA_CONNECTED",
	EventStaDisconnected:          "STA_DISCONNECTED",
}

// String returns the event name.
func (t EventType) String() string {
	if s, ok := eventNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// Event is an asynchronous adapter notification. Which fields are set
// depends on Type.
type Event struct {
	Type EventType

	// Device is the peer concerned (found, lost, provision discovery,
	// station connect/disconnect).
	Device *p2p.Device

	// Config is the inbound connection intent (negotiation request,
	// invitation received).
	Config *p2p.Config

	// Group is the started or removed group.
	Group *p2p.Group

	// PIN is shown by the peer (show-pin provision discovery).
	PIN string

	// Responses are the service discovery responses.
	Responses []*nsd.ServiceResponse

	// Status is the adapter status code for failures and results.
	Status int
}
