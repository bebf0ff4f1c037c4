package service

import (
	"time"

	"github.com/p2pcoord/p2pcoord-go/pkg/nsd"
	"github.com/p2pcoord/p2pcoord-go/pkg/p2p"
	"github.com/p2pcoord/p2pcoord-go/pkg/session"
)

// Op is an application operation.
type Op uint8

const (
	OpDiscoverPeers Op = iota
	OpStopDiscovery
	OpDiscoverServices
	OpConnect
	OpCancelConnect
	OpCreateGroup
	OpRemoveGroup
	OpAddLocalService
	OpRemoveLocalService
	OpClearLocalServices
	OpAddServiceRequest
	OpRemoveServiceRequest
	OpClearServiceRequests
	OpSetDeviceName
	OpRequestPeers
	OpRequestConnectionInfo
	OpRequestGroupInfo
	OpSetDialogListener

	opCount
)

var opNames = [opCount]string{
	OpDiscoverPeers:         "DISCOVER_PEERS",
	OpStopDiscovery:         "STOP_DISCOVERY",
	OpDiscoverServices:      "DISCOVER_SERVICES",
	OpConnect:               "CONNECT",
	OpCancelConnect:         "CANCEL_CONNECT",
	OpCreateGroup:           "CREATE_GROUP",
	OpRemoveGroup:           "REMOVE_GROUP",
	OpAddLocalService:       "ADD_LOCAL_SERVICE",
	OpRemoveLocalService:    "REMOVE_LOCAL_SERVICE",
	OpClearLocalServices:    "CLEAR_LOCAL_SERVICES",
	OpAddServiceRequest:     "ADD_SERVICE_REQUEST",
	OpRemoveServiceRequest:  "REMOVE_SERVICE_REQUEST",
	OpClearServiceRequests:  "CLEAR_SERVICE_REQUESTS",
	OpSetDeviceName:         "SET_DEVICE_NAME",
	OpRequestPeers:          "REQUEST_PEERS",
	OpRequestConnectionInfo: "REQUEST_CONNECTION_INFO",
	OpRequestGroupInfo:      "REQUEST_GROUP_INFO",
	OpSetDialogListener:     "SET_DIALOG_LISTENER",
}

// String returns the operation name.
func (o Op) String() string {
	if o < opCount {
		return opNames[o]
	}
	return "UNKNOWN"
}

// ParseOp returns the operation named s.
func ParseOp(s string) (Op, bool) {
	for i, name := range opNames {
		if name == s {
			return Op(i), true
		}
	}
	return 0, false
}

// Request is an application operation with its arguments. Which fields
// are read depends on Op.
type Request struct {
	Op Op

	// Client is the requesting session. Required for local service,
	// service request and dialog listener operations.
	Client session.Client

	// Config is the connection target for OpConnect.
	Config *p2p.Config

	// Service is the local service for OpAddLocalService and
	// OpRemoveLocalService.
	Service *nsd.ServiceInfo

	// ServiceRequest is the query for OpAddServiceRequest and
	// OpRemoveServiceRequest.
	ServiceRequest *nsd.ServiceRequest

	// DeviceName is the new name for OpSetDeviceName.
	DeviceName string

	// Reset clears the dialog listener instead of setting it.
	Reset bool
}

// Status is the outcome of a request.
type Status uint8

const (
	// StatusSucceeded means the operation completed.
	StatusSucceeded Status = iota
	// StatusAccepted means the operation was taken and its outcome will
	// be reported through events.
	StatusAccepted
	// StatusFailed means the operation was refused; see Reason.
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "SUCCEEDED"
	case StatusAccepted:
		return "ACCEPTED"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Reason explains a failed reply.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonBusy
	ReasonUnsupported
	ReasonAdapter
	ReasonNoServiceRequests
	ReasonNotForeground
)

// String returns the reason name.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return ""
	case ReasonBusy:
		return "BUSY"
	case ReasonUnsupported:
		return "UNSUPPORTED"
	case ReasonAdapter:
		return "ERROR"
	case ReasonNoServiceRequests:
		return "NO_SERVICE_REQUESTS"
	case ReasonNotForeground:
		return "NOT_IN_FOREGROUND"
	default:
		return "UNKNOWN"
	}
}

// Reply answers exactly one Request.
type Reply struct {
	Op     Op
	Status Status
	Reason Reason

	// Peers is the registry snapshot for OpRequestPeers.
	Peers []p2p.Device

	// Info is the connection summary for OpRequestConnectionInfo.
	Info *p2p.ConnectionInfo

	// Group is the active group for OpRequestGroupInfo, nil when none.
	Group *p2p.Group

	// ServiceRequest is the registered copy, carrying its transaction
	// id, for OpAddServiceRequest.
	ServiceRequest *nsd.ServiceRequest
}

// OK reports whether the request succeeded or was accepted.
func (r Reply) OK() bool {
	return r.Status != StatusFailed
}

// Err returns the sentinel error for a failed reply, or nil.
func (r Reply) Err() error {
	if r.OK() {
		return nil
	}
	switch r.Reason {
	case ReasonBusy:
		return ErrBusy
	case ReasonUnsupported:
		return ErrUnsupported
	case ReasonNoServiceRequests:
		return ErrNoServiceRequests
	case ReasonNotForeground:
		return ErrNotForeground
	default:
		return ErrAdapter
	}
}

// call is a request in flight through the machine. done is nil for
// requests the machine issues to itself.
type call struct {
	req   Request
	done  chan<- Reply
	start time.Time
}

func (c *call) sessionID() string {
	if c.req.Client == nil {
		return ""
	}
	return c.req.Client.ID()
}
