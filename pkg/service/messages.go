package service

import (
	"fmt"

	"github.com/p2pcoord/p2pcoord-go/pkg/driver"
	"github.com/p2pcoord/p2pcoord-go/pkg/statemachine"
)

// Message kinds. Application requests occupy [whatRequest, whatRequest+opCount),
// adapter events [whatDriver, whatDriver+256).
const (
	whatRequest = 0x100
	whatDriver  = 0x200
)

// Internal message kinds.
const (
	whatEnable = 0x300 + iota
	whatDisable
	whatUserAccept
	whatUserReject
	whatGroupCreatingTimeout
	whatDhcpResult
	whatSessionGone
)

// Adapter events, one message kind each.
const (
	whatConnected        = whatDriver + int(driver.EventConnected)
	whatConnectFailed    = whatDriver + int(driver.EventConnectFailed)
	whatDisconnected     = whatDriver + int(driver.EventDisconnected)
	whatDeviceFound      = whatDriver + int(driver.EventDeviceFound)
	whatDeviceLost       = whatDriver + int(driver.EventDeviceLost)
	whatFindStopped      = whatDriver + int(driver.EventFindStopped)
	whatGoNegRequest     = whatDriver + int(driver.EventGoNegotiationRequest)
	whatGoNegSuccess     = whatDriver + int(driver.EventGoNegotiationSuccess)
	whatGoNegFailure     = whatDriver + int(driver.EventGoNegotiationFailure)
	whatFormationSuccess = whatDriver + int(driver.EventGroupFormationSuccess)
	whatFormationFailure = whatDriver + int(driver.EventGroupFormationFailure)
	whatGroupStarted     = whatDriver + int(driver.EventGroupStarted)
	whatGroupRemoved     = whatDriver + int(driver.EventGroupRemoved)
	whatInvitationRecv   = whatDriver + int(driver.EventInvitationReceived)
	whatInvitationResult = whatDriver + int(driver.EventInvitationResult)
	whatProvDiscPbcReq   = whatDriver + int(driver.EventProvDiscPbcRequest)
	whatProvDiscPbcResp  = whatDriver + int(driver.EventProvDiscPbcResponse)
	whatProvDiscEnterPin = whatDriver + int(driver.EventProvDiscEnterPin)
	whatProvDiscShowPin  = whatDriver + int(driver.EventProvDiscShowPin)
	whatServDiscResponse = whatDriver + int(driver.EventServiceDiscoveryResponse)
	whatStaConnected     = whatDriver + int(driver.EventStaConnected)
	whatStaDisconnected  = whatDriver + int(driver.EventStaDisconnected)
)

func requestWhat(op Op) int { return whatRequest + int(op) }

func isRequest(msg *statemachine.Message) bool {
	return msg.What >= whatRequest && msg.What < whatRequest+int(opCount)
}

func isDriverEvent(msg *statemachine.Message) bool {
	return msg.What >= whatDriver && msg.What < whatDriver+0x100
}

func requestMessage(c *call) *statemachine.Message {
	return &statemachine.Message{What: requestWhat(c.req.Op), Obj: c}
}

func driverMessage(ev driver.Event) *statemachine.Message {
	return &statemachine.Message{What: whatDriver + int(ev.Type), Obj: ev}
}

// describe names a message for logs.
func describe(msg *statemachine.Message) string {
	switch {
	case isRequest(msg):
		return Op(msg.What - whatRequest).String()
	case isDriverEvent(msg):
		return driver.EventType(msg.What - whatDriver).String()
	}
	switch msg.What {
	case whatEnable:
		return "ENABLE"
	case whatDisable:
		return "DISABLE"
	case whatUserAccept:
		return "USER_ACCEPT"
	case whatUserReject:
		return "USER_REJECT"
	case whatGroupCreatingTimeout:
		return fmt.Sprintf("GROUP_CREATING_TIMEOUT(%d)", msg.Arg)
	case whatDhcpResult:
		return "DHCP_RESULT"
	case whatSessionGone:
		return "SESSION_GONE"
	default:
		return fmt.Sprintf("what=%#x", msg.What)
	}
}

// callOf returns the request carried by msg.
func callOf(msg *statemachine.Message) *call {
	c, _ := msg.Obj.(*call)
	return c
}

// eventOf returns the adapter event carried by msg.
func eventOf(msg *statemachine.Message) driver.Event {
	ev, _ := msg.Obj.(driver.Event)
	return ev
}
