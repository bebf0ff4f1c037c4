package nsd

import (
	"encoding/hex"
	"errors"
)

// Protocol identifies the service discovery protocol of a payload.
type Protocol uint8

const (
	ProtocolAll         Protocol = 0
	ProtocolBonjour     Protocol = 1
	ProtocolUPnP        Protocol = 2
	ProtocolWsDiscovery Protocol = 3
	ProtocolVendor      Protocol = 255
)

// String returns the protocol name.
func (p Protocol) String() string {
	switch p {
	case ProtocolAll:
		return "ALL"
	case ProtocolBonjour:
		return "BONJOUR"
	case ProtocolUPnP:
		return "UPNP"
	case ProtocolWsDiscovery:
		return "WS-DISCOVERY"
	case ProtocolVendor:
		return "VENDOR"
	default:
		return "UNKNOWN"
	}
}

// Payload errors.
var (
	ErrOddHex        = errors.New("hex query has odd length")
	ErrInvalidHex    = errors.New("query is not hex")
	ErrQueryTooLong  = errors.New("query exceeds 65535 bytes")
	ErrEmptyInstance = errors.New("instance name is empty")
	ErrEmptyType     = errors.New("service type is empty")
	ErrInvalidUUID   = errors.New("invalid uuid")
	ErrShortTLV      = errors.New("truncated service response TLV")
)

// upnpVersion is the UPnP version byte used in queries and services.
const upnpVersion = 0x10

func validateHexQuery(q string) error {
	if len(q)%2 != 0 {
		return ErrOddHex
	}
	if len(q)/2 > 0xffff {
		return ErrQueryTooLong
	}
	if _, err := hex.DecodeString(q); err != nil {
		return ErrInvalidHex
	}
	return nil
}
