package nsd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/p2pcoord/p2pcoord-go/pkg/p2p"
)

// ResponseStatus is the status code carried in a service response TLV.
type ResponseStatus uint8

const (
	StatusSuccess                     ResponseStatus = 0
	StatusServiceProtocolNotAvailable ResponseStatus = 1
	StatusRequestedInfoNotAvailable   ResponseStatus = 2
	StatusBadRequest                  ResponseStatus = 3
)

// String returns the status name.
func (s ResponseStatus) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusServiceProtocolNotAvailable:
		return "SERVICE_PROTOCOL_NOT_AVAILABLE"
	case StatusRequestedInfoNotAvailable:
		return "REQUESTED_INFORMATION_NOT_AVAILABLE"
	case StatusBadRequest:
		return "BAD_REQUEST"
	default:
		return "UNKNOWN"
	}
}

// ServiceResponse is one response TLV from a peer.
type ServiceResponse struct {
	Protocol      Protocol       `json:"protocol"`
	Status        ResponseStatus `json:"status"`
	TransactionID uint8          `json:"transactionId"`

	// Device is the responding peer. The coordinator replaces it with
	// the registry entry when the peer is known.
	Device p2p.Device `json:"device"`

	Data []byte `json:"data,omitempty"`
}

// ParseServiceResponses splits the hex TLV block of a discovery response
// from srcAddr into individual responses.
func ParseServiceResponses(srcAddr, tlvs string) ([]*ServiceResponse, error) {
	b, err := hex.DecodeString(tlvs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}

	var out []*ServiceResponse
	for len(b) > 0 {
		if len(b) < 2 {
			return out, ErrShortTLV
		}
		length := int(b[0]) | int(b[1])<<8
		b = b[2:]
		if length < 3 {
			// Too short to carry protocol, transaction id and status.
			if length > len(b) {
				return out, ErrShortTLV
			}
			b = b[length:]
			continue
		}
		if length > len(b) {
			return out, ErrShortTLV
		}
		tlv := b[:length]
		b = b[length:]

		resp := &ServiceResponse{
			Protocol:      Protocol(tlv[0]),
			TransactionID: tlv[1],
			Status:        ResponseStatus(tlv[2]),
			Device:        p2p.Device{Address: srcAddr},
		}
		if len(tlv) > 3 {
			resp.Data = append([]byte(nil), tlv[3:]...)
		}
		out = append(out, resp)
	}
	return out, nil
}

// BonjourRecord is a decoded Bonjour response payload.
type BonjourRecord struct {
	// Name is the queried DNS name.
	Name string

	Type uint16

	// Instance is set for PTR records.
	Instance string

	// TXT is set for TXT records.
	TXT map[string]string
}

// Bonjour decodes the payload of a Bonjour response.
func (r *ServiceResponse) Bonjour() (*BonjourRecord, error) {
	if r.Protocol != ProtocolBonjour {
		return nil, fmt.Errorf("not a bonjour response: %s", r.Protocol)
	}
	name, rest, err := readDNSName(r.Data, "")
	if err != nil {
		return nil, err
	}
	if len(rest) < 3 {
		return nil, ErrShortTLV
	}
	rec := &BonjourRecord{Name: name, Type: uint16(rest[0])<<8 | uint16(rest[1])}
	rdata := rest[3:]

	switch rec.Type {
	case DNSTypePTR:
		full, _, err := readDNSName(rdata, name)
		if err != nil {
			return nil, err
		}
		rec.Instance = strings.TrimSuffix(full, "."+name)
	case DNSTypeTXT:
		rec.TXT = parseTXTRecord(rdata)
	}
	return rec, nil
}

// UPnP decodes the payload of a UPnP response into its version and the
// comma-separated USN list.
func (r *ServiceResponse) UPnP() (version uint8, usns []string, err error) {
	if r.Protocol != ProtocolUPnP {
		return 0, nil, fmt.Errorf("not a upnp response: %s", r.Protocol)
	}
	if len(r.Data) == 0 {
		return 0, nil, ErrShortTLV
	}
	version = r.Data[0]
	for _, s := range strings.Split(string(r.Data[1:]), ",") {
		if s = strings.TrimSpace(s); s != "" {
			usns = append(usns, s)
		}
	}
	return version, usns, nil
}
