package nsd

import (
	"encoding/hex"
	"fmt"
)

// ServiceRequest is an outgoing service discovery query. TransactionID
// is assigned by the coordinator when the request is registered.
type ServiceRequest struct {
	Protocol Protocol `json:"protocol"`

	// Query is the protocol-specific query as a hex string.
	Query string `json:"query,omitempty"`

	TransactionID uint8 `json:"transactionId"`
}

// NewServiceRequest creates a request with a raw hex query.
func NewServiceRequest(protocol Protocol, query string) (*ServiceRequest, error) {
	if err := validateHexQuery(query); err != nil {
		return nil, err
	}
	return &ServiceRequest{Protocol: protocol, Query: query}, nil
}

// NewAllServicesRequest queries every service of every protocol.
func NewAllServicesRequest() *ServiceRequest {
	return &ServiceRequest{Protocol: ProtocolAll}
}

// NewBonjourRequest queries Bonjour services. With no arguments it asks
// for every Bonjour service; with a service type it asks for the PTR
// records of that type; with an instance name too it asks for the
// instance's TXT record.
func NewBonjourRequest(instance, serviceType string) (*ServiceRequest, error) {
	switch {
	case instance == "" && serviceType == "":
		return &ServiceRequest{Protocol: ProtocolBonjour}, nil
	case serviceType == "":
		return nil, ErrEmptyType
	case instance == "":
		return &ServiceRequest{
			Protocol: ProtocolBonjour,
			Query:    dnsQuery(serviceType+".local.", DNSTypePTR),
		}, nil
	default:
		return &ServiceRequest{
			Protocol: ProtocolBonjour,
			Query:    dnsQuery(instance+"."+serviceType+".local.", DNSTypeTXT),
		}, nil
	}
}

// NewUPnPRequest queries UPnP services matching search target st, or
// every UPnP service when st is empty.
func NewUPnPRequest(st string) *ServiceRequest {
	if st == "" {
		return &ServiceRequest{Protocol: ProtocolUPnP}
	}
	return &ServiceRequest{
		Protocol: ProtocolUPnP,
		Query:    fmt.Sprintf("%02x", upnpVersion) + hex.EncodeToString([]byte(st)),
	}
}

// SupplicantQuery returns the TLV the adapter sends for this request:
// little-endian length, protocol, transaction id, then the query.
func (r *ServiceRequest) SupplicantQuery() string {
	length := len(r.Query)/2 + 2
	return fmt.Sprintf("%02x%02x%02x%02x%s", length&0xff, (length>>8)&0xff, uint8(r.Protocol), r.TransactionID, r.Query)
}

// Matches reports whether other is the same query, ignoring the
// transaction id.
func (r *ServiceRequest) Matches(other *ServiceRequest) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Protocol == other.Protocol && r.Query == other.Query
}

// Clone returns a copy, or nil.
func (r *ServiceRequest) Clone() *ServiceRequest {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}
