package nsd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ServiceInfo is a local service registered with the adapter. It is
// opaque to the coordinator apart from its identity (Key).
type ServiceInfo struct {
	Protocol Protocol `json:"protocol"`

	// Entries are the supplicant service strings, one per record.
	Entries []string `json:"entries"`

	// Bonjour metadata kept for mirroring the service over mDNS.
	Instance    string            `json:"instance,omitempty"`
	ServiceType string            `json:"serviceType,omitempty"`
	TXT         map[string]string `json:"txt,omitempty"`
}

// NewBonjourServiceInfo describes a DNS-SD service, e.g. instance
// "Office Printer" of type "_ipp._tcp".
func NewBonjourServiceInfo(instance, serviceType string, txt map[string]string) (*ServiceInfo, error) {
	if instance == "" {
		return nil, ErrEmptyInstance
	}
	if serviceType == "" {
		return nil, ErrEmptyType
	}

	ptr := "bonjour " + dnsQuery(serviceType+".local.", DNSTypePTR) + " " +
		fmt.Sprintf("%02x", len(instance)) + hex.EncodeToString([]byte(instance)) + "c027"

	raw := txtRecordBytes(txt)
	rdata := "00"
	if len(raw) > 0 {
		rdata = hex.EncodeToString(raw)
	}
	txtEntry := "bonjour " + dnsQuery(instance+"."+serviceType+".local.", DNSTypeTXT) + " " + rdata

	cp := make(map[string]string, len(txt))
	for k, v := range txt {
		cp[k] = v
	}
	return &ServiceInfo{
		Protocol:    ProtocolBonjour,
		Entries:     []string{ptr, txtEntry},
		Instance:    instance,
		ServiceType: serviceType,
		TXT:         cp,
	}, nil
}

// NewUPnPServiceInfo describes a UPnP device with uuid id, device type
// urn and optional service urns.
func NewUPnPServiceInfo(id, device string, services []string) (*ServiceInfo, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUUID, err)
	}
	if device == "" {
		return nil, ErrEmptyType
	}

	entry := func(data string) string {
		s := fmt.Sprintf("upnp %02x uuid:%s", upnpVersion, id)
		if data != "" {
			s += "::" + data
		}
		return s
	}

	entries := []string{entry(""), entry("upnp:rootdevice"), entry(device)}
	for _, svc := range services {
		entries = append(entries, entry(svc))
	}
	return &ServiceInfo{Protocol: ProtocolUPnP, Entries: entries}, nil
}

// Key identifies the service for set membership.
func (s *ServiceInfo) Key() string {
	return strings.Join(s.Entries, "\n")
}

// Equal reports whether both describe the same records.
func (s *ServiceInfo) Equal(other *ServiceInfo) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Key() == other.Key()
}

// String returns a short human-readable form.
func (s *ServiceInfo) String() string {
	if s.Protocol == ProtocolBonjour && s.Instance != "" {
		return fmt.Sprintf("bonjour %s.%s", s.Instance, s.ServiceType)
	}
	return fmt.Sprintf("%s (%d records)", strings.ToLower(s.Protocol.String()), len(s.Entries))
}
