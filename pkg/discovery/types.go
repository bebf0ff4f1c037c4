package discovery

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	// Domain is the mDNS domain.
	Domain = "local."

	// TXTKeyPort names the TXT entry holding the service port.
	TXTKeyPort = "port"

	// DefaultTTL is the record TTL used for mirrored services.
	DefaultTTL = 120 * time.Second

	// BrowseTimeout is the default duration of a Browse.
	BrowseTimeout = 5 * time.Second

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

var (
	ErrNoPort              = errors.New("service has no port entry")
	ErrInvalidPort         = errors.New("invalid port")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrEmptyInstance       = errors.New("empty instance name")
	ErrNotBonjour          = errors.New("not a bonjour service")
)

// Record is a DNS-SD service instance ready to announce.
type Record struct {
	Instance    string
	ServiceType string
	Port        int
	TXT         TXTRecordMap
}

// Key identifies the record among mirrored services.
func (r Record) Key() string {
	return r.Instance + "." + r.ServiceType
}

// String returns the full DNS-SD name with the port.
func (r Record) String() string {
	return fmt.Sprintf("%s.%s.%s:%d", r.Instance, r.ServiceType, Domain, r.Port)
}

// Validate checks the record can be announced.
func (r Record) Validate() error {
	if err := ValidateInstanceName(r.Instance); err != nil {
		return err
	}
	if r.Port <= 0 || r.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, r.Port)
	}
	return nil
}

// Found is a service seen by Browse.
type Found struct {
	Instance  string
	Host      string
	Port      int
	Addresses []string
	TXT       TXTRecordMap
}

func parsePort(s string) (int, error) {
	if s == "" {
		return 0, ErrNoPort
	}
	p, err := strconv.Atoi(s)
	if err != nil || p <= 0 || p > 65535 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPort, s)
	}
	return p, nil
}
