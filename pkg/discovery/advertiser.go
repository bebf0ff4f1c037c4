package discovery

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/p2pcoord/p2pcoord-go/pkg/nsd"
)

// Advertiser announces DNS-SD records on one network interface.
type Advertiser interface {
	// Advertise starts announcing rec on iface, replacing any record with
	// the same key.
	Advertise(ctx context.Context, iface string, rec Record) error

	// Withdraw stops announcing the record with the given key.
	Withdraw(key string) error

	// StopAll withdraws every record.
	StopAll()
}

// RecordFor converts a local P2P service into an mDNS record. Only
// Bonjour services with a valid port TXT entry qualify; the port entry
// itself is not announced.
func RecordFor(info *nsd.ServiceInfo) (Record, error) {
	if info == nil || info.Protocol != nsd.ProtocolBonjour || info.Instance == "" {
		return Record{}, ErrNotBonjour
	}
	port, err := parsePort(info.TXT[TXTKeyPort])
	if err != nil {
		return Record{}, err
	}
	txt := make(TXTRecordMap, len(info.TXT))
	for k, v := range info.TXT {
		if k != TXTKeyPort {
			txt[k] = v
		}
	}
	rec := Record{
		Instance:    info.Instance,
		ServiceType: info.ServiceType,
		Port:        port,
		TXT:         txt,
	}
	return rec, rec.Validate()
}

// Mirror keeps the mDNS announcements in step with the local services
// while a group interface is up.
type Mirror struct {
	mu     sync.Mutex
	adv    Advertiser
	logger *slog.Logger

	iface   string
	active  bool
	records map[string]Record
}

// NewMirror returns an inactive mirror. A nil logger discards output.
func NewMirror(adv Advertiser, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Mirror{adv: adv, logger: logger, records: make(map[string]Record)}
}

// Start activates the mirror on iface and announces every eligible
// service. It returns the number announced.
func (m *Mirror) Start(ctx context.Context, iface string, infos []*nsd.ServiceInfo) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active && m.iface != iface {
		m.stopLocked()
	}
	m.iface = iface
	m.active = true

	n := 0
	for _, info := range infos {
		if m.addLocked(ctx, info) {
			n++
		}
	}
	return n
}

// Add announces info if the mirror is active and info qualifies.
func (m *Mirror) Add(ctx context.Context, info *nsd.ServiceInfo) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return false
	}
	return m.addLocked(ctx, info)
}

func (m *Mirror) addLocked(ctx context.Context, info *nsd.ServiceInfo) bool {
	rec, err := RecordFor(info)
	if err != nil {
		return false
	}
	if err := m.adv.Advertise(ctx, m.iface, rec); err != nil {
		m.logger.Warn("mdns advertise failed", "service", rec.String(), "error", err)
		return false
	}
	m.records[rec.Key()] = rec
	m.logger.Debug("mdns advertise", "service", rec.String(), "iface", m.iface)
	return true
}

// Remove withdraws info if it was announced.
func (m *Mirror) Remove(info *nsd.ServiceInfo) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := RecordFor(info)
	if err != nil {
		return false
	}
	if _, ok := m.records[rec.Key()]; !ok {
		return false
	}
	delete(m.records, rec.Key())
	if err := m.adv.Withdraw(rec.Key()); err != nil {
		m.logger.Warn("mdns withdraw failed", "service", rec.String(), "error", err)
	}
	return true
}

// Stop withdraws everything and deactivates the mirror.
func (m *Mirror) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Mirror) stopLocked() {
	if !m.active {
		return
	}
	m.adv.StopAll()
	m.records = make(map[string]Record)
	m.active = false
	m.iface = ""
}

// Active reports whether a group interface is being served.
func (m *Mirror) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Records returns the announced records sorted by key.
func (m *Mirror) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
