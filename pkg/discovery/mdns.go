package discovery

import (
	"context"
	"fmt"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// MDNSAdvertiser implements Advertiser using zeroconf.
type MDNSAdvertiser struct {
	ttl time.Duration

	mu      sync.Mutex
	servers map[string]*zeroconf.Server
}

// NewMDNSAdvertiser creates an advertiser announcing records with ttl.
// A zero ttl uses DefaultTTL.
func NewMDNSAdvertiser(ttl time.Duration) *MDNSAdvertiser {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MDNSAdvertiser{ttl: ttl, servers: make(map[string]*zeroconf.Server)}
}

func lookupInterface(name string) ([]net.Interface, error) {
	if name == "" {
		return nil, nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	return []net.Interface{*iface}, nil
}

// Advertise registers rec on iface.
func (a *MDNSAdvertiser) Advertise(ctx context.Context, iface string, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	ifaces, err := lookupInterface(iface)
	if err != nil {
		return fmt.Errorf("interface %s: %w", iface, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if s, ok := a.servers[rec.Key()]; ok {
		s.Shutdown()
		delete(a.servers, rec.Key())
	}

	server, err := zeroconf.Register(
		rec.Instance,
		rec.ServiceType,
		Domain,
		rec.Port,
		TXTRecordsToStrings(rec.TXT),
		ifaces,
		zeroconf.TTL(uint32(a.ttl.Seconds())),
	)
	if err != nil {
		return fmt.Errorf("register %s: %w", rec.Key(), err)
	}
	a.servers[rec.Key()] = server
	return nil
}

// Withdraw shuts the server for key down.
func (a *MDNSAdvertiser) Withdraw(key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s, ok := a.servers[key]; ok {
		s.Shutdown()
		delete(a.servers, key)
	}
	return nil
}

// StopAll shuts every server down.
func (a *MDNSAdvertiser) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for key, s := range a.servers {
		s.Shutdown()
		delete(a.servers, key)
	}
}

var _ Advertiser = (*MDNSAdvertiser)(nil)

// Browse collects instances of serviceType seen on iface until ctx is
// done. An empty iface browses every interface. Results with the same
// instance name are merged.
func Browse(ctx context.Context, iface, serviceType string) ([]Found, error) {
	ifaces, err := lookupInterface(iface)
	if err != nil {
		return nil, fmt.Errorf("interface %s: %w", iface, err)
	}
	var opts []zeroconf.ClientOption
	if ifaces != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	errc := make(chan error, 1)
	go func() {
		errc <- zeroconf.Browse(ctx, serviceType, Domain, entries, removed, opts...)
	}()

	found := make(map[string]*Found)
	var order []string
	collect := func() []Found {
		out := make([]Found, 0, len(order))
		for _, name := range order {
			if f, ok := found[name]; ok {
				out = append(out, *f)
			}
		}
		return out
	}

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			f := entryToFound(entry)
			if existing, ok := found[f.Instance]; ok {
				existing.Addresses = mergeAddresses(existing.Addresses, f.Addresses)
				continue
			}
			found[f.Instance] = &f
			order = append(order, f.Instance)
		case entry, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			delete(found, entry.Instance)
			order = slices.DeleteFunc(order, func(n string) bool { return n == entry.Instance })
		case err := <-errc:
			errc = nil
			if err != nil && ctx.Err() == nil {
				return collect(), err
			}
		case <-ctx.Done():
			return collect(), nil
		}
	}
}

func entryToFound(entry *zeroconf.ServiceEntry) Found {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return Found{
		Instance:  entry.Instance,
		Host:      entry.HostName,
		Port:      entry.Port,
		Addresses: addrs,
		TXT:       StringsToTXTRecords(entry.Text),
	}
}

// mergeAddresses appends the addresses from add not already present.
func mergeAddresses(existing, add []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, a := range existing {
		seen[a] = true
	}
	for _, a := range add {
		if !seen[a] {
			existing = append(existing, a)
			seen[a] = true
		}
	}
	return existing
}
