// Package discovery mirrors locally registered Wi-Fi P2P Bonjour services
// onto the group network with mDNS/DNS-SD once a group has formed.
//
// P2P service discovery only works before a connection exists. After the
// group is up, peers on the group interface find the same services through
// regular multicast DNS. A local service is mirrored when its TXT data
// carries a "port" entry, e.g.
//
//	instance: "Office Printer"
//	type:     "_ipp._tcp"
//	txt:      {"port": "631", "rp": "ipp/print"}
//
// is announced as "Office Printer._ipp._tcp.local." on port 631 with the
// remaining TXT entries ("rp=ipp/print").
//
// The Mirror tracks which services are live and talks to an Advertiser;
// MDNSAdvertiser is the zeroconf-backed implementation. Browse finds
// services on an interface, which the daemon console uses to verify a
// mirror from the peer side.
package discovery
