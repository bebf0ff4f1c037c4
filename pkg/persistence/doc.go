// Package persistence stores the coordinator state that survives
// restarts: the device display name and the persistent groups known to
// the supplicant, keyed by peer address.
//
// Everything else (peers, the active group, service registrations) is
// rebuilt from empty each time P2P is enabled.
package persistence
