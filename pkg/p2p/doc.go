// Package p2p holds the data model shared by the coordinator and its
// adapters: peer devices and the peer registry, connection configs with
// their provisioning (WPS) method, the active group, and the derived
// connection summary.
//
// None of the types in this package are safe for concurrent mutation.
// The coordinator owns every instance from its event loop and hands out
// copies to callers.
package p2p
