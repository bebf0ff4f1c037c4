// Package session tracks application sessions talking to the
// coordinator.
//
// A session is known only through its Client handle. The transport behind
// a Client offers no disconnect signal, so liveness is inferred: a
// best-effort Ping is delivered before mutations and a delivery failure
// marks the session dead. Dead sessions are purged together with their
// registered local services and outgoing service requests.
//
// The Registry is not safe for concurrent use; the coordinator owns it
// from its event loop.
package session
