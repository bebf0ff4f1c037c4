// Package nsd models P2P service discovery payloads: local service
// descriptors (ServiceInfo), outgoing queries (ServiceRequest) and the
// responses peers send back (ServiceResponse).
//
// Payloads are kept in the hex string encodings wpa_supplicant expects so
// that the coordinator can concatenate and forward them without further
// translation. Bonjour (DNS-SD) and UPnP helpers build those encodings from
// structured inputs.
package nsd
