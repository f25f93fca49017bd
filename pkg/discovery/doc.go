// Package discovery finds homewire endpoints on the local network with
// mDNS/DNS-SD.
//
// Endpoints advertise the service type _homewire._udp. The instance name is
// the endpoint's configured name; TXT records carry the controller kind
// ("kind=relay_board") and the firmware version ("fw=1.4.2").
//
// MDNSBrowser streams aggregated entries: addresses from several interfaces
// are merged under one instance name. MDNSResolver implements the UDP
// transport's Resolver for hosts written as "mdns:<instance>" and keeps
// each answer for a short TTL so reconnect storms do not flood the network
// with queries.
package discovery
