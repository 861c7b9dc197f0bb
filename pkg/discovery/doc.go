// Package discovery implements mDNS/DNS-SD discovery for sealed-link gateways.
//
// A gateway bridging a radio link onto IP advertises one instance of the
// _arxos._udp service. The instance name is user-configurable and defaults to
// "ARX-<sender id>".
//
// # TXT Records
//
//   - v:   protocol version (currently 1)
//   - s:   sender ID of the gateway's own link endpoint
//   - kv:  key version in use
//   - p:   radio profile name (meshtastic, lora, sdr), optional
//   - rpf: records per frame under the active profile, optional
//   - tr:  transport kind (udp, tcp)
//
// No key material is ever advertised. Peers still need the link key, which
// is provisioned out of band.
package discovery
