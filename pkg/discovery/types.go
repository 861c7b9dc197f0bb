package discovery

import (
	"errors"
	"time"
)

// Service types and domain.
const (
	// ServiceType is the service type advertised by gateways.
	ServiceType = "_arxos._udp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default gateway port.
	DefaultPort = 4790

	// ProtocolVersion is the value of the v TXT key.
	ProtocolVersion = 1
)

// TXT record keys.
const (
	TXTKeyVersion         = "v"   // Protocol version
	TXTKeySender          = "s"   // Sender ID (0-65535)
	TXTKeyKeyVersion      = "kv"  // Key version (0-255)
	TXTKeyProfile         = "p"   // Radio profile (optional)
	TXTKeyRecordsPerFrame = "rpf" // Records per frame (optional)
	TXTKeyTransport       = "tr"  // Transport kind
)

// Timing.
const (
	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 10 * time.Second

	// DefaultTTL is the default DNS record TTL.
	DefaultTTL = 120 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrUnsupportedVersion  = errors.New("unsupported protocol version")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
	ErrNotAdvertising      = errors.New("not advertising")
)

// GatewayInfo is what a gateway advertises about itself.
type GatewayInfo struct {
	// Instance is the DNS-SD instance name. Empty selects "ARX-<sender>".
	Instance string

	// Port is the gateway's listening port. Zero selects DefaultPort.
	Port uint16

	SenderID   uint16
	KeyVersion uint8

	// Profile is the radio profile name. Optional.
	Profile string

	// RecordsPerFrame is the frame capacity under Profile. Optional.
	RecordsPerFrame int

	// Transport is the transport kind, "udp" or "tcp".
	Transport string
}

// GatewayService is a gateway found by browsing.
type GatewayService struct {
	GatewayInfo

	Host      string
	Addresses []string
}
