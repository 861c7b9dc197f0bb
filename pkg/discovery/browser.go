package discovery

import (
	"context"
	"time"
)

// Browser provides mDNS service browsing capabilities.
type Browser interface {
	// BrowseGateways searches for advertised gateways. The channel is closed
	// when the context is cancelled.
	BrowseGateways(ctx context.Context) (<-chan *GatewayService, error)

	// FindBySender searches for the gateway with the given sender ID.
	// Returns when found or when the context is cancelled.
	FindBySender(ctx context.Context, senderID uint16) (*GatewayService, error)

	// Stop stops all active browsing operations.
	Stop()
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout bounds FindBySender when the caller's context has no
	// deadline.
	// Default: 10 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: BrowseTimeout,
	}
}

// FilterFunc is a function that filters browse results.
type FilterFunc func(*GatewayService) bool

// FilterBySender returns a filter that matches the given sender ID.
func FilterBySender(senderID uint16) FilterFunc {
	return func(svc *GatewayService) bool {
		return svc.SenderID == senderID
	}
}

// FilterByProfile returns a filter that matches gateways on any of the given
// radio profiles.
func FilterByProfile(profiles ...string) FilterFunc {
	set := make(map[string]struct{}, len(profiles))
	for _, p := range profiles {
		set[p] = struct{}{}
	}
	return func(svc *GatewayService) bool {
		_, ok := set[svc.Profile]
		return ok
	}
}

// Filter returns the services accepted by every filter.
func Filter(services []*GatewayService, filters ...FilterFunc) []*GatewayService {
	var out []*GatewayService
next:
	for _, svc := range services {
		for _, f := range filters {
			if !f(svc) {
				continue next
			}
		}
		out = append(out, svc)
	}
	return out
}
