package trace

import (
	"context"
	"net"
)

// ResolveTarget resolves a hostname or address literal to an IP of the
// requested address family, returning a ResolutionError if no matching
// address is found.
func ResolveTarget(ctx context.Context, target string, family AddressFamily) (net.IP, error) {
	network := "ip4"
	if family == AddressFamilyIPv6 {
		network = "ip6"
	}

	resolver := net.DefaultResolver
	ips, err := resolver.LookupIP(ctx, network, target)
	if err != nil {
		return nil, newResolutionError("failed to resolve "+target, err)
	}
	if len(ips) == 0 {
		return nil, newResolutionError("no addresses found for "+target, nil)
	}
	return ips[0], nil
}
