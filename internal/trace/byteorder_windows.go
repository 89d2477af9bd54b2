//go:build windows

package trace

// ipv4ByteOrder reports the IPv4 length-field byte order this platform
// expects on a raw socket with IP_HDRINCL: Windows always reports network
// order regardless of source address, matching the upstream tool this
// engine's design is grounded on.
func ipv4ByteOrder() IPv4ByteOrder {
	return ByteOrderNetwork
}
