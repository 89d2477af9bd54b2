//go:build linux

package trace

// ipv4ByteOrder reports the IPv4 length-field byte order this platform
// expects on a raw socket with IP_HDRINCL: Linux wants host order.
func ipv4ByteOrder() IPv4ByteOrder {
	return ByteOrderHost
}
