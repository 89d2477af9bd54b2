//go:build darwin || freebsd || netbsd || openbsd

package trace

// ipv4ByteOrder reports the IPv4 length-field byte order this platform
// expects on a raw socket with IP_HDRINCL: BSD-derived kernels want network
// order.
func ipv4ByteOrder() IPv4ByteOrder {
	return ByteOrderNetwork
}
