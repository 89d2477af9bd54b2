//go:build !windows

package trace

import (
	"net"
	"syscall"
)

// enableHeaderInclude sets IP_HDRINCL so the kernel sends the IPv4 header
// exactly as constructed by the codec, rather than building its own.
func enableHeaderInclude(fd socketFD) error {
	return syscall.SetsockoptInt(int(fd), syscall.IPPROTO_IP, syscall.IP_HDRINCL, 1)
}

// DiscoverLocalAddr finds the local address the OS would pick to reach
// target by connecting an unconnected UDP socket and reading its local
// address back with getsockname; no packet is ever sent on a UDP socket by
// connect(2) alone.
func DiscoverLocalAddr(family AddressFamily, target net.IP, port int) (net.IP, error) {
	domain := syscall.AF_INET
	if family == AddressFamilyIPv6 {
		domain = syscall.AF_INET6
	}
	fd, err := createRawSocket(domain, syscall.SOCK_DGRAM, syscall.IPPROTO_UDP)
	if err != nil {
		return nil, newSocketError("failed to create discovery socket", err)
	}
	defer closeSocket(fd)

	sa, err := sockaddrFor(target, port)
	if err != nil {
		return nil, err
	}
	if err := connectSocket(fd, sa); err != nil {
		return nil, newSocketError("failed to connect discovery socket", err)
	}

	local, err := syscall.Getsockname(int(fd))
	if err != nil {
		return nil, newSocketError("failed to read local socket address", err)
	}
	return ipFromSockaddr(local), nil
}

