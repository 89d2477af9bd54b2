package trace

import (
	"net"
	"syscall"
)

// sockaddrFor builds a syscall.Sockaddr for ip:port, choosing the IPv4 or
// IPv6 variant. syscall.SockaddrInet4/SockaddrInet6 are defined identically
// on every platform this engine targets.
func sockaddrFor(ip net.IP, port int) (syscall.Sockaddr, error) {
	if v4 := ip.To4(); v4 != nil {
		var addr [4]byte
		copy(addr[:], v4)
		return &syscall.SockaddrInet4{Port: port, Addr: addr}, nil
	}
	v6 := ip.To16()
	if v6 == nil {
		return nil, newConfigError("invalid target address", nil)
	}
	var addr [16]byte
	copy(addr[:], v6)
	return &syscall.SockaddrInet6{Port: port, Addr: addr}, nil
}

// ipFromSockaddr extracts the IP portion of a syscall.Sockaddr, as returned
// by getsockname/recvfrom.
func ipFromSockaddr(sa syscall.Sockaddr) net.IP {
	switch a := sa.(type) {
	case *syscall.SockaddrInet4:
		return net.IP(a.Addr[:])
	case *syscall.SockaddrInet6:
		return net.IP(a.Addr[:])
	default:
		return nil
	}
}
