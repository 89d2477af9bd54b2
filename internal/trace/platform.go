package trace

import (
	"fmt"
	"net"
	"syscall"
)

// MakeICMPSendSocket creates a raw socket for ICMP writes. IP_HDRINCL is not
// set: the kernel builds the IP header, and the TTL is set per probe with a
// socket option.
func MakeICMPSendSocket(family AddressFamily) (socketFD, error) {
	domain := syscall.AF_INET
	proto := syscall.IPPROTO_ICMP
	if family == AddressFamilyIPv6 {
		domain = syscall.AF_INET6
		proto = syscall.IPPROTO_ICMPV6
	}
	fd, err := createRawSocket(domain, syscall.SOCK_RAW, proto)
	if err != nil {
		return invalidSocket, newSocketError("failed to create ICMP send socket", err)
	}
	return fd, nil
}

// MakeUDPSendSocket creates a raw socket for UDP writes with IP header
// inclusion, used because UDP probes need bespoke source ports and payload
// bytes that a regular UDP socket cannot control.
func MakeUDPSendSocket(family AddressFamily) (socketFD, error) {
	domain := syscall.AF_INET
	if family == AddressFamilyIPv6 {
		domain = syscall.AF_INET6
	}
	fd, err := createRawSocket(domain, syscall.SOCK_RAW, syscall.IPPROTO_RAW)
	if err != nil {
		return invalidSocket, newSocketError("failed to create UDP send socket", err)
	}
	if family == AddressFamilyIPv4 {
		if err := enableHeaderInclude(fd); err != nil {
			closeSocket(fd)
			return invalidSocket, newSocketError("failed to set IP_HDRINCL", err)
		}
	}
	return fd, nil
}

// MakeRecvSocket creates a non-blocking raw ICMP receive socket.
func MakeRecvSocket(family AddressFamily) (socketFD, error) {
	fd, err := MakeICMPSendSocket(family)
	if err != nil {
		return invalidSocket, err
	}
	if err := setSocketNonBlocking(fd); err != nil {
		closeSocket(fd)
		return invalidSocket, newSocketError("failed to set receive socket non-blocking", err)
	}
	return fd, nil
}

// LookupInterfaceAddr returns the first unicast address of the requested
// family on a named interface.
func LookupInterfaceAddr(name string, family AddressFamily) (net.IP, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, newConfigError(fmt.Sprintf("unknown interface %q", name), err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, newConfigError(fmt.Sprintf("failed to read addresses for %q", name), err)
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		isV6 := ipNet.IP.To4() == nil
		if (family == AddressFamilyIPv6) == isV6 {
			return ipNet.IP, nil
		}
	}
	return nil, newConfigError(fmt.Sprintf("interface %q has no address for the requested family", name), nil)
}

// resolveSourceAddr picks the local address a probe is sent from,
// following the original tool's resolution order: an explicit source
// address wins, then a named interface, then OS discovery. Both an
// explicit address and a named interface being set is a configuration
// error.
func resolveSourceAddr(cfg TracerConfig) (net.IP, error) {
	if cfg.SourceAddr != nil && cfg.Interface != "" {
		return nil, newConfigError("source address and interface are mutually exclusive", nil)
	}
	if cfg.SourceAddr != nil {
		return cfg.SourceAddr, nil
	}
	if cfg.Interface != "" {
		return LookupInterfaceAddr(cfg.Interface, cfg.Family)
	}
	return DiscoverLocalAddr(cfg.Family, cfg.TargetAddr, DiscoveryPort)
}
