//go:build windows

package trace

import (
	"net"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// ipHdrIncl is IP_HDRINCL on Windows (winsock2.h), not exported by the
// standard syscall package.
const ipHdrIncl = 2

// enableHeaderInclude sets IP_HDRINCL so the kernel sends the IPv4 header
// exactly as constructed by the codec.
func enableHeaderInclude(fd socketFD) error {
	return syscall.SetsockoptInt(syscall.Handle(fd), syscall.IPPROTO_IP, ipHdrIncl, 1)
}

// sioRoutingInterfaceQuery is SIO_ROUTING_INTERFACE_QUERY (ws2ipdef.h),
// used to ask the routing table which local interface/address would be
// used to reach a destination, without emitting any packet. Windows
// connect()+getsockname() on an unconnected UDP socket is not reliable for
// this purpose, unlike on Unix, so this engine uses the routing query here.
const sioRoutingInterfaceQuery = 0xC8000014 // _WSAIORW(IOC_WS2, 20): IOC_IN | IOC_OUT | IOC_WS2 | 20

// DiscoverLocalAddr asks the OS routing table which local address would be
// used to reach target, via SIO_ROUTING_INTERFACE_QUERY. No packet is sent.
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

	dst, err := rawSockaddr(target, port)
	if err != nil {
		return nil, err
	}

	var result [28]byte // sockaddr_in6-sized output buffer
	var bytesReturned uint32

	err = windows.WSAIoctl(
		windows.Handle(fd),
		sioRoutingInterfaceQuery,
		(*byte)(unsafe.Pointer(&dst[0])),
		uint32(len(dst)),
		&result[0],
		uint32(len(result)),
		&bytesReturned,
		nil,
		0,
	)
	if err != nil {
		return nil, newSocketError("SIO_ROUTING_INTERFACE_QUERY failed", err)
	}
	return ipFromRawSockaddr(result[:bytesReturned])
}

func rawSockaddr(ip net.IP, port int) ([]byte, error) {
	if v4 := ip.To4(); v4 != nil {
		buf := make([]byte, 16)
		buf[0] = byte(syscall.AF_INET)
		buf[2] = byte(port >> 8)
		buf[3] = byte(port)
		copy(buf[4:8], v4)
		return buf, nil
	}
	v6 := ip.To16()
	if v6 == nil {
		return nil, newConfigError("invalid target address", nil)
	}
	buf := make([]byte, 28)
	buf[0] = byte(syscall.AF_INET6)
	buf[2] = byte(port >> 8)
	buf[3] = byte(port)
	copy(buf[8:24], v6)
	return buf, nil
}

func ipFromRawSockaddr(buf []byte) (net.IP, error) {
	if len(buf) < 8 {
		return nil, newSocketError("routing interface query returned a short address", nil)
	}
	family := uint16(buf[0]) | uint16(buf[1])<<8
	switch family {
	case syscall.AF_INET:
		return net.IP(buf[4:8]), nil
	case syscall.AF_INET6:
		if len(buf) < 24 {
			return nil, newSocketError("routing interface query returned a short IPv6 address", nil)
		}
		return net.IP(buf[8:24]), nil
	default:
		return nil, newSocketError("routing interface query returned an unknown address family", nil)
	}
}
