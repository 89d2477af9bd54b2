package trace

import (
	"log/slog"
	"net"
	"syscall"
	"time"
)

// Channel is the unified send/receive façade over the three transports:
// one ICMP raw socket, one UDP raw socket, a bounded pool of TCP stream
// sockets, and one non-blocking receive socket for ICMP responses. It owns
// every socket the tracing engine touches.
type Channel struct {
	cfg    TracerConfig
	logger *slog.Logger

	srcAddr net.IP

	icmpSendFD socketFD
	udpSendFD  socketFD
	recvFD     socketFD

	tcpProbes []tcpProbe

	recvBuf []byte
}

// NewChannel resolves the source address and opens the sockets the
// configured protocol requires. The receive socket is always opened: even
// UDP and TCP probes are correlated via ICMP Time-Exceeded from
// intermediate hops.
func NewChannel(cfg TracerConfig, logger *slog.Logger) (*Channel, error) {
	if logger == nil {
		logger = discardLogger()
	}
	srcAddr, err := resolveSourceAddr(cfg)
	if err != nil {
		return nil, err
	}

	ch := &Channel{
		cfg:        cfg,
		logger:     logger,
		srcAddr:    srcAddr,
		icmpSendFD: invalidSocket,
		udpSendFD:  invalidSocket,
		recvFD:     invalidSocket,
		recvBuf:    make([]byte, MaxPacketSize),
		tcpProbes:  make([]tcpProbe, 0, MaxTCPProbes),
	}

	switch cfg.Protocol {
	case ProtocolICMP:
		fd, err := MakeICMPSendSocket(cfg.Family)
		if err != nil {
			return nil, err
		}
		ch.icmpSendFD = fd
	case ProtocolUDP:
		fd, err := MakeUDPSendSocket(cfg.Family)
		if err != nil {
			return nil, err
		}
		ch.udpSendFD = fd
	case ProtocolTCP:
		// TCP probes open their own per-probe sockets on send.
	}

	recvFD, err := MakeRecvSocket(cfg.Family)
	if err != nil {
		ch.Close()
		return nil, err
	}
	ch.recvFD = recvFD

	return ch, nil
}

// Close releases every socket the channel owns.
func (c *Channel) Close() {
	for _, p := range c.tcpProbes {
		closeSocket(p.fd)
	}
	c.tcpProbes = c.tcpProbes[:0]
	if c.icmpSendFD != invalidSocket {
		closeSocket(c.icmpSendFD)
	}
	if c.udpSendFD != invalidSocket {
		closeSocket(c.udpSendFD)
	}
	if c.recvFD != invalidSocket {
		closeSocket(c.recvFD)
	}
}

// SendProbe dispatches a single outbound probe per the configured
// protocol, per §4.3.
func (c *Channel) SendProbe(p Probe) error {
	switch c.cfg.Protocol {
	case ProtocolICMP:
		return c.sendICMP(p)
	case ProtocolUDP:
		return c.sendUDP(p)
	case ProtocolTCP:
		return c.sendTCP(p)
	default:
		return newConfigError("unknown protocol", nil)
	}
}

func (c *Channel) sendICMP(p Probe) error {
	level := ProtocolLevel(c.cfg.TargetAddr)
	opt := TTLSocketOption(c.cfg.TargetAddr)
	if err := setSocketTTL(c.icmpSendFD, level, opt, int(p.TTL)); err != nil {
		return newIoError("failed to set TTL", err)
	}
	wire, err := buildICMPEcho(c.cfg.Family, c.cfg.TraceIdentifier, p.Sequence, c.cfg.PacketSize, c.cfg.PayloadPattern)
	if err != nil {
		return err
	}
	sa, err := sockaddrFor(c.cfg.TargetAddr, 0)
	if err != nil {
		return err
	}
	if err := sendToSocket(c.icmpSendFD, wire, 0, sa); err != nil {
		return newIoError("failed to send ICMP echo", err)
	}
	return nil
}

func (c *Channel) sendUDP(p Probe) error {
	wire := buildIPv4UDP(c.srcAddr, c.cfg.TargetAddr, p.SrcPort, p.DstPort, p.TTL, p.Sequence, c.cfg.PacketSize, c.cfg.PayloadPattern, c.cfg.Multipath, ipv4ByteOrder())
	sa, err := sockaddrFor(c.cfg.TargetAddr, int(p.DstPort))
	if err != nil {
		return err
	}
	if err := sendToSocket(c.udpSendFD, wire, 0, sa); err != nil {
		return newIoError("failed to send UDP probe", err)
	}
	return nil
}

func (c *Channel) sendTCP(p Probe) error {
	if len(c.tcpProbes) >= MaxTCPProbes {
		return newChannelFullError("TCP probe backlog is full")
	}

	domain := syscall.AF_INET
	if c.cfg.Family == AddressFamilyIPv6 {
		domain = syscall.AF_INET6
	}
	fd, err := createRawSocket(domain, syscall.SOCK_STREAM, syscall.IPPROTO_TCP)
	if err != nil {
		return newSocketError("failed to create TCP probe socket", err)
	}
	if err := setSocketNonBlocking(fd); err != nil {
		closeSocket(fd)
		return newSocketError("failed to set TCP probe socket non-blocking", err)
	}
	level := ProtocolLevel(c.cfg.TargetAddr)
	opt := TTLSocketOption(c.cfg.TargetAddr)
	if err := setSocketTTL(fd, level, opt, int(p.TTL)); err != nil {
		closeSocket(fd)
		return newIoError("failed to set TTL on TCP probe socket", err)
	}

	if p.SrcPort != 0 {
		srcSA, err := sockaddrFor(c.srcAddr, int(p.SrcPort))
		if err == nil {
			_ = bindSocket(fd, srcSA)
		}
	}

	sa, err := sockaddrFor(c.cfg.TargetAddr, int(p.DstPort))
	if err != nil {
		closeSocket(fd)
		return err
	}
	err = connectSocket(fd, sa)
	if err != nil && !isErrInProgress(err) {
		closeSocket(fd)
		return newIoError("TCP connect failed immediately", err)
	}

	c.tcpProbes = append(c.tcpProbes, tcpProbe{
		fd:        fd,
		key:       ProbeKey{TraceID: c.cfg.TraceIdentifier, Sequence: p.Sequence},
		ttl:       p.TTL,
		srcPort:   p.SrcPort,
		startedAt: p.SentAt,
	})
	return nil
}

// RecvProbe waits up to timeout for an inbound response. TCP mode first
// sweeps the tracked connect attempts for one that resolved (succeeded or
// was refused), synthesising a TcpReply; only if none are ready does it
// fall through to the shared ICMP socket, which is where Time-Exceeded
// responses from intermediate hops always arrive regardless of probe
// protocol.
func (c *Channel) RecvProbe(timeout time.Duration) (*ProbeResponse, error) {
	if c.cfg.Protocol == ProtocolTCP {
		if resp := c.sweepTCPProbes(); resp != nil {
			return resp, nil
		}
	}
	return c.recvICMP(timeout)
}

func (c *Channel) sweepTCPProbes() *ProbeResponse {
	now := time.Now()
	kept := c.tcpProbes[:0]
	var result *ProbeResponse

	for _, p := range c.tcpProbes {
		if p.expired(c.cfg.TCPConnectTimeout, now) {
			closeSocket(p.fd)
			continue
		}
		if result != nil {
			kept = append(kept, p)
			continue
		}

		writable, err := isWritable(p.fd)
		if err != nil {
			closeSocket(p.fd)
			continue
		}
		if !writable {
			kept = append(kept, p)
			continue
		}

		errno, _ := getSocketError(p.fd)
		connErr := errnoToError(errno)
		switch {
		case connErr == nil:
			result = &ProbeResponse{Kind: KindTCPReply, Key: p.key, Responder: c.cfg.TargetAddr, Received: now}
		case isErrConnRefused(connErr):
			result = &ProbeResponse{Kind: KindTCPReply, Key: p.key, Responder: c.cfg.TargetAddr, Received: now}
		default:
			// some other failure (e.g. network unreachable); drop silently
		}
		closeSocket(p.fd)
	}
	c.tcpProbes = kept
	return result
}

func (c *Channel) recvICMP(timeout time.Duration) (*ProbeResponse, error) {
	readable, err := isReadable(c.recvFD, timeout)
	if err != nil {
		return nil, err
	}
	if !readable {
		return nil, nil
	}

	n, from, err := recvFromSocket(c.recvFD, c.recvBuf)
	if err != nil {
		return nil, newIoError("failed to read from receive socket", err)
	}

	payload := c.recvBuf[:n]
	if c.cfg.Family == AddressFamilyIPv4 {
		// Linux delivers the ICMP payload with the IPv4 header still
		// attached on a raw ICMP socket; strip it using the header
		// length in the low nibble of the first byte.
		if len(payload) > 0 {
			ihl := int(payload[0]&0x0F) * 4
			if ihl >= 20 && ihl <= len(payload) {
				payload = payload[ihl:]
			}
		}
	}

	return parseICMPResponse(c.cfg, payload, from, time.Now())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
