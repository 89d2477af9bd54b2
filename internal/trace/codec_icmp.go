package trace

import (
	"net"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/hervehildenbrand/gtrace/pkg/hop"
)

// mplsFromTimeExceeded recovers any RFC 4950 label-stack entries carried as
// ICMP extensions alongside a Time Exceeded message. raw is the full ICMP
// message payload, not just the quoted inner datagram, since extensions
// follow the quoted datagram rather than sitting inside it.
func mplsFromTimeExceeded(raw []byte) []hop.MPLSLabel {
	return ExtractMPLSFromICMP(raw)
}

// buildICMPEcho constructs an ICMP Echo Request with identifier=traceID,
// sequence=seq, padded with payloadPattern to exactly packetSize bytes.
// The identifier/sequence pair is the correlation discriminator for ICMP
// mode: it survives in the 8 bytes an intermediate router quotes back in a
// Time-Exceeded message.
func buildICMPEcho(family AddressFamily, traceID, seq uint16, packetSize int, payloadPattern byte) ([]byte, error) {
	msgType := icmp.Type(ipv4.ICMPTypeEcho)
	if family == AddressFamilyIPv6 {
		msgType = ipv6.ICMPTypeEchoRequest
	}

	headerSize := 8 // ICMP echo header: type, code, checksum, id, seq
	dataLen := packetSize - headerSize
	if dataLen < 0 {
		dataLen = 0
	}
	data := make([]byte, dataLen)
	for i := range data {
		data[i] = payloadPattern
	}

	msg := icmp.Message{
		Type: msgType,
		Code: 0,
		Body: &icmp.Echo{
			ID:   int(traceID),
			Seq:  int(seq),
			Data: data,
		},
	}

	wire, err := msg.Marshal(nil)
	if err != nil {
		return nil, newProtocolError("failed to marshal ICMP echo", err)
	}
	return wire, nil
}

// parseICMPResponse parses an inbound ICMPv4/ICMPv6 message (callers pass
// the ICMP message only, after stripping any IP header the raw socket read
// delivered, as RecvProbe does for IPv4) and, for Time Exceeded / Destination Unreachable,
// recovers the discriminator from the quoted inner packet. cfg supplies the
// trace identifier plus the PortDirection/Multipath the probe that elicited
// this response would have used, since the quoted header must be decoded
// the same way it was encoded.
func parseICMPResponse(cfg TracerConfig, data []byte, responder net.IP, now time.Time) (*ProbeResponse, error) {
	proto := 1
	if cfg.Family == AddressFamilyIPv6 {
		proto = 58
	}
	msg, err := icmp.ParseMessage(proto, data)
	if err != nil {
		return nil, newProtocolError("malformed ICMP message", err)
	}

	switch body := msg.Body.(type) {
	case *icmp.Echo:
		if body.ID != int(cfg.TraceIdentifier) {
			return nil, nil
		}
		return &ProbeResponse{
			Kind:      KindEchoReply,
			Key:       ProbeKey{TraceID: cfg.TraceIdentifier, Sequence: uint16(body.Seq)},
			Responder: responder,
			Received:  now,
		}, nil
	case *icmp.TimeExceeded:
		key, _, ok, err := correlateQuoted(cfg, body.Data)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return &ProbeResponse{
			Kind:      KindTimeExceeded,
			Key:       key,
			Responder: responder,
			Received:  now,
			MPLS:      mplsFromTimeExceeded(data),
		}, nil
	case *icmp.DstUnreach:
		key, portUnreach, ok, err := correlateQuoted(cfg, body.Data)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		portUnreachCode := 3 // ICMPv4 port unreachable
		if cfg.Family == AddressFamilyIPv6 {
			portUnreachCode = 4 // ICMPv6 port unreachable
		}
		resp := &ProbeResponse{
			Kind:            KindDestinationUnreachable,
			Key:             key,
			Responder:       responder,
			Received:        now,
			PortUnreachable: portUnreach && msg.Code == portUnreachCode,
		}
		if mtu, ok := ParseMTUFromICMP(data); ok {
			resp.NextHopMTU = mtu
		}
		return resp, nil
	default:
		return nil, nil
	}
}

// correlateQuoted recovers a ProbeKey from the IP+L4 header quoted inside a
// Time-Exceeded/Destination-Unreachable message. Because the quote is only
// guaranteed to carry 8 bytes past the inner IP header, only the ICMP
// identifier+sequence, the UDP/TCP ports, the UDP checksum (Paris), or the
// IPv4 identification field (Dublin) can be trusted here — never payload
// bytes. The decode must mirror whichever encoding the probe's PortDirection
// and MultipathStrategy selected on send, in codec_udp.go/multipath.go.
func correlateQuoted(cfg TracerConfig, quoted []byte) (ProbeKey, bool, bool, error) {
	ihl := 20
	if cfg.Family == AddressFamilyIPv6 {
		ihl = 40
	}
	if len(quoted) < ihl+8 {
		return ProbeKey{}, false, false, newProtocolError("quoted packet too short to correlate", nil)
	}
	inner := quoted[ihl:]
	protoByte := byte(0)
	if cfg.Family == AddressFamilyIPv4 {
		protoByte = quoted[9]
	} else {
		protoByte = quoted[6]
	}

	switch protoByte {
	case 1, 58: // ICMP / ICMPv6 echo quoted inside
		if len(inner) < 8 {
			return ProbeKey{}, false, false, newProtocolError("quoted ICMP header too short", nil)
		}
		id := uint16(inner[4])<<8 | uint16(inner[5])
		seq := uint16(inner[6])<<8 | uint16(inner[7])
		if id != cfg.TraceIdentifier {
			return ProbeKey{}, false, false, nil
		}
		return ProbeKey{TraceID: cfg.TraceIdentifier, Sequence: seq}, false, true, nil
	case 17: // UDP
		seq, ok := recoverUDPSequence(cfg, quoted, inner)
		if !ok {
			return ProbeKey{}, false, false, nil
		}
		return ProbeKey{TraceID: cfg.TraceIdentifier, Sequence: seq}, true, true, nil
	case 6: // TCP
		seq, ok := recoverPortDiscriminator(cfg, inner)
		if !ok {
			return ProbeKey{}, false, false, nil
		}
		return ProbeKey{TraceID: cfg.TraceIdentifier, Sequence: seq}, false, true, nil
	default:
		return ProbeKey{}, false, false, nil
	}
}

// recoverUDPSequence inverts whichever channel buildIPv4UDP used to carry
// the discriminator for a UDP probe: the Paris checksum, the Dublin IP
// identification field, or the port selected by PortDirection for Classic.
func recoverUDPSequence(cfg TracerConfig, quoted, inner []byte) (uint16, bool) {
	switch cfg.Multipath {
	case MultipathParis:
		if len(inner) < 8 {
			return 0, false
		}
		return uint16(inner[6])<<8 | uint16(inner[7]), true
	case MultipathDublin:
		if cfg.Family != AddressFamilyIPv4 {
			return 0, false
		}
		return uint16(quoted[4])<<8 | uint16(quoted[5]), true
	default: // MultipathClassic
		return recoverPortDiscriminator(cfg, inner)
	}
}

// recoverPortDiscriminator recovers the sequence number carried by whichever
// port resolvePorts left varying for the configured PortDirection. FixedBoth
// carries its discriminator elsewhere (Paris checksum or Dublin IP ID, both
// handled in recoverUDPSequence) and has none to recover from a port alone.
func recoverPortDiscriminator(cfg TracerConfig, inner []byte) (uint16, bool) {
	if len(inner) < 4 {
		return 0, false
	}
	base := portBase(cfg)
	srcPort := uint16(inner[0])<<8 | uint16(inner[1])
	dstPort := uint16(inner[2])<<8 | uint16(inner[3])
	switch cfg.PortDirection {
	case FixedDst:
		return srcPort - base, true
	case FixedBoth:
		return 0, false
	default: // FixedSrc
		return dstPort - base, true
	}
}
