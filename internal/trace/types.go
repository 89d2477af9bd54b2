package trace

import (
	"fmt"
	"net"
	"time"

	"github.com/hervehildenbrand/gtrace/pkg/hop"
)

// Protocol selects which wire protocol carries probes.
type Protocol int

const (
	ProtocolICMP Protocol = iota
	ProtocolUDP
	ProtocolTCP
)

func (p Protocol) String() string {
	switch p {
	case ProtocolICMP:
		return "icmp"
	case ProtocolUDP:
		return "udp"
	case ProtocolTCP:
		return "tcp"
	default:
		return "unknown"
	}
}

// AddressFamily selects IPv4 or IPv6.
type AddressFamily int

const (
	AddressFamilyIPv4 AddressFamily = iota
	AddressFamilyIPv6
)

// PortDirection controls which side of a UDP/TCP probe carries the
// per-probe discriminator used to recover a probe's identity from a quoted
// ICMP response.
type PortDirection int

const (
	// FixedSrc holds the source port constant and varies the destination
	// port per probe.
	FixedSrc PortDirection = iota
	// FixedDst holds the destination port constant and varies the source
	// port per probe.
	FixedDst
	// FixedBoth holds both source and destination ports constant; the
	// discriminator travels by another channel (e.g. Paris checksum or
	// Dublin IP ID).
	FixedBoth
)

// MultipathStrategy governs how the per-probe discriminator is encoded so
// that ECMP routing either pins successive probes to one path (Paris,
// Dublin) or lets them fan out across paths (Classic).
type MultipathStrategy int

const (
	// MultipathClassic varies the UDP/TCP port per probe; ECMP hashing
	// may route each probe differently.
	MultipathClassic MultipathStrategy = iota
	// MultipathParis forces the UDP checksum to equal the probe sequence
	// by adjusting payload bytes, keeping the 5-tuple (and hence ECMP
	// hash) fixed while the discriminator still travels in the checksum.
	MultipathParis
	// MultipathDublin carries the discriminator in the IPv4
	// identification field instead of the checksum or ports.
	MultipathDublin
)

// ProbeStatus is the lifecycle state of a Probe. Transitions are monotone
// forward: NotSent -> Awaited -> Complete, or NotSent -> Awaited (stuck,
// reported once at round end).
type ProbeStatus int

const (
	StatusNotSent ProbeStatus = iota
	StatusAwaited
	StatusComplete
)

func (s ProbeStatus) String() string {
	switch s {
	case StatusNotSent:
		return "not_sent"
	case StatusAwaited:
		return "awaited"
	case StatusComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// ProbeKey identifies a probe uniquely within the lifetime of a trace. It is
// minted at send time and retired once the probe leaves Awaited.
type ProbeKey struct {
	TraceID  uint16
	Sequence uint16
}

// Probe is a single outstanding or completed traceroute probe.
type Probe struct {
	TTL        uint8
	Sequence   uint16
	TraceID    uint16
	SrcPort    uint16
	DstPort    uint16
	SentAt     time.Time
	ReceivedAt time.Time
	Host       net.IP
	Status     ProbeStatus
}

// Duration returns the round-trip time for a Complete probe, or zero if the
// probe has not completed.
func (p Probe) Duration() time.Duration {
	if p.Status != StatusComplete || p.ReceivedAt.IsZero() {
		return 0
	}
	return p.ReceivedAt.Sub(p.SentAt)
}

// ResponseKind classifies a decoded ProbeResponse.
type ResponseKind int

const (
	KindTimeExceeded ResponseKind = iota
	KindDestinationUnreachable
	KindEchoReply
	KindTCPReply
)

// ProbeResponse is the decoded result of an inbound packet matched back to
// the probe that elicited it.
type ProbeResponse struct {
	Kind      ResponseKind
	Key       ProbeKey
	Responder net.IP
	Received  time.Time
	// PortUnreachable is set when Kind is KindDestinationUnreachable and the
	// ICMP code indicates the UDP port was unreachable — the signal that a
	// UDP probe reached its target.
	PortUnreachable bool
	// MPLS carries any label-stack entries recovered from RFC 4950 ICMP
	// extensions riding along a Time Exceeded message.
	MPLS []hop.MPLSLabel
	// NextHopMTU is the MTU reported by an ICMP Fragmentation Needed
	// message, or 0 if this response did not carry one.
	NextHopMTU int
}

// TracerConfig is the immutable configuration for one trace run. It mirrors
// the enumerated constructor options in the library surface: a target
// address, protocol, TTL range, in-flight bound, timing knobs, and the
// packet shape.
type TracerConfig struct {
	TargetAddr net.IP
	Protocol   Protocol
	Family     AddressFamily

	TraceIdentifier uint16
	FirstTTL        uint8
	MaxTTL          uint8

	MaxRounds int // 0 means unbounded

	MaxInflight int
	MinSequence uint16

	ReadTimeout       time.Duration
	MinRoundDuration  time.Duration
	MaxRoundDuration  time.Duration
	GraceDuration     time.Duration
	TCPConnectTimeout time.Duration

	PacketSize     int
	PayloadPattern byte

	SourcePort    uint16
	PortDirection PortDirection
	Multipath     MultipathStrategy

	SourceAddr net.IP
	Interface  string
}

// DefaultConfig returns a TracerConfig with conservative, widely-safe
// defaults: ICMP protocol, 30-hop ceiling, a modest in-flight window, and
// timings suitable for probing across the public internet.
func DefaultConfig() TracerConfig {
	return TracerConfig{
		Protocol:          ProtocolICMP,
		Family:            AddressFamilyIPv4,
		TraceIdentifier:   uint16(0xC0DE),
		FirstTTL:          1,
		MaxTTL:            30,
		MaxRounds:         0,
		MaxInflight:       16,
		MinSequence:       1,
		ReadTimeout:       100 * time.Millisecond,
		MinRoundDuration:  1 * time.Second,
		MaxRoundDuration:  3 * time.Second,
		GraceDuration:     500 * time.Millisecond,
		TCPConnectTimeout: 2 * time.Second,
		PacketSize:        60,
		PayloadPattern:    0,
		SourcePort:        0,
		PortDirection:     FixedSrc,
		Multipath:         MultipathClassic,
	}
}

// MaxTCPProbes is the hard ceiling on concurrently-connecting TCP probes the
// channel will track; beyond it, sends fail with ChannelFull.
const MaxTCPProbes = 256

// MaxPacketSize is the largest packet this codec will build or parse.
const MaxPacketSize = 1024

// DiscoveryPort is the destination port used when discovering a local
// source address with an unconnected UDP socket (connect sends no packet,
// so the port only informs route selection). portBase also uses it as the
// base of the varying probe port when SourcePort is 0.
const DiscoveryPort = 80

// Validate checks a TracerConfig for internally-consistent, in-range
// values, returning a ConfigError describing the first problem found.
func (c TracerConfig) Validate() error {
	if c.TargetAddr == nil {
		return newConfigError("target address is required", nil)
	}
	if c.FirstTTL < 1 {
		return newConfigError("first_ttl must be >= 1", nil)
	}
	if c.MaxTTL < c.FirstTTL {
		return newConfigError(fmt.Sprintf("max_ttl (%d) must be >= first_ttl (%d)", c.MaxTTL, c.FirstTTL), nil)
	}
	if c.MaxTTL > 255 {
		return newConfigError("max_ttl must be <= 255", nil)
	}
	if c.MaxInflight < 1 || c.MaxInflight > MaxTCPProbes {
		return newConfigError(fmt.Sprintf("max_inflight must be in [1,%d]", MaxTCPProbes), nil)
	}
	if c.MinSequence < 1 {
		return newConfigError("min_sequence must be >= 1", nil)
	}
	if c.PacketSize < 28 || c.PacketSize > MaxPacketSize {
		return newConfigError(fmt.Sprintf("packet_size must be in [28,%d]", MaxPacketSize), nil)
	}
	if c.ReadTimeout <= 0 {
		return newConfigError("read_timeout must be positive", nil)
	}
	if c.MaxRoundDuration < c.MinRoundDuration {
		return newConfigError("max_round_duration must be >= min_round_duration", nil)
	}
	return nil
}
