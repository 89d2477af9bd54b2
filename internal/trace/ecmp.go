// Package trace implements the tracing engine: platform shims, packet
// codecs, the send/receive channel, and the per-round scheduler.
package trace

import (
	"fmt"
	"net"

	"github.com/hervehildenbrand/gtrace/pkg/hop"
)

// ECMPInfo reports whether multiple distinct responder addresses have been
// observed at a single hop, the signature of ECMP load balancing.
type ECMPInfo struct {
	Detected  bool
	PathCount int
	IPs       []net.IP
}

// String returns a formatted ECMP indicator, or the empty string when no
// ECMP was detected.
func (e ECMPInfo) String() string {
	if !e.Detected {
		return ""
	}
	return fmt.Sprintf("[ECMP:%d]", e.PathCount)
}

// DetectECMP reports ECMP routing at a hop by counting its distinct
// responder addresses, as recorded by the aggregator in hop.Addrs.
func DetectECMP(h *hop.Hop) ECMPInfo {
	if h == nil {
		return ECMPInfo{}
	}
	ips := h.AddrList()
	return ECMPInfo{
		Detected:  len(ips) > 1,
		PathCount: len(ips),
		IPs:       ips,
	}
}

// GenerateFlowID derives a per-probe flow identifier for Classic multipath
// probing: successive flow IDs are spread with a prime stride so that
// consecutive probes are likely to land on different ECMP buckets.
func GenerateFlowID(probeNum int) uint16 {
	return uint16(33434 + probeNum*7)
}

// ECMPProbeConfig controls how many distinct flows to try per hop when
// actively hunting for ECMP paths, as opposed to Paris/Dublin multipath
// which deliberately pins to one flow.
type ECMPProbeConfig struct {
	FlowsPerHop    int
	PacketsPerFlow int
}

// DefaultECMPConfig returns sensible defaults for ECMP discovery: 8 flows,
// one packet each.
func DefaultECMPConfig() *ECMPProbeConfig {
	return &ECMPProbeConfig{
		FlowsPerHop:    8,
		PacketsPerFlow: 1,
	}
}

// AnalyzeTraceForECMP reports ECMP detection for every hop in a trace.
func AnalyzeTraceForECMP(tr *hop.Trace) []ECMPInfo {
	if tr == nil {
		return nil
	}
	infos := make([]ECMPInfo, len(tr.Hops))
	for i := range tr.Hops {
		infos[i] = DetectECMP(&tr.Hops[i])
	}
	return infos
}

// HasECMP reports whether any hop in the trace exhibits ECMP routing.
func HasECMP(tr *hop.Trace) bool {
	for i := range tr.Hops {
		if DetectECMP(&tr.Hops[i]).Detected {
			return true
		}
	}
	return false
}
