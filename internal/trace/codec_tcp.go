package trace

import "time"

// tcpProbe tracks an in-progress non-blocking TCP connect used for
// TCP-connect mode. The channel keeps a bounded array of these (capacity
// MaxTCPProbes); the OS builds the actual SYN when connect() is issued, so
// this codec's job is tracking state and synthesising a TcpReply once the
// connect resolves one way or the other.
type tcpProbe struct {
	fd        socketFD
	key       ProbeKey
	ttl       uint8
	srcPort   uint16
	startedAt time.Time
}

func (p tcpProbe) expired(timeout time.Duration, now time.Time) bool {
	return now.Sub(p.startedAt) > timeout
}
