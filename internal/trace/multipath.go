package trace

// portBase returns the fixed port resolvePorts anchors its varying port to:
// the configured SourcePort, or DiscoveryPort if none was set. correlateQuoted
// subtracts this same base back out when recovering a sequence number from a
// quoted port, so the two must stay in lockstep.
func portBase(cfg TracerConfig) uint16 {
	if cfg.SourcePort == 0 {
		return DiscoveryPort
	}
	return cfg.SourcePort
}

// resolvePorts picks the source and destination ports for a UDP/TCP probe
// given the configured PortDirection and the probe's sequence number, which
// is the discriminator Classic multipath encodes directly in the varying
// port.
func resolvePorts(cfg TracerConfig, seq uint16) (srcPort, dstPort uint16) {
	base := portBase(cfg)
	switch cfg.PortDirection {
	case FixedDst:
		// destination port fixed, source port carries the discriminator
		return base + seq, cfg.SourcePort
	case FixedBoth:
		// discriminator travels outside the ports (Paris checksum or
		// Dublin IP ID)
		return cfg.SourcePort, base
	default: // FixedSrc: source port fixed, destination port varies
		return cfg.SourcePort, base + seq
	}
}
