package trace

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hervehildenbrand/gtrace/pkg/hop"
)

// HopCallback is invoked once per probe transition (Awaited emitted at
// round end, Complete emitted on match).
type HopCallback func(Probe)

type probeState struct {
	ttl              uint8
	sentAt           time.Time
	srcPort, dstPort uint16
}

// probeTransport is the subset of Channel the engine drives. Factored out
// so tests can substitute a fake transport without opening real sockets;
// *Channel is the only production implementation.
type probeTransport interface {
	SendProbe(Probe) error
	RecvProbe(timeout time.Duration) (*ProbeResponse, error)
	Close()
}

// Engine is the per-round tracer state machine described in §4.4: it picks
// TTLs, allocates sequence numbers, issues probes through a Channel,
// matches responses, folds them into the hop Store, reports each probe
// transition to the callback, and paces rounds to respect min/max round
// duration.
type Engine struct {
	cfg      TracerConfig
	channel  probeTransport
	store    *hop.Store
	callback HopCallback
	logger   *slog.Logger

	nextSeq       uint16
	inflight      map[ProbeKey]*probeState
	targetReached bool
	targetTTL     *uint8
	highestTTL    uint8

	round int
}

// NewEngine constructs an Engine and opens its Channel. The callback is
// invoked synchronously from the engine's own goroutine — callers that also
// read the Store concurrently rely on the Store's internal locking, not on
// anything this callback does.
func NewEngine(cfg TracerConfig, store *hop.Store, callback HopCallback, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = discardLogger()
	}
	ch, err := NewChannel(cfg, logger)
	if err != nil {
		return nil, err
	}
	return newEngineWithTransport(cfg, ch, store, callback, logger), nil
}

// newEngineWithTransport builds an Engine around an already-constructed
// transport, bypassing socket setup. Used by NewEngine for production and
// directly by tests to drive the scheduler against a fake transport.
func newEngineWithTransport(cfg TracerConfig, transport probeTransport, store *hop.Store, callback HopCallback, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = discardLogger()
	}
	return &Engine{
		cfg:      cfg,
		channel:  transport,
		store:    store,
		callback: callback,
		logger:   logger,
		nextSeq:  cfg.MinSequence,
		inflight: make(map[ProbeKey]*probeState),
	}
}

// Close releases the engine's channel resources.
func (e *Engine) Close() {
	e.channel.Close()
}

// Trace runs rounds until ctx is cancelled or MaxRounds is reached (0 means
// unbounded), per §4.4 rule 5.
func (e *Engine) Trace(ctx context.Context) error {
	for e.cfg.MaxRounds == 0 || e.round < e.cfg.MaxRounds {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := e.runRound(ctx); err != nil {
			if !IsTransient(err) {
				return err
			}
			e.logger.Warn("round error, continuing", "error", err)
		}
		e.round++
	}
	return nil
}

// runRound executes one pass sending probes across the TTL range and
// collecting responses, honoring the scheduling rules in §4.4.
func (e *Engine) runRound(ctx context.Context) error {
	roundStart := time.Now()
	nextTTL := e.cfg.FirstTTL
	var targetReachedAt time.Time
	roundTargetReached := false

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		now := time.Now()
		elapsed := now.Sub(roundStart)

		// Rule 1: send while room remains in this round.
		for len(e.inflight) < e.cfg.MaxInflight &&
			nextTTL <= e.cfg.MaxTTL &&
			(e.targetTTL == nil || nextTTL <= *e.targetTTL) {
			if err := e.sendAt(nextTTL); err != nil {
				var te *TracerError
				if errors.As(err, &te) && te.Kind == ChannelFullKind {
					break
				}
				e.logger.Debug("send failed", "ttl", nextTTL, "error", err)
			}
			nextTTL++
		}

		resp, err := e.channel.RecvProbe(e.cfg.ReadTimeout)
		if err != nil {
			e.logger.Debug("recv error", "error", err)
		}
		if resp != nil {
			if reached := e.handleResponse(*resp); reached {
				roundTargetReached = true
				targetReachedAt = time.Now()
			}
		}

		elapsed = time.Since(roundStart)
		allBelowResolved := nextTTL > e.cfg.MaxTTL && len(e.inflight) == 0
		if e.targetTTL != nil {
			allBelowResolved = len(e.inflight) == 0
		}

		// Rule 3: round completion.
		if roundTargetReached {
			if time.Since(targetReachedAt) >= e.cfg.GraceDuration || allBelowResolved {
				break
			}
		} else if allBelowResolved {
			break
		}
		if elapsed >= e.cfg.MaxRoundDuration {
			break
		}
	}

	e.emitUnresolved()

	// Rule 4: enforce the minimum round wall time before the next round.
	if remaining := e.cfg.MinRoundDuration - time.Since(roundStart); remaining > 0 {
		time.Sleep(remaining)
	}
	return nil
}

func (e *Engine) sendAt(ttl uint8) error {
	seq := e.allocSeq()
	key := ProbeKey{TraceID: e.cfg.TraceIdentifier, Sequence: seq}

	srcPort, dstPort := resolvePorts(e.cfg, seq)
	probe := Probe{
		TTL:      ttl,
		Sequence: seq,
		TraceID:  e.cfg.TraceIdentifier,
		SrcPort:  srcPort,
		DstPort:  dstPort,
		SentAt:   time.Now(),
		Status:   StatusAwaited,
	}

	err := e.channel.SendProbe(probe)
	if err != nil && !errors.Is(err, &TracerError{Kind: IoErrorKind}) {
		return err
	}

	// A probe whose send hit an I/O error is abandoned but still recorded,
	// so it stays Awaited and is reported as such at round end.
	e.inflight[key] = &probeState{ttl: ttl, sentAt: probe.SentAt, srcPort: srcPort, dstPort: dstPort}
	if ttl > e.highestTTL {
		e.highestTTL = ttl
	}
	return err
}

// allocSeq returns the next sequence number, skipping any that would
// collide with a currently outstanding key, per invariant I6.
func (e *Engine) allocSeq() uint16 {
	for {
		seq := e.nextSeq
		e.nextSeq++
		if e.nextSeq == 0 {
			e.nextSeq = e.cfg.MinSequence
		}
		key := ProbeKey{TraceID: e.cfg.TraceIdentifier, Sequence: seq}
		if _, exists := e.inflight[key]; !exists {
			return seq
		}
	}
}

// handleResponse correlates an inbound response to its outstanding probe,
// emits it, and reports whether it represents the target being reached.
func (e *Engine) handleResponse(resp ProbeResponse) bool {
	state, ok := e.inflight[resp.Key]
	if !ok {
		return false // unknown or duplicate; discard per §4.4 edge cases
	}
	delete(e.inflight, resp.Key)

	now := resp.Received
	probe := Probe{
		TTL:        state.ttl,
		Sequence:   resp.Key.Sequence,
		TraceID:    resp.Key.TraceID,
		SrcPort:    state.srcPort,
		DstPort:    state.dstPort,
		SentAt:     state.sentAt,
		ReceivedAt: now,
		Host:       resp.Responder,
		Status:     StatusComplete,
	}

	e.store.Apply(hop.Sample{TTL: probe.TTL, Status: hop.StatusComplete, Host: probe.Host, Duration: probe.Duration()})
	if len(resp.MPLS) > 0 {
		e.store.SetMPLS(probe.TTL, resp.MPLS)
	}
	if resp.NextHopMTU > 0 {
		e.store.SetMTU(probe.TTL, resp.NextHopMTU)
	}
	if probe.Host != nil && DetectNATFromIP(probe.Host, int(probe.TTL)) {
		e.store.SetNAT(probe.TTL, true)
	}
	if e.callback != nil {
		e.callback(probe)
	}

	reachedTarget := false
	switch resp.Kind {
	case KindEchoReply, KindTCPReply:
		reachedTarget = true
	case KindDestinationUnreachable:
		reachedTarget = resp.PortUnreachable
	}
	if reachedTarget && state.ttl <= e.cfg.MaxTTL {
		e.targetReached = true
		if e.targetTTL == nil {
			ttl := state.ttl
			e.targetTTL = &ttl
		}
	}
	return reachedTarget
}

// emitUnresolved reports every probe still Awaited at round end, per §4.4:
// "Probes still in Awaited at round completion are emitted once." Reported
// entries are evicted from inflight rather than merely marked: invariant I1
// bounds MaxInflight by the count of probes actually Awaited, not by every
// key the engine has ever sent, so a timed-out probe must free its slot or
// the send gate in runRound's rule 1 would never reopen for it and the
// scheduler would eventually stall under sustained packet loss. A response
// that arrives after this point is simply unmatched in handleResponse and
// discarded, per §4.4's edge cases.
func (e *Engine) emitUnresolved() {
	for key, state := range e.inflight {
		probe := Probe{
			TTL:      state.ttl,
			Sequence: key.Sequence,
			TraceID:  key.TraceID,
			SrcPort:  state.srcPort,
			DstPort:  state.dstPort,
			SentAt:   state.sentAt,
			Status:   StatusAwaited,
		}
		e.store.Apply(hop.Sample{TTL: probe.TTL, Status: hop.StatusAwaited})
		if e.callback != nil {
			e.callback(probe)
		}
		delete(e.inflight, key)
	}
}
