package hop

import (
	"math"
	"net"
	"testing"
	"time"
)

func TestNewTrace_InitializesAllHopSlots(t *testing.T) {
	tr := NewTrace()

	if len(tr.Hops) != MaxHops {
		t.Fatalf("expected %d hop slots, got %d", MaxHops, len(tr.Hops))
	}
	for i, h := range tr.Hops {
		if int(h.TTL) != i+1 {
			t.Errorf("hop %d: expected TTL %d, got %d", i, i+1, h.TTL)
		}
	}
	if tr.HighestTTL != 0 {
		t.Errorf("expected HighestTTL 0 on a fresh trace, got %d", tr.HighestTTL)
	}
}

func TestStore_Apply_Complete_UpdatesCounts(t *testing.T) {
	s := NewStore()
	ip := net.ParseIP("192.168.1.1")

	s.Apply(Sample{TTL: 3, Status: StatusComplete, Host: ip, Duration: 10 * time.Millisecond})

	tr := s.Snapshot()
	h := tr.Hops[2]
	if h.TotalSent != 1 || h.TotalRecv != 1 {
		t.Fatalf("expected sent=1 recv=1, got sent=%d recv=%d", h.TotalSent, h.TotalRecv)
	}
	if h.Last == nil || *h.Last != 10*time.Millisecond {
		t.Errorf("expected Last=10ms, got %v", h.Last)
	}
	if tr.HighestTTL != 3 {
		t.Errorf("expected HighestTTL 3, got %d", tr.HighestTTL)
	}
}

func TestStore_Apply_Awaited_IncrementsSentOnly(t *testing.T) {
	s := NewStore()

	s.Apply(Sample{TTL: 1, Status: StatusAwaited})

	h := s.Snapshot().Hops[0]
	if h.TotalSent != 1 {
		t.Errorf("expected TotalSent 1, got %d", h.TotalSent)
	}
	if h.TotalRecv != 0 {
		t.Errorf("expected TotalRecv 0, got %d", h.TotalRecv)
	}
	if len(h.Samples) != 1 || h.Samples[0] != 0 {
		t.Errorf("expected a single zero sample, got %v", h.Samples)
	}
}

func TestStore_Apply_OutOfRangeTTL_Dropped(t *testing.T) {
	s := NewStore()

	s.Apply(Sample{TTL: 0, Status: StatusComplete, Duration: time.Millisecond})
	s.Apply(Sample{TTL: MaxHops + 1, Status: StatusComplete, Duration: time.Millisecond})

	tr := s.Snapshot()
	if tr.HighestTTL != 0 {
		t.Errorf("expected HighestTTL unchanged at 0, got %d", tr.HighestTTL)
	}
}

func TestStore_Apply_BestWorstLast_TrackCorrectly(t *testing.T) {
	s := NewStore()
	ip := net.ParseIP("10.0.0.1")

	durations := []time.Duration{20 * time.Millisecond, 5 * time.Millisecond, 30 * time.Millisecond}
	for _, d := range durations {
		s.Apply(Sample{TTL: 1, Status: StatusComplete, Host: ip, Duration: d})
	}

	h := s.Snapshot().Hops[0]
	if *h.Best != 5*time.Millisecond {
		t.Errorf("expected best 5ms, got %v", *h.Best)
	}
	if *h.Worst != 30*time.Millisecond {
		t.Errorf("expected worst 30ms, got %v", *h.Worst)
	}
	if *h.Last != 30*time.Millisecond {
		t.Errorf("expected last 30ms, got %v", *h.Last)
	}
}

func TestStore_Apply_AvgMs_MatchesArithmeticMean(t *testing.T) {
	s := NewStore()
	ip := net.ParseIP("10.0.0.1")

	for _, ms := range []int{10, 20, 30} {
		s.Apply(Sample{TTL: 1, Status: StatusComplete, Host: ip, Duration: time.Duration(ms) * time.Millisecond})
	}

	h := s.Snapshot().Hops[0]
	if got := h.AvgMs(); math.Abs(got-20) > 1e-9 {
		t.Errorf("expected avg 20ms, got %v", got)
	}
}

// TestStore_Apply_WelfordOrder_MatchesStreamingReference pins the exact,
// intentionally non-canonical update order against a streaming reference
// computed the same way: mean is advanced before m2 accumulates against it.
func TestStore_Apply_WelfordOrder_MatchesStreamingReference(t *testing.T) {
	s := NewStore()
	ip := net.ParseIP("10.0.0.1")
	msValues := []float64{12, 7, 19, 23, 5, 30, 14}

	var wantMean, wantM2 float64
	var n float64
	for _, ms := range msValues {
		n++
		wantMean += (ms - wantMean) / n
		wantM2 += (ms - wantMean) * (ms - wantMean)
		s.Apply(Sample{TTL: 2, Status: StatusComplete, Host: ip, Duration: time.Duration(ms * float64(time.Millisecond))})
	}

	h := s.Snapshot().Hops[1]
	if math.Abs(h.Mean-wantMean) > 1e-9 {
		t.Errorf("expected mean %v, got %v", wantMean, h.Mean)
	}
	if math.Abs(h.M2-wantM2) > 1e-9 {
		t.Errorf("expected m2 %v, got %v", wantM2, h.M2)
	}

	wantStdDev := math.Sqrt(wantM2 / (n - 1))
	if math.Abs(h.StdDevMs()-wantStdDev) > 1e-9 {
		t.Errorf("expected stddev %v, got %v", wantStdDev, h.StdDevMs())
	}
}

func TestHop_StdDevMs_ZeroUntilTwoSamples(t *testing.T) {
	s := NewStore()
	ip := net.ParseIP("10.0.0.1")

	if got := s.Snapshot().Hops[0].StdDevMs(); got != 0 {
		t.Errorf("expected 0 stddev with no samples, got %v", got)
	}

	s.Apply(Sample{TTL: 1, Status: StatusComplete, Host: ip, Duration: 10 * time.Millisecond})
	if got := s.Snapshot().Hops[0].StdDevMs(); got != 0 {
		t.Errorf("expected 0 stddev with one sample, got %v", got)
	}
}

func TestHop_LossPercent_CalculatesCorrectly(t *testing.T) {
	s := NewStore()
	ip := net.ParseIP("192.168.1.1")

	s.Apply(Sample{TTL: 1, Status: StatusComplete, Host: ip, Duration: 10 * time.Millisecond})
	s.Apply(Sample{TTL: 1, Status: StatusAwaited})
	s.Apply(Sample{TTL: 1, Status: StatusComplete, Host: ip, Duration: 20 * time.Millisecond})
	s.Apply(Sample{TTL: 1, Status: StatusAwaited})

	h := s.Snapshot().Hops[0]
	if got := h.LossPercent(); got != 50.0 {
		t.Errorf("expected loss 50%%, got %v%%", got)
	}
}

func TestHop_LossPercent_ZeroForNoProbes(t *testing.T) {
	h := newHop(1)
	if got := h.LossPercent(); got != 0 {
		t.Errorf("expected loss 0, got %v", got)
	}
}

func TestHop_HasMultipleAddrs_DetectsECMP(t *testing.T) {
	s := NewStore()
	s.Apply(Sample{TTL: 1, Status: StatusComplete, Host: net.ParseIP("192.168.1.1"), Duration: 10 * time.Millisecond})
	s.Apply(Sample{TTL: 1, Status: StatusComplete, Host: net.ParseIP("192.168.1.2"), Duration: 10 * time.Millisecond})

	if !s.Snapshot().Hops[0].HasMultipleAddrs() {
		t.Error("expected HasMultipleAddrs true for two distinct responders")
	}
}

func TestHop_HasMultipleAddrs_FalseForSingleAddr(t *testing.T) {
	s := NewStore()
	s.Apply(Sample{TTL: 1, Status: StatusComplete, Host: net.ParseIP("192.168.1.1"), Duration: 10 * time.Millisecond})
	s.Apply(Sample{TTL: 1, Status: StatusComplete, Host: net.ParseIP("192.168.1.1"), Duration: 20 * time.Millisecond})

	if s.Snapshot().Hops[0].HasMultipleAddrs() {
		t.Error("expected HasMultipleAddrs false for a single repeated responder")
	}
}

func TestStore_Apply_Samples_NewestFirstAndCapped(t *testing.T) {
	s := NewStore()
	ip := net.ParseIP("10.0.0.1")

	for i := 0; i < MaxSamples+10; i++ {
		s.Apply(Sample{TTL: 1, Status: StatusComplete, Host: ip, Duration: time.Duration(i) * time.Millisecond})
	}

	h := s.Snapshot().Hops[0]
	if len(h.Samples) != MaxSamples {
		t.Fatalf("expected samples capped at %d, got %d", MaxSamples, len(h.Samples))
	}
	if h.Samples[0] != time.Duration(MaxSamples+9)*time.Millisecond {
		t.Errorf("expected newest sample first, got %v", h.Samples[0])
	}
}

func TestStore_SetMPLS_AttachesLabels(t *testing.T) {
	s := NewStore()
	labels := []MPLSLabel{{Label: 24015, Exp: 0, S: true, TTL: 1}}

	s.SetMPLS(3, labels)

	h := s.Snapshot().Hops[2]
	if len(h.MPLS) != 1 || h.MPLS[0].Label != 24015 {
		t.Errorf("expected MPLS label 24015 attached, got %v", h.MPLS)
	}
}

func TestStore_SetNAT_MarksHop(t *testing.T) {
	s := NewStore()

	s.SetNAT(2, true)

	if !s.Snapshot().Hops[1].NAT {
		t.Error("expected hop 2 to be marked NAT")
	}
}

func TestTrace_TargetHop_ReturnsHighestTTLHop(t *testing.T) {
	s := NewStore()
	s.Apply(Sample{TTL: 1, Status: StatusComplete, Host: net.ParseIP("10.0.0.1"), Duration: time.Millisecond})
	s.Apply(Sample{TTL: 4, Status: StatusComplete, Host: net.ParseIP("10.0.0.4"), Duration: time.Millisecond})

	tr := s.Snapshot()
	if got := tr.TargetHop().TTL; got != 4 {
		t.Errorf("expected target hop TTL 4, got %d", got)
	}
}

func TestTrace_TargetHop_ReturnsFirstHopWhenEmpty(t *testing.T) {
	tr := NewTrace()
	if got := tr.TargetHop().TTL; got != 1 {
		t.Errorf("expected target hop TTL 1 on an empty trace, got %d", got)
	}
}
