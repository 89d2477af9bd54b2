package trace

import (
	"net"
	"testing"
	"time"

	"github.com/hervehildenbrand/gtrace/pkg/hop"
)

func TestECMPDetector_NoECMP(t *testing.T) {
	s := hop.NewStore()
	ip := net.ParseIP("192.168.1.1")
	for _, ms := range []int{10, 11, 12} {
		s.Apply(hop.Sample{TTL: 5, Status: hop.StatusComplete, Host: ip, Duration: time.Duration(ms) * time.Millisecond})
	}
	tr := s.Snapshot()

	info := DetectECMP(&tr.Hops[4])

	if info.Detected {
		t.Error("expected no ECMP detection for single IP")
	}
	if info.PathCount != 1 {
		t.Errorf("expected 1 path, got %d", info.PathCount)
	}
}

func TestECMPDetector_WithECMP(t *testing.T) {
	s := hop.NewStore()
	addrs := []string{"192.168.1.1", "192.168.1.2", "192.168.1.1", "192.168.1.3"}
	for i, a := range addrs {
		s.Apply(hop.Sample{TTL: 5, Status: hop.StatusComplete, Host: net.ParseIP(a), Duration: time.Duration(10+i) * time.Millisecond})
	}
	tr := s.Snapshot()

	info := DetectECMP(&tr.Hops[4])

	if !info.Detected {
		t.Error("expected ECMP detection for multiple IPs")
	}
	if info.PathCount != 3 {
		t.Errorf("expected 3 paths, got %d", info.PathCount)
	}
}

func TestECMPDetector_AllAwaited(t *testing.T) {
	s := hop.NewStore()
	s.Apply(hop.Sample{TTL: 5, Status: hop.StatusAwaited})
	s.Apply(hop.Sample{TTL: 5, Status: hop.StatusAwaited})
	tr := s.Snapshot()

	info := DetectECMP(&tr.Hops[4])

	if info.Detected {
		t.Error("expected no ECMP detection when nothing has responded")
	}
	if info.PathCount != 0 {
		t.Errorf("expected 0 paths, got %d", info.PathCount)
	}
}

func TestECMPDetector_MixedAwaitedAndComplete(t *testing.T) {
	s := hop.NewStore()
	s.Apply(hop.Sample{TTL: 5, Status: hop.StatusComplete, Host: net.ParseIP("10.0.0.1"), Duration: 10 * time.Millisecond})
	s.Apply(hop.Sample{TTL: 5, Status: hop.StatusAwaited})
	s.Apply(hop.Sample{TTL: 5, Status: hop.StatusComplete, Host: net.ParseIP("10.0.0.2"), Duration: 12 * time.Millisecond})
	tr := s.Snapshot()

	info := DetectECMP(&tr.Hops[4])

	if !info.Detected {
		t.Error("expected ECMP detection for multiple IPs with awaited probes mixed in")
	}
	if info.PathCount != 2 {
		t.Errorf("expected 2 paths, got %d", info.PathCount)
	}
}

func TestECMPInfo_String(t *testing.T) {
	info := ECMPInfo{
		Detected:  true,
		PathCount: 3,
		IPs:       []net.IP{net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"), net.ParseIP("10.0.0.3")},
	}

	s := info.String()
	if s != "[ECMP:3]" {
		t.Errorf("expected '[ECMP:3]', got %q", s)
	}
}

func TestECMPInfo_String_NoECMP(t *testing.T) {
	info := ECMPInfo{
		Detected:  false,
		PathCount: 1,
	}

	s := info.String()
	if s != "" {
		t.Errorf("expected empty string for no ECMP, got %q", s)
	}
}

func TestGenerateFlowID(t *testing.T) {
	ids := make(map[uint16]bool)
	for i := 0; i < 10; i++ {
		id := GenerateFlowID(i)
		if ids[id] {
			t.Errorf("duplicate flow ID generated: %d", id)
		}
		ids[id] = true
	}
}

func TestAnalyzeTraceForECMP_FlagsOnlyECMPHops(t *testing.T) {
	s := hop.NewStore()
	s.Apply(hop.Sample{TTL: 1, Status: hop.StatusComplete, Host: net.ParseIP("10.0.0.1"), Duration: time.Millisecond})
	s.Apply(hop.Sample{TTL: 2, Status: hop.StatusComplete, Host: net.ParseIP("10.0.0.2"), Duration: time.Millisecond})
	s.Apply(hop.Sample{TTL: 2, Status: hop.StatusComplete, Host: net.ParseIP("10.0.0.3"), Duration: time.Millisecond})
	tr := s.Snapshot()

	infos := AnalyzeTraceForECMP(&tr)

	if infos[0].Detected {
		t.Error("expected hop 1 to not show ECMP")
	}
	if !infos[1].Detected {
		t.Error("expected hop 2 to show ECMP")
	}
	if !HasECMP(&tr) {
		t.Error("expected HasECMP true for a trace with an ECMP hop")
	}
}
