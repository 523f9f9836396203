package observability

import "testing"

func TestTTFAWindowSnapshot(t *testing.T) {
	w := newTTFAWindow(8)
	w.Observe(500)
	w.Observe(700)
	w.Observe(900)
	w.ObserveIncident("stream_error")
	w.ObserveIncident("stream_error")

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	s := snap.TTFA
	if s.Stage != StageTTFA {
		t.Fatalf("Stage = %q, want %q", s.Stage, StageTTFA)
	}
	if s.Samples != 3 {
		t.Fatalf("Samples = %d, want 3", s.Samples)
	}
	if s.LastMS != 900 {
		t.Fatalf("LastMS = %.2f, want 900", s.LastMS)
	}
	if s.P50MS != 700 {
		t.Fatalf("P50MS = %.2f, want 700", s.P50MS)
	}
	if s.P95MS <= 700 || s.P95MS > 900 {
		t.Fatalf("P95MS = %.2f, want (700,900]", s.P95MS)
	}
	if s.TargetP95MS != 1400 {
		t.Fatalf("TargetP95MS = %.2f, want 1400", s.TargetP95MS)
	}
	if len(snap.Incidents) != 1 || snap.Incidents[0].Count != 2 {
		t.Fatalf("Incidents = %+v, want one stream_error with count 2", snap.Incidents)
	}
}

func TestTTFAWindowRingOverwrite(t *testing.T) {
	w := newTTFAWindow(4)
	for i := 0; i < 10; i++ {
		w.Observe(float64(100 * i))
	}
	s := w.Snapshot().TTFA
	if s.Samples != 4 {
		t.Fatalf("Samples = %d, want 4", s.Samples)
	}
	if s.LastMS != 900 {
		t.Fatalf("LastMS = %.2f, want 900", s.LastMS)
	}
	// Only the last four samples (600..900) remain.
	if s.P50MS < 600 {
		t.Fatalf("P50MS = %.2f, want >= 600", s.P50MS)
	}
}

func TestTTFAWindowEmptySnapshot(t *testing.T) {
	w := newTTFAWindow(4)

	snap := w.Snapshot()
	if snap.TTFA.Samples != 0 {
		t.Fatalf("Samples = %d, want 0", snap.TTFA.Samples)
	}
	if snap.TTFA.Stage != StageTTFA {
		t.Fatalf("Stage = %q, want %q", snap.TTFA.Stage, StageTTFA)
	}
	if len(snap.Incidents) != 0 {
		t.Fatalf("Incidents = %+v, want none", snap.Incidents)
	}
}
