package metrics

import (
	"testing"
	"time"
)

func TestTimingMetric_Record(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("test_op")

	m.Record(10 * time.Millisecond)
	m.Record(30 * time.Millisecond)
	m.Record(20 * time.Millisecond)

	if got := m.Count(); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
	if got := m.MaxNs(); got != (30 * time.Millisecond).Nanoseconds() {
		t.Errorf("MaxNs() = %d, want 30ms", got)
	}
	if got := m.MinNs(); got != (10 * time.Millisecond).Nanoseconds() {
		t.Errorf("MinNs() = %d, want 10ms", got)
	}
	if got := m.AvgNs(); got != (20 * time.Millisecond).Nanoseconds() {
		t.Errorf("AvgNs() = %d, want 20ms", got)
	}

	stats := m.Stats()
	if stats.Name != "test_op" || stats.Count != 3 {
		t.Errorf("Stats() = %+v", stats)
	}

	m.Reset()
	if m.Count() != 0 || m.AvgNs() != 0 {
		t.Errorf("Reset left data behind")
	}
}

func TestTimingMetric_DisabledRecordsNothing(t *testing.T) {
	SetEnabled(false)
	defer SetEnabled(true)

	m := newTimingMetric("disabled_op")
	m.Record(5 * time.Millisecond)
	if m.Count() != 0 {
		t.Errorf("disabled metric recorded a measurement")
	}

	done := Timer(m)
	done()
	if m.Count() != 0 {
		t.Errorf("disabled timer recorded a measurement")
	}
}

func TestTimer(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("timed_op")

	done := Timer(m)
	time.Sleep(time.Millisecond)
	done()

	if m.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", m.Count())
	}
	if m.TotalNs() <= 0 {
		t.Errorf("TotalNs() = %d, want > 0", m.TotalNs())
	}

	// nil metric is a safe no-op
	Timer(nil)()
}

func TestAllTimingStats_SkipsEmpty(t *testing.T) {
	SetEnabled(true)
	ResetAll()

	PathRebuild.Record(time.Millisecond)
	stats := AllTimingStats()
	if len(stats) != 1 || stats[0].Name != "path_rebuild" {
		t.Fatalf("AllTimingStats() = %+v, want just path_rebuild", stats)
	}
	ResetAll()
	if got := AllTimingStats(); len(got) != 0 {
		t.Fatalf("stats after ResetAll: %+v", got)
	}
}
