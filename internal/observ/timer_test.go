package observ

import (
	"testing"
	"time"
)

func TestTimerReportAggregatesPhases(t *testing.T) {
	timer := NewTimer()
	a := timer.Begin("graph")
	time.Sleep(time.Millisecond)
	a.End("3 nodes")
	b := timer.Begin("build")
	b.End("")

	report := timer.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("phases = %d, want 2", len(report.Phases))
	}
	if report.Phases[0].Name != "graph" || report.Phases[0].Note != "3 nodes" {
		t.Fatalf("first phase = %+v", report.Phases[0])
	}
	if report.Phases[0].DurationMS <= 0 {
		t.Fatalf("graph duration must be positive, got %v", report.Phases[0].DurationMS)
	}
	if report.TotalMS < report.Phases[0].DurationMS {
		t.Fatalf("total %v smaller than first phase %v", report.TotalMS, report.Phases[0].DurationMS)
	}
}

func TestTimerDoubleEndKeepsFirstMeasurement(t *testing.T) {
	timer := NewTimer()
	p := timer.Begin("build")
	p.End("first")
	got := timer.Report().Phases[0]
	time.Sleep(time.Millisecond)
	p.End("second")
	again := timer.Report().Phases[0]
	if again.DurationMS != got.DurationMS || again.Note != "first" {
		t.Fatalf("second End changed the phase: %+v -> %+v", got, again)
	}
}

func TestTimerEmptyReport(t *testing.T) {
	if r := NewTimer().Report(); len(r.Phases) != 0 || r.TotalMS != 0 {
		t.Fatalf("empty timer report = %+v", r)
	}
}
