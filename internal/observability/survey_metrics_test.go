package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSurveyCollectorTracksProgress(t *testing.T) {
	collector, err := NewSurveyCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewSurveyCollector: %v", err)
	}

	collector.RecordVisit("detection")
	collector.RecordVisit("detection")
	collector.RecordVisit("characterization")
	collector.SetPendingVisits(4)
	collector.IncTruncations()

	if got := testutil.ToFloat64(collector.Visits.WithLabelValues("detection")); got != 2 {
		t.Fatalf("detection visits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.Visits.WithLabelValues("characterization")); got != 1 {
		t.Fatalf("characterization visits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.PendingVisits); got != 4 {
		t.Fatalf("pending visits = %v, want 4", got)
	}
	if got := testutil.ToFloat64(collector.Truncations); got != 1 {
		t.Fatalf("truncations = %v, want 1", got)
	}
}

func TestSurveyCollectorReusesExistingCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSurveyCollector(reg)
	if err != nil {
		t.Fatalf("NewSurveyCollector: %v", err)
	}
	second, err := NewSurveyCollector(reg)
	if err != nil {
		t.Fatalf("NewSurveyCollector again: %v", err)
	}

	first.SetPendingVisits(7)
	if got := testutil.ToFloat64(second.PendingVisits); got != 7 {
		t.Fatalf("pending visits via second collector = %v, want 7", got)
	}
}
