package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/lumenobs/surveysim/timebudget"
)

func TestBudgetCollectorRecordsAllocations(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewBudgetCollector(reg)
	if err != nil {
		t.Fatalf("NewBudgetCollector: %v", err)
	}

	start := time.Date(2024, time.November, 20, 0, 0, 0, 0, time.UTC)
	budget, err := timebudget.New(start, timebudget.Years(6), 0, 1.0/6.0,
		timebudget.WithRecorder(collector))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	budget.Allocate(timebudget.Days(10))
	budget.Allocate(timebudget.Days(10))
	budget.Allocate(timebudget.Days(20))
	budget.Allocate(-timebudget.Days(1))

	wantCounts := map[string]float64{
		"ok":                   1,
		"+window":              1,
		"!too long":            1,
		"!negative allocation": 1,
	}
	for outcome, want := range wantCounts {
		if got := testutil.ToFloat64(collector.Allocations.WithLabelValues(outcome)); got != want {
			t.Fatalf("surveysim_allocations_total{outcome=%q} = %v, want %v", outcome, got, want)
		}
	}

	if got := testutil.ToFloat64(collector.ElapsedDays); got != 94 {
		t.Fatalf("surveysim_mission_elapsed_days = %v, want 94", got)
	}
	if got := testutil.ToFloat64(collector.WindowStartDays); got != 84 {
		t.Fatalf("surveysim_window_start_days = %v, want 84", got)
	}
	if got := testutil.ToFloat64(collector.WindowAdvances); got != 1 {
		t.Fatalf("surveysim_window_advances_total = %v, want 1", got)
	}

	family := gatherFamily(t, reg, "surveysim_allocation_request_days")
	if family == nil || len(family.Metric) == 0 {
		t.Fatalf("surveysim_allocation_request_days not gathered")
	}
	if got := family.Metric[0].GetHistogram().GetSampleCount(); got != 4 {
		t.Fatalf("surveysim_allocation_request_days sample_count = %d, want 4", got)
	}
}

func TestBudgetCollectorRejectionsDoNotMoveGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewBudgetCollector(reg)
	if err != nil {
		t.Fatalf("NewBudgetCollector: %v", err)
	}

	collector.RecordAllocation(timebudget.Record{
		Elapsed:   timebudget.Days(10),
		Requested: timebudget.Days(20),
		Outcome:   timebudget.OutcomeTooLong,
	})

	if got := testutil.ToFloat64(collector.WindowAdvances); got != 0 {
		t.Fatalf("surveysim_window_advances_total = %v, want 0", got)
	}
	if got := testutil.ToFloat64(collector.WindowStartDays); got != 0 {
		t.Fatalf("surveysim_window_start_days = %v, want 0", got)
	}
}

func TestBudgetCollectorHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewBudgetCollector(reg)
	if err != nil {
		t.Fatalf("NewBudgetCollector: %v", err)
	}

	collector.RecordAllocation(timebudget.Record{
		Elapsed:   timebudget.Days(94),
		Requested: timebudget.Days(10),
		Outcome:   timebudget.OutcomeWindowAdvance,
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"surveysim_allocations_total",
		"surveysim_allocation_request_days",
		"surveysim_mission_elapsed_days",
		"surveysim_window_start_days",
		"surveysim_window_advances_total",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
	if !strings.Contains(body, "94") || !strings.Contains(body, "84") {
		t.Fatalf("/metrics output missing gauge values: %s", body)
	}
}

func gatherFamily(t *testing.T, gatherer prometheus.Gatherer, name string) *dto.MetricFamily {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
