package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lumenobs/surveysim/internal/logging"
	"github.com/lumenobs/surveysim/internal/observability"
	"github.com/lumenobs/surveysim/mission"
	"github.com/lumenobs/surveysim/timebudget"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return path
}

func TestRunSurveyFromProfile(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	path := writeProfile(t, `{
		"name": "smoke",
		"start_mjd": 60634,
		"lifetime_years": 1,
		"active_fraction": 1,
		"window_days": 14,
		"targets": [
			{"id": "a", "name": "Alpha", "priority": 2, "integration_days": 2, "revisits": 1},
			{"id": "b", "name": "Beta", "priority": 1, "integration_days": 1}
		]
	}`)

	reg := prometheus.NewRegistry()
	budgetMetrics, err := observability.NewBudgetCollector(reg)
	if err != nil {
		t.Fatalf("NewBudgetCollector: %v", err)
	}
	surveyMetrics, err := observability.NewSurveyCollector(reg)
	if err != nil {
		t.Fatalf("NewSurveyCollector: %v", err)
	}

	log := logging.New(logging.Config{Level: "warn", Format: "text"})
	summary, err := run(ctx, Config{ProfilePath: path}, log, budgetMetrics, surveyMetrics)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.Visits != 3 || summary.Detections != 2 || summary.Characterizations != 1 {
		t.Fatalf("summary visits/detections/characterizations = %d/%d/%d, want 3/2/1",
			summary.Visits, summary.Detections, summary.Characterizations)
	}
	if summary.Elapsed != timebudget.Days(5) {
		t.Fatalf("summary.Elapsed = %v, want %v", summary.Elapsed, timebudget.Days(5))
	}
	if summary.Exhausted {
		t.Fatalf("summary.Exhausted = true, want false")
	}

	if got := testutil.ToFloat64(budgetMetrics.Allocations.WithLabelValues("ok")); got != 3 {
		t.Fatalf("ok allocations = %v, want 3", got)
	}
	if got := testutil.ToFloat64(budgetMetrics.ElapsedDays); got != 5 {
		t.Fatalf("elapsed days gauge = %v, want 5", got)
	}
	if got := testutil.ToFloat64(surveyMetrics.Visits.WithLabelValues("detection")); got != 2 {
		t.Fatalf("detection visits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(surveyMetrics.PendingVisits); got != 0 {
		t.Fatalf("pending visits after run = %v, want 0", got)
	}
}

func TestRunMissingProfile(t *testing.T) {
	log := logging.New(logging.Config{Level: "error", Format: "text"})
	summary, err := run(context.Background(), Config{
		ProfilePath: filepath.Join(t.TempDir(), "absent.json"),
	}, log, nil, nil)
	if err == nil {
		t.Fatalf("run with missing profile succeeded, want error")
	}
	if summary != nil {
		t.Fatalf("summary = %+v, want nil", summary)
	}
}

func TestApplyOverrides(t *testing.T) {
	profile := &mission.Profile{
		Lifetime:       timebudget.Years(6),
		ActiveFraction: 1.0 / 6.0,
	}

	applyOverrides(profile, Config{})
	if profile.Lifetime != timebudget.Years(6) || profile.ActiveFraction != 1.0/6.0 || profile.Window != 0 {
		t.Fatalf("zero config changed the profile: %+v", profile)
	}

	applyOverrides(profile, Config{LifetimeYears: 2, ActiveFraction: 0.5, WindowDays: 7})
	if profile.Lifetime != timebudget.Years(2) {
		t.Fatalf("Lifetime = %v, want %v", profile.Lifetime, timebudget.Years(2))
	}
	if profile.ActiveFraction != 0.5 {
		t.Fatalf("ActiveFraction = %v, want 0.5", profile.ActiveFraction)
	}
	if profile.Window != timebudget.Days(7) {
		t.Fatalf("Window = %v, want %v", profile.Window, timebudget.Days(7))
	}
}
