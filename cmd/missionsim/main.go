package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/lumenobs/surveysim/internal/logging"
	"github.com/lumenobs/surveysim/internal/observability"
	"github.com/lumenobs/surveysim/mission"
	"github.com/lumenobs/surveysim/schedule"
	"github.com/lumenobs/surveysim/timebudget"
)

// Config collects the flag-settable knobs of the mission simulator.
type Config struct {
	ProfilePath    string
	MetricsAddress string
	// SettleDays is a fixed overhead charged on top of every
	// integration, covering slew and settling.
	SettleDays float64
	// Linger keeps /metrics up after the survey finishes so a final
	// scrape can pick up the end-of-mission gauges.
	Linger time.Duration

	// Zero means take the value from the profile.
	LifetimeYears  float64
	ActiveFraction float64
	WindowDays     float64
}

func main() {
	var cfg Config
	flag.StringVar(&cfg.ProfilePath, "profile", "configs/mission_profile.json", "Path to a JSON mission profile")
	flag.StringVar(&cfg.MetricsAddress, "metrics-addr", ":9090", "HTTP address for Prometheus /metrics (empty disables the endpoint)")
	flag.Float64Var(&cfg.SettleDays, "settle-days", 0, "Overhead charged per observation in days, on top of the integration")
	flag.DurationVar(&cfg.Linger, "linger", 0, "How long to keep serving /metrics after the survey finishes")
	flag.Float64Var(&cfg.LifetimeYears, "lifetime-years", 0, "Override the profile's mission lifetime in years")
	flag.Float64Var(&cfg.ActiveFraction, "active-fraction", 0, "Override the profile's active timeline fraction (0, 1]")
	flag.Float64Var(&cfg.WindowDays, "window-days", 0, "Override the profile's observing window in days")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}

	var budgetMetrics *observability.BudgetCollector
	var surveyMetrics *observability.SurveyCollector
	if cfg.MetricsAddress != "" {
		budgetMetrics, err = observability.NewBudgetCollector(nil)
		if err != nil {
			log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
			os.Exit(1)
		}
		surveyMetrics, err = observability.NewSurveyCollector(nil)
		if err != nil {
			log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
			os.Exit(1)
		}
	}
	metricsSrv := serveMetrics(cfg.MetricsAddress, budgetMetrics, log)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := run(runCtx, cfg, log, budgetMetrics, surveyMetrics)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		log.Info(ctx, "survey interrupted")
	default:
		log.Error(ctx, "survey failed", logging.String("error", err.Error()))
	}
	if summary != nil {
		log.Info(ctx, "survey summary",
			logging.Int("visits", summary.Visits),
			logging.Int("detections", summary.Detections),
			logging.Int("characterizations", summary.Characterizations),
			logging.Int("truncated", summary.Truncated),
			logging.Float64("elapsed_days", timebudget.InDays(summary.Elapsed)),
			logging.Bool("exhausted", summary.Exhausted),
		)
	}

	if cfg.Linger > 0 && metricsSrv != nil {
		log.Info(ctx, "holding metrics endpoint open", logging.String("linger", cfg.Linger.String()))
		select {
		case <-time.After(cfg.Linger):
		case <-runCtx.Done():
		}
	}

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	if err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}

// run loads the mission profile, wires the time budget to its recorders, and
// drives the survey to completion. It is separate from main so tests can
// exercise the whole pipeline without flags or signal handling.
func run(ctx context.Context, cfg Config, log logging.Logger, budgetMetrics *observability.BudgetCollector, surveyMetrics *observability.SurveyCollector) (*schedule.Summary, error) {
	f, err := os.Open(cfg.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("open mission profile: %w", err)
	}
	profile, err := mission.LoadProfile(f)
	f.Close()
	if err != nil {
		return nil, err
	}
	applyOverrides(profile, cfg)

	ps := profile.Summary()
	log.Info(ctx, "mission profile loaded",
		logging.String("name", ps.Name),
		logging.String("path", cfg.ProfilePath),
		logging.Float64("start_mjd", ps.StartMJD),
		logging.Float64("lifetime_days", ps.LifetimeDays),
		logging.Float64("extension_days", ps.ExtensionDays),
		logging.Float64("active_fraction", ps.ActiveFraction),
		logging.Float64("window_days", ps.WindowDays),
		logging.Int("targets", ps.Targets),
	)

	recorders := []timebudget.Recorder{observability.NewAuditLog(log)}
	if budgetMetrics != nil {
		recorders = append(recorders, budgetMetrics)
	}

	budget, err := profile.Budget(timebudget.WithRecorder(observability.Fanout(recorders...)))
	if err != nil {
		return nil, fmt.Errorf("build time budget: %w", err)
	}

	var surveyOpts []schedule.Option
	if cfg.SettleDays > 0 {
		surveyOpts = append(surveyOpts, schedule.WithSettle(timebudget.Days(cfg.SettleDays)))
	}
	surveyor := schedule.NewSurveyor(budget, profile.Targets, log, surveyOpts...)
	if surveyMetrics != nil {
		surveyMetrics.SetPendingVisits(surveyor.Pending())
		surveyor.AddListener(func(obs schedule.Observation) {
			if obs.Accepted {
				surveyMetrics.RecordVisit(obs.Origin)
			}
			if obs.Truncated {
				surveyMetrics.IncTruncations()
			}
			surveyMetrics.SetPendingVisits(surveyor.Pending())
		})
	}
	return surveyor.Run(ctx)
}

// applyOverrides folds flag-level overrides into the loaded profile.
func applyOverrides(profile *mission.Profile, cfg Config) {
	if cfg.LifetimeYears > 0 {
		profile.Lifetime = timebudget.Years(cfg.LifetimeYears)
	}
	if cfg.ActiveFraction > 0 {
		profile.ActiveFraction = cfg.ActiveFraction
	}
	if cfg.WindowDays > 0 {
		profile.Window = timebudget.Days(cfg.WindowDays)
	}
}

func serveMetrics(addr string, collector *observability.BudgetCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
