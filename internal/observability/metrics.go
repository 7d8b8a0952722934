package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lumenobs/surveysim/timebudget"
)

// BudgetCollector bundles Prometheus metrics for mission time accounting
// and provides a ready-to-serve /metrics handler. It satisfies
// timebudget.Recorder so a budget can drive the metrics directly from its
// allocation path.
type BudgetCollector struct {
	gatherer prometheus.Gatherer

	Allocations     *prometheus.CounterVec
	RequestDays     prometheus.Histogram
	ElapsedDays     prometheus.Gauge
	WindowStartDays prometheus.Gauge
	WindowAdvances  prometheus.Counter
}

// NewBudgetCollector registers the budget metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewBudgetCollector(reg prometheus.Registerer) (*BudgetCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "surveysim_allocations_total",
		Help: "Total allocation attempts against the mission time budget, labeled by outcome.",
	}, []string{"outcome"})
	allocations, err := registerCounterVec(reg, allocations, "surveysim_allocations_total")
	if err != nil {
		return nil, err
	}

	requestDays, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "surveysim_allocation_request_days",
		Help:    "Requested allocation widths in days.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 14, 30},
	}), "surveysim_allocation_request_days")
	if err != nil {
		return nil, err
	}

	elapsedDays, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "surveysim_mission_elapsed_days",
		Help: "Mission time consumed so far, in days.",
	}), "surveysim_mission_elapsed_days")
	if err != nil {
		return nil, err
	}

	windowStartDays, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "surveysim_window_start_days",
		Help: "Mission offset of the current observing window start, in days.",
	}), "surveysim_window_start_days")
	if err != nil {
		return nil, err
	}

	windowAdvances, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "surveysim_window_advances_total",
		Help: "Number of allocations that skipped ahead to the next observing window.",
	}), "surveysim_window_advances_total")
	if err != nil {
		return nil, err
	}

	return &BudgetCollector{
		gatherer:        gatherer,
		Allocations:     allocations,
		RequestDays:     requestDays,
		ElapsedDays:     elapsedDays,
		WindowStartDays: windowStartDays,
		WindowAdvances:  windowAdvances,
	}, nil
}

// RecordAllocation implements timebudget.Recorder.
func (c *BudgetCollector) RecordAllocation(rec timebudget.Record) {
	if c == nil {
		return
	}
	if c.Allocations != nil {
		c.Allocations.WithLabelValues(string(rec.Outcome)).Inc()
	}
	if c.RequestDays != nil {
		c.RequestDays.Observe(timebudget.InDays(rec.Requested))
	}
	if c.ElapsedDays != nil {
		c.ElapsedDays.Set(timebudget.InDays(rec.Elapsed))
	}
	if rec.Outcome == timebudget.OutcomeWindowAdvance {
		if c.WindowAdvances != nil {
			c.WindowAdvances.Inc()
		}
		// An accepted rollover lands the clock at the new window start
		// plus the requested width, so the start falls out of the record.
		if c.WindowStartDays != nil {
			c.WindowStartDays.Set(timebudget.InDays(rec.Elapsed - rec.Requested))
		}
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *BudgetCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
