package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SurveyCollector exposes survey-progress Prometheus metrics.
type SurveyCollector struct {
	gatherer prometheus.Gatherer

	Visits        *prometheus.CounterVec
	PendingVisits prometheus.Gauge
	Truncations   prometheus.Counter
}

// NewSurveyCollector registers survey metrics against the provided registerer.
func NewSurveyCollector(reg prometheus.Registerer) (*SurveyCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	visits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "surveysim_visits_total",
		Help: "Completed target visits, labeled by observation origin.",
	}, []string{"origin"})
	visits, err := registerCounterVec(reg, visits, "surveysim_visits_total")
	if err != nil {
		return nil, err
	}

	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "surveysim_pending_visits",
		Help: "Number of visits currently waiting in the survey queue.",
	})
	pending, err = registerGauge(reg, pending, "surveysim_pending_visits")
	if err != nil {
		return nil, err
	}

	truncations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "surveysim_truncated_integrations_total",
		Help: "Cumulative number of integrations cut down to the observing window width.",
	})
	truncations, err = registerCounter(reg, truncations, "surveysim_truncated_integrations_total")
	if err != nil {
		return nil, err
	}

	return &SurveyCollector{
		gatherer:      gatherer,
		Visits:        visits,
		PendingVisits: pending,
		Truncations:   truncations,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SurveyCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// RecordVisit counts one completed visit for the given origin.
func (c *SurveyCollector) RecordVisit(origin string) {
	if c == nil || c.Visits == nil {
		return
	}
	c.Visits.WithLabelValues(origin).Inc()
}

// SetPendingVisits updates the queue depth gauge.
func (c *SurveyCollector) SetPendingVisits(count int) {
	if c == nil || c.PendingVisits == nil {
		return
	}
	c.PendingVisits.Set(float64(count))
}

// IncTruncations increments the truncated integration counter.
func (c *SurveyCollector) IncTruncations() {
	if c == nil || c.Truncations == nil {
		return
	}
	c.Truncations.Inc()
}
