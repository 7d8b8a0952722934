package schedule

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lumenobs/surveysim/internal/logging"
	"github.com/lumenobs/surveysim/mission"
	"github.com/lumenobs/surveysim/timebudget"
)

const tracerName = "github.com/lumenobs/surveysim/schedule"

// Origin tags passed to the budget with each allocation, identifying the
// kind of observation the time went to.
const (
	OriginDetection        = "detection"
	OriginCharacterization = "characterization"
)

// Observation reports one observation attempt to listeners.
type Observation struct {
	TargetID string
	Origin   string
	// Duration is the time actually requested for the visit, settle
	// overhead included, after any truncation to the window width.
	Duration time.Duration
	// Elapsed is the mission offset once the attempt settled.
	Elapsed   time.Duration
	Accepted  bool
	Truncated bool
}

// Summary totals a finished survey run.
type Summary struct {
	Visits            int
	Detections        int
	Characterizations int
	// Truncated counts visits whose integration was cut down to the
	// window width to fit.
	Truncated int
	Elapsed   time.Duration
	Exhausted bool
}

// Surveyor walks the target list against the mission time budget,
// spending integration time until the list drains or the budget runs
// out. Targets are visited in priority order; each accepted visit with
// revisits left re-enters the queue as a characterization follow-up.
type Surveyor struct {
	budget *timebudget.TimeBudget
	queue  *VisitQueue
	log    logging.Logger
	settle time.Duration

	mu        sync.Mutex
	listeners []func(Observation)
}

// Option configures a Surveyor.
type Option func(*Surveyor)

// WithSettle charges a fixed overhead on top of every integration,
// covering slew and settling before the instrument collects light.
func WithSettle(d time.Duration) Option {
	return func(s *Surveyor) {
		if d > 0 {
			s.settle = d
		}
	}
}

// NewSurveyor seeds the visit queue from the profile's target list.
func NewSurveyor(budget *timebudget.TimeBudget, targets []mission.Target, log logging.Logger, opts ...Option) *Surveyor {
	if log == nil {
		log = logging.Noop()
	}
	s := &Surveyor{
		budget: budget,
		queue:  NewVisitQueue(),
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, t := range targets {
		s.queue.Push(Visit{Target: t, Origin: OriginDetection, Remaining: t.Revisits})
	}
	return s
}

// Pending reports how many visits wait in the queue.
func (s *Surveyor) Pending() int {
	return s.queue.Len()
}

// AddListener registers a callback invoked after every observation
// attempt. Callbacks run on the survey goroutine and must not block.
func (s *Surveyor) AddListener(fn func(Observation)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Run drains the visit queue until it empties, the mission budget is
// exhausted, or ctx is cancelled. The returned summary covers whatever
// portion of the survey completed.
func (s *Surveyor) Run(ctx context.Context) (*Summary, error) {
	ctx, log := logging.WithRunLogger(ctx, s.log)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Survey/Run")
	defer span.End()
	if runID := logging.RunIDFromContext(ctx); runID != "" {
		span.SetAttributes(attribute.String("run_id", runID))
	}

	log.Info(ctx, "survey run starting",
		logging.Int("pending_visits", s.queue.Len()),
		logging.Float64("budget_days", timebudget.InDays(s.budget.FinishOffset())),
		logging.Float64("window_days", timebudget.InDays(s.budget.Window())),
	)

	summary := &Summary{}
	for ctx.Err() == nil {
		if s.budget.Exhausted() {
			summary.Exhausted = true
			log.Info(ctx, "mission time exhausted",
				logging.Float64("elapsed_days", timebudget.InDays(s.budget.Elapsed())),
				logging.Int("pending_visits", s.queue.Len()),
			)
			break
		}
		visit, ok := s.queue.Pop()
		if !ok {
			log.Info(ctx, "target list drained")
			break
		}
		s.observe(ctx, log, visit, summary)
	}

	summary.Elapsed = s.budget.Elapsed()
	span.SetAttributes(
		attribute.Int("survey.visits", summary.Visits),
		attribute.Int("survey.detections", summary.Detections),
		attribute.Int("survey.characterizations", summary.Characterizations),
		attribute.Float64("survey.elapsed_days", timebudget.InDays(summary.Elapsed)),
		attribute.Bool("survey.exhausted", summary.Exhausted),
	)
	return summary, ctx.Err()
}

func (s *Surveyor) observe(ctx context.Context, log logging.Logger, visit Visit, summary *Summary) {
	summary.Visits++

	dt := s.settle + visit.Target.Integration
	truncated := false
	accepted := s.budget.AllocateWithOrigin(dt, visit.Origin)
	if !accepted && dt > s.budget.Window() {
		// A request wider than the window can never fit whole, so cut
		// it down and take what the window allows.
		dt = s.budget.Window()
		accepted = s.budget.AllocateWithOrigin(dt, visit.Origin)
		if accepted {
			truncated = true
			summary.Truncated++
			log.Debug(ctx, "integration truncated to window",
				logging.String("target_id", visit.Target.ID),
				logging.Float64("requested_days", timebudget.InDays(s.settle+visit.Target.Integration)),
				logging.Float64("granted_days", timebudget.InDays(dt)),
			)
		}
	}

	s.notify(Observation{
		TargetID:  visit.Target.ID,
		Origin:    visit.Origin,
		Duration:  dt,
		Elapsed:   s.budget.Elapsed(),
		Accepted:  accepted,
		Truncated: truncated,
	})

	if !accepted {
		log.Warn(ctx, "observation rejected",
			logging.String("target_id", visit.Target.ID),
			logging.String("origin", visit.Origin),
			logging.Float64("requested_days", timebudget.InDays(dt)),
		)
		return
	}

	switch visit.Origin {
	case OriginDetection:
		summary.Detections++
	case OriginCharacterization:
		summary.Characterizations++
	}

	log.Debug(ctx, "observation complete",
		logging.String("target_id", visit.Target.ID),
		logging.String("origin", visit.Origin),
		logging.Float64("integration_days", timebudget.InDays(dt)),
		logging.Float64("elapsed_days", timebudget.InDays(s.budget.Elapsed())),
	)

	if visit.Remaining > 0 {
		s.queue.Push(Visit{
			Target:    visit.Target,
			Origin:    OriginCharacterization,
			Remaining: visit.Remaining - 1,
		})
	}
}

func (s *Surveyor) notify(obs Observation) {
	s.mu.Lock()
	listeners := append(([]func(Observation))(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(obs)
	}
}
