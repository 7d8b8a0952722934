package timebudget

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrNegativeLifetime indicates a mission lifetime below zero.
	ErrNegativeLifetime = errors.New("negative mission lifetime")
	// ErrNegativeExtension indicates an extended-mission span below zero.
	ErrNegativeExtension = errors.New("negative mission extension")
	// ErrFractionRange indicates an active fraction outside (0, 1].
	ErrFractionRange = errors.New("active fraction out of range")
	// ErrWindowRange indicates a non-positive observing window width.
	ErrWindowRange = errors.New("window width out of range")
	// ErrNegativeAdvance indicates an attempt to move the clock backwards.
	ErrNegativeAdvance = errors.New("negative advance")
)

// DefaultWindow is the observing window width used when no WithWindow
// option is supplied.
const DefaultWindow = 14 * 24 * time.Hour

// TimeBudget tracks elapsed mission time against a finite lifetime and
// meters it through periodic observing windows. The mission timeline is
// split into blocks of Window() length; only a fraction of each
// lifetime-spanning cycle belongs to this program, so an allocation that
// would run past the end of the current window skips ahead over the
// shared portion to the start of the next one.
//
// A TimeBudget is not safe for concurrent use. It is owned by the single
// goroutine driving the mission loop; wrap it if you need sharing.
type TimeBudget struct {
	// start anchors the mission on the absolute timeline.
	start time.Time

	// lifetime and extension together bound the mission. Exhausted
	// compares elapsed time against their sum.
	lifetime  time.Duration
	extension time.Duration

	// activeFraction is the share of the mission timeline available to
	// this program, in (0, 1].
	activeFraction float64

	// window is the width of one observing block.
	window time.Duration

	// elapsed is mission time consumed so far, measured from start.
	elapsed time.Duration

	// now caches start+elapsed on the absolute timeline.
	now time.Time

	// nextWindowStart is the offset of the current observing window.
	// Allocations must finish by nextWindowStart+window.
	nextWindowStart time.Duration

	// recorder is an optional sink for allocation audit records.
	recorder Recorder
}

// Option customises TimeBudget construction.
type Option func(*TimeBudget)

// WithWindow sets the observing window width. The width must be
// positive; New rejects the configuration otherwise.
func WithWindow(w time.Duration) Option {
	return func(b *TimeBudget) {
		b.window = w
	}
}

// WithRecorder attaches an audit sink that receives one Record per
// allocation attempt, accepted or not.
func WithRecorder(r Recorder) Option {
	return func(b *TimeBudget) {
		b.recorder = r
	}
}

// New constructs a TimeBudget anchored at start with the given nominal
// lifetime, extension beyond it, and active fraction of the timeline.
// The clock begins at the mission start with the first observing window
// open immediately.
func New(start time.Time, lifetime, extension time.Duration, activeFraction float64, opts ...Option) (*TimeBudget, error) {
	if lifetime < 0 {
		return nil, fmt.Errorf("%w: %v", ErrNegativeLifetime, lifetime)
	}
	if extension < 0 {
		return nil, fmt.Errorf("%w: %v", ErrNegativeExtension, extension)
	}
	// Negated membership test so a NaN fraction is rejected too.
	if !(activeFraction > 0 && activeFraction <= 1) {
		return nil, fmt.Errorf("%w: %v", ErrFractionRange, activeFraction)
	}
	b := &TimeBudget{
		start:          start,
		lifetime:       lifetime,
		extension:      extension,
		activeFraction: activeFraction,
		window:         DefaultWindow,
		now:            start,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.window <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrWindowRange, b.window)
	}
	return b, nil
}

// Allocate consumes a block of mission time dt and reports whether the
// allocation was accepted. A block wider than the observing window or a
// negative block is rejected without touching the clock. A block that
// fits the window but would run past the end of the one currently open
// advances the clock over the idle share of the timeline to the start
// of the next window and lands dt inside it.
func (b *TimeBudget) Allocate(dt time.Duration) bool {
	return b.AllocateWithOrigin(dt, "")
}

// AllocateWithOrigin is Allocate with a caller-supplied origin tag that
// is passed through to the audit sink. The tag has no effect on the
// allocation itself.
func (b *TimeBudget) AllocateWithOrigin(dt time.Duration, origin string) bool {
	if dt > b.window {
		b.record(dt, OutcomeTooLong, origin)
		return false
	}
	if dt < 0 {
		b.record(dt, OutcomeNegative, origin)
		return false
	}
	outcome := OutcomeOK
	if b.elapsed+dt > b.nextWindowStart+b.window {
		b.nextWindowStart += b.rolloverIncrement()
		b.elapsed = b.nextWindowStart + dt
		outcome = OutcomeWindowAdvance
	} else {
		b.elapsed += dt
	}
	b.now = b.start.Add(b.elapsed)
	b.record(dt, outcome, origin)
	return true
}

// Exhausted reports whether elapsed mission time has passed the total
// budget of lifetime plus extension. Landing exactly on the boundary
// still counts as within the mission.
func (b *TimeBudget) Exhausted() bool {
	return b.elapsed > b.lifetime+b.extension
}

// Advance moves the clock forward by dt without consulting the
// observing window or emitting an audit record. It rejects negative
// spans with ErrNegativeAdvance.
//
// Deprecated: Advance bypasses window accounting and can strand the
// clock outside any observing window. Use Allocate instead.
func (b *TimeBudget) Advance(dt time.Duration) error {
	if dt < 0 {
		return fmt.Errorf("%w: %v", ErrNegativeAdvance, dt)
	}
	b.elapsed += dt
	b.now = b.start.Add(b.elapsed)
	return nil
}

// NextAvailableTime returns the earliest mission offset at or after
// current that falls inside an observing window. When current lies past
// the end of the open window this advances the window bookkeeping to
// the next block and returns its start; otherwise current is returned
// unchanged.
//
// Deprecated: NextAvailableTime mutates window state as a side effect
// of what reads like a query. Use Allocate, which performs the same
// advance as part of consuming time.
func (b *TimeBudget) NextAvailableTime(current time.Duration) time.Duration {
	if current > b.nextWindowStart+b.window {
		b.nextWindowStart += b.rolloverIncrement()
		return b.nextWindowStart
	}
	return current
}

// rolloverIncrement is the distance from one window start to the next:
// the window itself plus the idle share of the cycle implied by the
// active fraction. The idle share is rounded to whole seconds so that
// repeated rollovers stay on exact second boundaries.
func (b *TimeBudget) rolloverIncrement() time.Duration {
	idle := (1 - b.activeFraction) / b.activeFraction * b.window.Seconds()
	return b.window + time.Duration(math.Round(idle))*time.Second
}

func (b *TimeBudget) record(requested time.Duration, outcome Outcome, origin string) {
	if b.recorder == nil {
		return
	}
	b.recorder.RecordAllocation(Record{
		Elapsed:   b.elapsed,
		Requested: requested,
		Outcome:   outcome,
		Origin:    origin,
	})
}

// Now returns the current mission time on the absolute timeline.
func (b *TimeBudget) Now() time.Time { return b.now }

// Elapsed returns mission time consumed since the start.
func (b *TimeBudget) Elapsed() time.Duration { return b.elapsed }

// Start returns the mission start on the absolute timeline.
func (b *TimeBudget) Start() time.Time { return b.start }

// FinishOffset returns the total budget, lifetime plus extension.
func (b *TimeBudget) FinishOffset() time.Duration { return b.lifetime + b.extension }

// FinishTime returns the absolute time at which the budget runs out.
func (b *TimeBudget) FinishTime() time.Time { return b.start.Add(b.FinishOffset()) }

// Window returns the observing window width.
func (b *TimeBudget) Window() time.Duration { return b.window }

// NextWindowStart returns the mission offset of the current observing
// window's start.
func (b *TimeBudget) NextWindowStart() time.Duration { return b.nextWindowStart }

// ActiveFraction returns the share of the timeline available to the
// program.
func (b *TimeBudget) ActiveFraction() float64 { return b.activeFraction }

// String summarises the clock state in days for logs.
func (b *TimeBudget) String() string {
	return fmt.Sprintf("mission %.2f/%.2f day, window [%.2f, %.2f] day",
		InDays(b.elapsed), InDays(b.FinishOffset()),
		InDays(b.nextWindowStart), InDays(b.nextWindowStart+b.window))
}
