// mission/profile.go
package mission

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lumenobs/surveysim/timebudget"
)

// ErrInvalidProfile indicates a profile that decoded but fails validation.
var ErrInvalidProfile = errors.New("invalid mission profile")

// Defaults applied when a profile omits the corresponding field.
const (
	// DefaultStartMJD is the assumed launch epoch when neither start_mjd
	// nor start_time is given.
	DefaultStartMJD = 60634.0
	// DefaultLifetimeYears is the nominal mission length.
	DefaultLifetimeYears = 6.0
	// DefaultActiveFraction is the share of the timeline owned by the survey.
	DefaultActiveFraction = 1.0 / 6.0
	// DefaultIntegrationDays is assumed per target visit when unset.
	DefaultIntegrationDays = 1.0
)

// Profile describes one survey mission: when it starts, how much of the
// timeline it owns, and the targets competing for that time.
type Profile struct {
	Name           string
	Start          time.Time
	Lifetime       time.Duration
	Extension      time.Duration
	ActiveFraction float64
	// Window is the observing window width; zero means use the
	// timebudget default.
	Window  time.Duration
	Targets []Target
}

// Target is one entry in the survey target list.
type Target struct {
	ID   string
	Name string
	// Priority orders targets in the survey queue; higher goes first.
	Priority int
	// Integration is the observing time consumed per visit.
	Integration time.Duration
	// Revisits is how many follow-up visits the target gets after its
	// first observation.
	Revisits int
}

// internal JSON shapes – keep them unexported so we’re free to evolve them.
type missionProfileJSON struct {
	Name           string       `json:"name"`
	StartMJD       *float64     `json:"start_mjd"`
	StartTime      string       `json:"start_time"` // RFC 3339; start_mjd wins when both are set
	LifetimeYears  *float64     `json:"lifetime_years"`
	ExtensionYears *float64     `json:"extension_years"`
	ActiveFraction *float64     `json:"active_fraction"`
	WindowDays     *float64     `json:"window_days"`
	Targets        []targetJSON `json:"targets"`
}

type targetJSON struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Priority        int      `json:"priority"`
	IntegrationDays *float64 `json:"integration_days"`
	Revisits        int      `json:"revisits"`
}

// LoadProfile reads a JSON mission profile from r, fills in defaults for
// omitted fields, and validates the ranges the time budget will depend on.
func LoadProfile(r io.Reader) (*Profile, error) {
	var payload missionProfileJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadProfile: decode failed: %w", err)
	}

	start, err := startFromPayload(payload)
	if err != nil {
		return nil, err
	}

	lifetimeYears := DefaultLifetimeYears
	if payload.LifetimeYears != nil {
		lifetimeYears = *payload.LifetimeYears
	}
	if lifetimeYears < 0 {
		return nil, fmt.Errorf("LoadProfile: %w: lifetime_years %v is negative", ErrInvalidProfile, lifetimeYears)
	}

	extensionYears := 0.0
	if payload.ExtensionYears != nil {
		extensionYears = *payload.ExtensionYears
	}
	if extensionYears < 0 {
		return nil, fmt.Errorf("LoadProfile: %w: extension_years %v is negative", ErrInvalidProfile, extensionYears)
	}

	fraction := DefaultActiveFraction
	if payload.ActiveFraction != nil {
		fraction = *payload.ActiveFraction
	}
	if fraction <= 0 || fraction > 1 {
		return nil, fmt.Errorf("LoadProfile: %w: active_fraction %v outside (0, 1]", ErrInvalidProfile, fraction)
	}

	var window time.Duration
	if payload.WindowDays != nil {
		if *payload.WindowDays <= 0 {
			return nil, fmt.Errorf("LoadProfile: %w: window_days %v is not positive", ErrInvalidProfile, *payload.WindowDays)
		}
		window = timebudget.Days(*payload.WindowDays)
	}

	targets := make([]Target, 0, len(payload.Targets))
	for _, jsT := range payload.Targets {
		if jsT.ID == "" {
			return nil, fmt.Errorf("LoadProfile: %w: target with empty id", ErrInvalidProfile)
		}
		integrationDays := DefaultIntegrationDays
		if jsT.IntegrationDays != nil {
			integrationDays = *jsT.IntegrationDays
		}
		if integrationDays <= 0 {
			return nil, fmt.Errorf("LoadProfile: %w: target %s integration_days %v is not positive", ErrInvalidProfile, jsT.ID, integrationDays)
		}
		if jsT.Revisits < 0 {
			return nil, fmt.Errorf("LoadProfile: %w: target %s revisits %d is negative", ErrInvalidProfile, jsT.ID, jsT.Revisits)
		}
		targets = append(targets, Target{
			ID:          jsT.ID,
			Name:        jsT.Name,
			Priority:    jsT.Priority,
			Integration: timebudget.Days(integrationDays),
			Revisits:    jsT.Revisits,
		})
	}

	return &Profile{
		Name:           payload.Name,
		Start:          start,
		Lifetime:       timebudget.Years(lifetimeYears),
		Extension:      timebudget.Years(extensionYears),
		ActiveFraction: fraction,
		Window:         window,
		Targets:        targets,
	}, nil
}

func startFromPayload(payload missionProfileJSON) (time.Time, error) {
	if payload.StartMJD != nil {
		return timebudget.TimeFromMJD(*payload.StartMJD), nil
	}
	if payload.StartTime != "" {
		start, err := time.Parse(time.RFC3339, payload.StartTime)
		if err != nil {
			return time.Time{}, fmt.Errorf("LoadProfile: parse start_time: %w", err)
		}
		return start.UTC(), nil
	}
	return timebudget.TimeFromMJD(DefaultStartMJD), nil
}

// Budget builds the mission time budget described by the profile. Extra
// options are applied after the profile-derived ones, so callers can
// attach recorders or override the window.
func (p *Profile) Budget(opts ...timebudget.Option) (*timebudget.TimeBudget, error) {
	combined := make([]timebudget.Option, 0, len(opts)+1)
	if p.Window > 0 {
		combined = append(combined, timebudget.WithWindow(p.Window))
	}
	combined = append(combined, opts...)
	return timebudget.New(p.Start, p.Lifetime, p.Extension, p.ActiveFraction, combined...)
}

// ProfileSummary is a small digest of a loaded profile. It’s mainly
// useful for logging from main().
type ProfileSummary struct {
	Name           string
	StartMJD       float64
	LifetimeDays   float64
	ExtensionDays  float64
	ActiveFraction float64
	WindowDays     float64
	Targets        int
}

// Summary reports the effective mission parameters after defaulting.
func (p *Profile) Summary() ProfileSummary {
	window := p.Window
	if window == 0 {
		window = timebudget.DefaultWindow
	}
	return ProfileSummary{
		Name:           p.Name,
		StartMJD:       timebudget.MJDOfTime(p.Start),
		LifetimeDays:   timebudget.InDays(p.Lifetime),
		ExtensionDays:  timebudget.InDays(p.Extension),
		ActiveFraction: p.ActiveFraction,
		WindowDays:     timebudget.InDays(window),
		Targets:        len(p.Targets),
	}
}
