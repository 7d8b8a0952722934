package timebudget

import "time"

// Outcome classifies an allocation attempt in the audit trail. The
// string values are stable and safe to match on or use as metric label
// values.
type Outcome string

const (
	// OutcomeOK marks an allocation that fit the open window.
	OutcomeOK Outcome = "ok"
	// OutcomeWindowAdvance marks an allocation that forced a skip to
	// the next observing window.
	OutcomeWindowAdvance Outcome = "+window"
	// OutcomeTooLong marks a rejected allocation wider than the window.
	OutcomeTooLong Outcome = "!too long"
	// OutcomeNegative marks a rejected allocation of negative width.
	OutcomeNegative Outcome = "!negative allocation"
)

// Accepted reports whether the outcome moved the clock.
func (o Outcome) Accepted() bool {
	return o == OutcomeOK || o == OutcomeWindowAdvance
}

// Record describes one allocation attempt after the clock has settled.
// Elapsed is the mission offset following the attempt; for rejections
// it equals the offset before it, since rejections leave the clock
// untouched.
type Record struct {
	Elapsed   time.Duration
	Requested time.Duration
	Outcome   Outcome
	Origin    string
}

// Recorder receives allocation audit records. Implementations must not
// call back into the TimeBudget that emitted the record.
type Recorder interface {
	RecordAllocation(Record)
}
