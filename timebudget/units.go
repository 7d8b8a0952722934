package timebudget

import (
	"math"
	"time"
)

const (
	secondsPerDay  = 86400
	daysPerYear    = 365.25
	msPerDay       = secondsPerDay * 1000
	mjdOfUnixEpoch = 40587
)

// Days converts a day count to a duration rounded to whole seconds.
func Days(d float64) time.Duration {
	return time.Duration(math.Round(d*secondsPerDay)) * time.Second
}

// Years converts a Julian-year count to a duration rounded to whole
// seconds. A Julian year is exactly 365.25 days.
func Years(y float64) time.Duration {
	return time.Duration(math.Round(y*daysPerYear*secondsPerDay)) * time.Second
}

// InDays reports d as a floating-point day count.
func InDays(d time.Duration) float64 {
	return d.Seconds() / secondsPerDay
}
