package timebudget

import (
	"math"
	"time"
)

// TimeFromMJD converts a Modified Julian Date to UTC wall time.
// Fractional days are resolved to the nearest millisecond, which is
// ample for mission planning at day granularity.
func TimeFromMJD(mjd float64) time.Time {
	ms := math.Round((mjd - mjdOfUnixEpoch) * msPerDay)
	return time.UnixMilli(int64(ms)).UTC()
}

// MJDOfTime converts wall time to a Modified Julian Date.
func MJDOfTime(t time.Time) float64 {
	return mjdOfUnixEpoch + float64(t.UnixMilli())/msPerDay
}
