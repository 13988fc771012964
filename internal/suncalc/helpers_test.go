package suncalc

import "time"

// Helsinki coordinates for testing
const (
	testLatitude  = 60.1699
	testLongitude = 24.9384
)

func newTestSunCalc() *SunCalc {
	return NewSunCalc(testLatitude, testLongitude, time.UTC)
}

// equinoxDate returns March 20, 2024 UTC, when day and night are roughly equal.
func equinoxDate() time.Time {
	return time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
}
