// Package suncalc tells the monitor whether a capture happened by day or by
// night, so the judge prompt can take the time of day into account.
package suncalc

import (
	"fmt"
	"sync"
	"time"

	"github.com/sj14/astral/pkg/astral"
)

// Period is a coarse part of the day.
type Period string

const (
	PeriodNight   Period = "night"
	PeriodDawn    Period = "dawn"
	PeriodDay     Period = "day"
	PeriodDusk    Period = "dusk"
	PeriodUnknown Period = ""
)

// SunEventTimes holds the sun event times of one day in the observer's location.
type SunEventTimes struct {
	CivilDawn time.Time
	Sunrise   time.Time
	Sunset    time.Time
	CivilDusk time.Time
}

// SunCalc calculates and caches sun event times per calendar day.
type SunCalc struct {
	cache    map[string]SunEventTimes
	lock     sync.RWMutex
	observer astral.Observer
	loc      *time.Location
}

// NewSunCalc creates a calculator; a nil loc means time.Local.
func NewSunCalc(latitude, longitude float64, loc *time.Location) *SunCalc {
	if loc == nil {
		loc = time.Local
	}
	return &SunCalc{
		cache:    make(map[string]SunEventTimes),
		observer: astral.Observer{Latitude: latitude, Longitude: longitude},
		loc:      loc,
	}
}

// GetSunEventTimes returns the sun event times for the calendar day of date.
func (sc *SunCalc) GetSunEventTimes(date time.Time) (SunEventTimes, error) {
	local := date.In(sc.loc)
	dateKey := local.Format(time.DateOnly)

	sc.lock.RLock()
	times, exists := sc.cache[dateKey]
	sc.lock.RUnlock()
	if exists {
		return times, nil
	}

	day := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, sc.loc)
	times, err := sc.calculateSunEventTimes(day)
	if err != nil {
		return SunEventTimes{}, err
	}

	sc.lock.Lock()
	sc.cache[dateKey] = times
	sc.lock.Unlock()
	return times, nil
}

func (sc *SunCalc) calculateSunEventTimes(day time.Time) (SunEventTimes, error) {
	civilDawn, err := astral.Dawn(sc.observer, day, astral.DepressionCivil)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate civil dawn: %w", err)
	}
	sunrise, err := astral.Sunrise(sc.observer, day)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate sunrise: %w", err)
	}
	sunset, err := astral.Sunset(sc.observer, day)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate sunset: %w", err)
	}
	civilDusk, err := astral.Dusk(sc.observer, day, astral.DepressionCivil)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate civil dusk: %w", err)
	}

	return SunEventTimes{
		CivilDawn: civilDawn.In(sc.loc),
		Sunrise:   sunrise.In(sc.loc),
		Sunset:    sunset.In(sc.loc),
		CivilDusk: civilDusk.In(sc.loc),
	}, nil
}

// Period returns the part of the day t falls in. Days without a civil
// twilight (polar summer or winter) return PeriodUnknown and the error.
func (sc *SunCalc) Period(t time.Time) (Period, error) {
	times, err := sc.GetSunEventTimes(t)
	if err != nil {
		return PeriodUnknown, err
	}
	switch {
	case t.Before(times.CivilDawn):
		return PeriodNight, nil
	case t.Before(times.Sunrise):
		return PeriodDawn, nil
	case t.Before(times.Sunset):
		return PeriodDay, nil
	case t.Before(times.CivilDusk):
		return PeriodDusk, nil
	default:
		return PeriodNight, nil
	}
}

// Describe renders the period of t for the judge prompt, or "" when it
// cannot be determined.
func (sc *SunCalc) Describe(t time.Time) string {
	p, err := sc.Period(t)
	if err != nil {
		return ""
	}
	local := t.In(sc.loc).Format("15:04")
	switch p {
	case PeriodNight:
		return fmt.Sprintf("night, %s (sun below horizon)", local)
	case PeriodDawn:
		return fmt.Sprintf("dawn, %s", local)
	case PeriodDusk:
		return fmt.Sprintf("dusk, %s", local)
	default:
		return fmt.Sprintf("daytime, %s", local)
	}
}
