package suncalc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSunCalc(t *testing.T) {
	t.Parallel()

	sc := NewSunCalc(testLatitude, testLongitude, nil)
	require.NotNil(t, sc)
	assert.InDelta(t, testLatitude, sc.observer.Latitude, 0)
	assert.InDelta(t, testLongitude, sc.observer.Longitude, 0)
	assert.Equal(t, time.Local, sc.loc)
}

func TestGetSunEventTimes(t *testing.T) {
	t.Parallel()

	sc := newTestSunCalc()
	times, err := sc.GetSunEventTimes(equinoxDate())
	require.NoError(t, err)

	assert.True(t, times.CivilDawn.Before(times.Sunrise))
	assert.True(t, times.Sunrise.Before(times.Sunset))
	assert.True(t, times.Sunset.Before(times.CivilDusk))
	assert.Equal(t, 20, times.Sunrise.Day())

	// Helsinki sunrise at the equinox is around 04:20 UTC.
	assert.InDelta(t, 4, times.Sunrise.Hour(), 1)

	cached, err := sc.GetSunEventTimes(equinoxDate().Add(15 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, times, cached)

	sc.lock.RLock()
	assert.Len(t, sc.cache, 1)
	sc.lock.RUnlock()
}

func TestPeriod(t *testing.T) {
	t.Parallel()

	sc := newTestSunCalc()
	day := equinoxDate()

	tests := []struct {
		name string
		at   time.Time
		want Period
	}{
		{"small hours", day.Add(1 * time.Hour), PeriodNight},
		{"noon", day.Add(11 * time.Hour), PeriodDay},
		{"late evening", day.Add(22 * time.Hour), PeriodNight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := sc.Period(tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	times, err := sc.GetSunEventTimes(day)
	require.NoError(t, err)
	p, err := sc.Period(times.Sunrise.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, PeriodDawn, p)
	p, err = sc.Period(times.Sunset.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, PeriodDusk, p)
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	sc := newTestSunCalc()
	assert.Equal(t, "night, 01:00 (sun below horizon)", sc.Describe(equinoxDate().Add(time.Hour)))
	assert.Equal(t, "daytime, 11:00", sc.Describe(equinoxDate().Add(11*time.Hour)))
}

func TestPolarDayHasNoPeriod(t *testing.T) {
	t.Parallel()

	// Svalbard at midsummer: the sun never sets.
	sc := NewSunCalc(78.22, 15.65, time.UTC)
	p, err := sc.Period(time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Equal(t, PeriodUnknown, p)
	assert.Empty(t, sc.Describe(time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC)))
}
