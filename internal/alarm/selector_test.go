package alarm_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railwake/railwake/internal/alarm"
	"github.com/railwake/railwake/internal/transit"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 11, hour, minute, 0, 0, time.UTC)
}

func journey(line string, dep, arr time.Time, depDelay, arrDelay *int) *transit.Journey {
	return &transit.Journey{
		Legs: []transit.Leg{
			{
				Origin:           transit.Station{ID: "a", Name: "A"},
				Destination:      transit.Station{ID: "b", Name: "B"},
				PlannedDeparture: dep,
				PlannedArrival:   arr,
				DepartureDelay:   depDelay,
				ArrivalDelay:     arrDelay,
				Line:             line,
			},
		},
	}
}

func minutes(m int) *int {
	s := m * 60
	return &s
}

// eveningJourneys is the canonical fixture: departures every 15 minutes from
// 18:10 to 19:10, each taking 30 minutes.
func eveningJourneys() []*transit.Journey {
	var journeys []*transit.Journey
	for i := 0; i < 5; i++ {
		dep := at(18, 10).Add(time.Duration(i) * 15 * time.Minute)
		journeys = append(journeys, journey("IC", dep, dep.Add(30*time.Minute), nil, nil))
	}
	return journeys
}

func TestSelectOptimalJourney_PicksLatestViable(t *testing.T) {
	// Desired arrival 19:45 with a 5-minute buffer makes every journey
	// viable; the 19:10 departure wins and a 10-minute prep puts the alarm
	// at 19:00. A naive earliest-journey policy would wake the user at
	// 18:00, a full hour earlier.
	sel := alarm.SelectOptimalJourney(eveningJourneys(), at(19, 45), 10, 5)

	require.NotNil(t, sel.Journey)
	assert.False(t, sel.Fallback)
	assert.Equal(t, at(19, 10), sel.Journey.ActualDeparture())
	assert.Equal(t, at(19, 0), sel.AlarmTime)
}

func TestSelectOptimalJourney_DelayedJourneyBecomesNonViable(t *testing.T) {
	journeys := eveningJourneys()
	// A 15-minute arrival delay pushes the 19:10 departure past the 19:40
	// deadline; the 18:55 departure is the next-latest viable option.
	journeys[4].Legs[0].ArrivalDelay = minutes(15)

	sel := alarm.SelectOptimalJourney(journeys, at(19, 45), 10, 5)

	require.NotNil(t, sel.Journey)
	assert.False(t, sel.Fallback)
	assert.Equal(t, at(18, 55), sel.Journey.ActualDeparture())
	assert.Equal(t, at(18, 45), sel.AlarmTime)
}

func TestSelectOptimalJourney_DepartureDelayShiftsAlarm(t *testing.T) {
	journeys := []*transit.Journey{
		journey("IC", at(18, 10), at(18, 40), minutes(10), nil),
	}

	sel := alarm.SelectOptimalJourney(journeys, at(19, 0), 10, 5)

	require.NotNil(t, sel.Journey)
	// Departure slides to 18:20, so the alarm slides with it.
	assert.Equal(t, at(18, 10), sel.AlarmTime)
}

func TestSelectOptimalJourney_AllDelayedFallsBackToEarliest(t *testing.T) {
	journeys := eveningJourneys()
	// 90 minutes puts even the 18:10 departure at 20:10, past the 19:40
	// deadline; nothing is viable.
	for _, j := range journeys {
		j.Legs[0].ArrivalDelay = minutes(90)
	}

	sel := alarm.SelectOptimalJourney(journeys, at(19, 45), 10, 5)

	require.NotNil(t, sel.Journey)
	assert.True(t, sel.Fallback)
	assert.NotEmpty(t, sel.Reasoning)
	// Earliest by list order; the alarm is still computed from its
	// delay-adjusted departure.
	assert.Equal(t, at(18, 10), sel.Journey.ActualDeparture())
	assert.Equal(t, at(18, 0), sel.AlarmTime)
}

func TestSelectOptimalJourney_ArrivalExactlyAtDeadlineIsViable(t *testing.T) {
	journeys := eveningJourneys()
	// A uniform 60-minute delay lands the 18:10 departure at exactly the
	// 19:40 deadline. "No later than" includes the deadline itself, so it
	// stays viable while every later departure overshoots.
	for _, j := range journeys {
		j.Legs[0].ArrivalDelay = minutes(60)
	}

	sel := alarm.SelectOptimalJourney(journeys, at(19, 45), 10, 5)

	require.NotNil(t, sel.Journey)
	assert.False(t, sel.Fallback)
	assert.Equal(t, at(18, 10), sel.Journey.ActualDeparture())
	assert.Equal(t, at(19, 40), sel.Journey.ActualArrival())
	assert.Equal(t, at(18, 0), sel.AlarmTime)
}

func TestSelectOptimalJourney_TieBreaksOnFirstEncountered(t *testing.T) {
	a := journey("first", at(18, 10), at(18, 40), nil, nil)
	b := journey("second", at(18, 10), at(18, 45), nil, nil)

	sel := alarm.SelectOptimalJourney([]*transit.Journey{a, b}, at(19, 0), 10, 5)

	require.NotNil(t, sel.Journey)
	assert.Equal(t, "first", sel.Journey.FirstLeg().Line)
}

func TestSelectOptimalJourney_EmptyInput(t *testing.T) {
	sel := alarm.SelectOptimalJourney(nil, at(19, 45), 10, 5)

	assert.Nil(t, sel.Journey)
	assert.True(t, sel.AlarmTime.IsZero())
	assert.NotEmpty(t, sel.Reasoning)
}

func TestSelectOptimalJourney_Deterministic(t *testing.T) {
	journeys := eveningJourneys()
	journeys[2].Legs[0].ArrivalDelay = minutes(3)

	first := alarm.SelectOptimalJourney(journeys, at(19, 45), 10, 5)
	for i := 0; i < 5; i++ {
		again := alarm.SelectOptimalJourney(journeys, at(19, 45), 10, 5)
		assert.Equal(t, first, again)
	}
}

func TestSelectOptimalJourney_SafetyInvariant(t *testing.T) {
	journeys := eveningJourneys()
	journeys[4].Legs[0].ArrivalDelay = minutes(7)

	desired := at(19, 45)
	sel := alarm.SelectOptimalJourney(journeys, desired, 10, 5)

	require.NotNil(t, sel.Journey)
	require.False(t, sel.Fallback)
	deadline := desired.Add(-5 * time.Minute)
	assert.False(t, sel.Journey.ActualArrival().After(deadline))
}
